// config предоставляет структуры конфигурации auth-service и клиентского
// приложения (portal) и функции загрузки из файла/переменных окружения
// с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Допустимые бэкенды реестра отзыва.
const (
	RevocationMemory   = "memory"
	RevocationRedis    = "redis"
	RevocationPostgres = "postgres"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	Revocation RevocationConfig `yaml:"revocation"`
	Notify     NotifyConfig     `yaml:"notify"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"4000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/users"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и проверки токенов.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"720h"`
	Issuer    string        `yaml:"issuer" env:"ISSUER" env-default:"auth-service"`
	// ResetTTL — срок жизни ссылки сброса пароля.
	ResetTTL time.Duration `yaml:"reset_ttl" env:"RESET_TTL" env-default:"10m"`
	// OperatorEmail/OperatorPassword — аварийная учётка оператора для
	// admin-login, не привязанная к записи в БД. Пустые значения отключают путь.
	OperatorEmail    string `yaml:"operator_email" env:"ADMIN_EMAIL"`
	OperatorPassword string `yaml:"operator_password" env:"ADMIN_PASSWORD"`
	// RequireAdminAccount — admin-login пускает только учётки с is_admin.
	RequireAdminAccount bool `yaml:"require_admin_account" env:"REQUIRE_ADMIN_ACCOUNT" env-default:"false"`
}

// OperatorEnabled сообщает, сконфигурирован ли аварийный вход оператора.
func (a AuthConfig) OperatorEnabled() bool {
	return a.OperatorEmail != "" && a.OperatorPassword != ""
}

// DBConfig — настройки подключения к базе данных.
// Пустой URL допустим только вне prod: пользователи хранятся в памяти.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:revoked:"`
}

// RevocationConfig — выбор хранилища отозванных токенов.
type RevocationConfig struct {
	Backend string `yaml:"backend" env:"REVOCATION_BACKEND" env-default:"memory"`
	// DefaultTTL — срок хранения записи, если срок токена неизвестен (redis).
	DefaultTTL time.Duration `yaml:"default_ttl" env:"REVOCATION_DEFAULT_TTL" env-default:"720h"`
	// JanitorPeriod — период очистки истёкших записей (postgres); 0 отключает.
	JanitorPeriod time.Duration `yaml:"janitor_period" env:"REVOCATION_JANITOR_PERIOD" env-default:"30m"`
}

// NotifyConfig — доставка приветственных писем и ссылок сброса.
type NotifyConfig struct {
	// WebhookURL — HTTP-эндпойнт сервиса доставки; пустой — только лог.
	WebhookURL string        `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
	APIKey     string        `yaml:"api_key" env:"NOTIFY_API_KEY"`
	Timeout    time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT" env-default:"5s"`
	// WebsiteURL — база для ссылки сброса пароля (<website>/reset/<token>).
	WebsiteURL string `yaml:"website_url" env:"WEBSITE_URL" env-default:"http://localhost:5173"`
}

// Validate проверяет согласованность секций.
func (c *Config) Validate() error {
	switch c.Revocation.Backend {
	case RevocationMemory:
	case RevocationRedis:
		if c.Redis.RedisURL == "" {
			return fmt.Errorf("revocation backend %q requires redis.redis_url", c.Revocation.Backend)
		}
	case RevocationPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("revocation backend %q requires db.db_url", c.Revocation.Backend)
		}
	default:
		return fmt.Errorf("unknown revocation backend %q", c.Revocation.Backend)
	}

	if c.Env == "prod" && c.DB.DatabaseURL == "" {
		return fmt.Errorf("db.db_url is required in prod")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию сервиса по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// load читает файл по приоритету и накладывает ENV поверх значений из YAML.
func load(path string, cfg any) error {
	tryRead := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return nil
}
