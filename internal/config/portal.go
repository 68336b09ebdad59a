package config

import (
	"fmt"
	"net"
	"time"
)

// Бэкенды локального хранилища сессии приложения.
const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// PortalConfig — конфигурация одного клиентского приложения
// (публичный сайт, админ-консоль, личный кабинет).
type PortalConfig struct {
	Env string `yaml:"env" env:"ENV" env-default:"local"`
	// App — имя приложения; им же пространство ключей в хранилище сессии.
	App string `yaml:"app" env:"APP" env-default:"frontend"`
	// AdminApp — приложение требует флаг администратора в сохранённой сессии.
	AdminApp bool   `yaml:"admin_app" env:"ADMIN_APP" env-default:"false"`
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"5173"`
	// AuthURL — базовый адрес API auth-service вместе с base path.
	AuthURL string `yaml:"auth_url" env:"AUTH_URL" env-default:"http://localhost:4000/api/users"`
	// PollInterval — период проверки токена на сервере.
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"1s"`
	// RequestTimeout — таймаут одного запроса к auth-service.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"5s"`
	Store          SessionStoreConfig `yaml:"store"`
	// HandoffTargets — адреса других приложений, куда можно передать токен через ?token=.
	HandoffTargets []string `yaml:"handoff_targets" env:"HANDOFF_TARGETS" env-separator:","`
}

// SessionStoreConfig — где приложение хранит токен между перезапусками.
type SessionStoreConfig struct {
	Backend  string `yaml:"backend" env:"SESSION_STORE" env-default:"file"`
	Path     string `yaml:"path" env:"SESSION_FILE" env-default:"session.json"`
	RedisURL string `yaml:"redis_url" env:"SESSION_REDIS_URL"`
}

// Addr возвращает адрес в формате host:port.
func (p PortalConfig) Addr() string {
	return net.JoinHostPort(p.Host, p.Port)
}

// Validate проверяет согласованность настроек приложения.
func (p *PortalConfig) Validate() error {
	if p.App == "" {
		return fmt.Errorf("app name is required")
	}

	if p.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	switch p.Store.Backend {
	case SessionStoreFile, SessionStoreMemory:
	case SessionStoreRedis:
		if p.Store.RedisURL == "" {
			return fmt.Errorf("session store %q requires store.redis_url", p.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown session store %q", p.Store.Backend)
	}

	return nil
}

// MustLoadPortal — обёртка над LoadPortal с panic при ошибке.
func MustLoadPortal(path string) *PortalConfig {
	cfg, err := LoadPortal(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// LoadPortal загружает конфигурацию приложения с тем же приоритетом, что и Load.
func LoadPortal(path string) (*PortalConfig, error) {
	var cfg PortalConfig

	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portal config: %w", err)
	}

	return &cfg, nil
}
