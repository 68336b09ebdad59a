// service содержит бизнес-логику auth-сервиса: вход, регистрацию,
// вход администратора, проверку и отзыв токенов, профиль и сброс пароля.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования, если потокобезопасны хранилище
//     пользователей и реестр отзыва.
//   - Сервер не хранит сессий: токен самодостаточен, «смерть» токена
//     определяют его срок и реестр отзыва.
//   - Ошибки возвращаются как сентинелы ниже и маппятся транспортом
//     на HTTP-статусы (см. internal/http/errors).
package service

import (
	"errors"

	"github.com/pribylovaa/propertia-auth/internal/config"
	"github.com/pribylovaa/propertia-auth/internal/metrics"
	"github.com/pribylovaa/propertia-auth/internal/notify"
	"github.com/pribylovaa/propertia-auth/internal/revocation"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	"github.com/pribylovaa/propertia-auth/internal/token"
)

var (
	// ErrNotFound — пользователь с таким email/ID не найден.
	// Транспорт: 401 на входе, 404 для профиля и сброса пароля.
	ErrNotFound = errors.New("user not found")

	// ErrBadPassword — пароль не совпал с сохранённым хэшем. Транспорт: 401.
	ErrBadPassword = errors.New("invalid password")

	// ErrInvalidCredentials — admin-login: учётки нет и аварийная пара
	// оператора не подошла (или не сконфигурирована). Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAdmin — admin-login учёткой без is_admin при
	// auth.require_admin_account=true. Транспорт: 403.
	ErrNotAdmin = errors.New("account is not an administrator")

	// ErrEmailTaken — e-mail уже занят. Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail некорректен. Транспорт: 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidName — пустое имя при регистрации. Транспорт: 400.
	ErrInvalidName = errors.New("invalid name")

	// ErrEmptyPassword — пароль пустой. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrWeakPassword — пароль короче 8 символов или длиннее 72 байт. Транспорт: 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrInvalidResetToken — токен сброса неизвестен или истёк. Транспорт: 400.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	users    storage.UserStorage
	registry *revocation.Registry
	codec    *token.Codec
	cfg      config.AuthConfig

	notifier  notify.Notifier
	resetBase string
	metrics   *metrics.Metrics // может быть nil
}

// New создаёт новый экземпляр Service. Уведомления по умолчанию только логируются.
func New(users storage.UserStorage, registry *revocation.Registry, cfg config.AuthConfig, opts ...token.Option) *Service {
	return &Service{
		users:    users,
		registry: registry,
		codec:    token.New(cfg.JWTSecret, cfg.Issuer, opts...),
		cfg:      cfg,
		notifier: notify.NewLogNotifier(nil),
	}
}

// SetNotifier устанавливает канал доставки и базовый URL сайта для ссылок сброса.
func (s *Service) SetNotifier(n notify.Notifier, websiteURL string) {
	if n != nil {
		s.notifier = n
	}
	s.resetBase = websiteURL
}

// SetMetrics устанавливает метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
