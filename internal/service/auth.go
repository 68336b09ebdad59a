package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/notify"
	"github.com/pribylovaa/propertia-auth/internal/pkg/log"
	"github.com/pribylovaa/propertia-auth/internal/pkg/redact"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	"github.com/pribylovaa/propertia-auth/internal/token"
)

const (
	// OperatorSubject — субъект токена аварийного входа оператора.
	OperatorSubject = "operator"
	// OperatorName — отображаемое имя оператора.
	OperatorName = "Admin"

	minPasswordLen = 8
	// bcrypt отказывается хэшировать пароли длиннее 72 байт.
	maxPasswordBytes = 72
)

// AuthResult — выпущенный токен и карточка вошедшего.
type AuthResult struct {
	Token     string
	User      models.UserSummary
	ExpiresAt time.Time
}

// RegisterUser регистрирует нового пользователя и сразу выпускает токен.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (*AuthResult, error) {
	const op = "service.auth.RegisterUser"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidName)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.users.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        normEmail,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.issue(user.ID.String(), user.Name, user.Email, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)
	s.notifyBestEffort(ctx, notify.Welcome(user.Name, user.Email))

	return res, nil
}

// LoginUser выполняет вход по email+пароль.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.auth.LoginUser"

	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		s.metrics.Login("user", false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.issue(user.ID.String(), user.Name, user.Email, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Login("user", true)

	return res, nil
}

// AdminLogin выполняет вход в административную консоль.
// Если учётка найдена, проверяется её пароль и выпускается токен с флагом adm.
// Если учётки нет, пробуется аварийная пара оператора (loginOperator).
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.auth.AdminLogin"

	user, err := s.checkCredentials(ctx, email, password)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		res, opErr := s.loginOperator(ctx, email, password)
		if opErr != nil {
			s.metrics.Login("admin", false)
			return nil, fmt.Errorf("%s: %w", op, opErr)
		}

		s.metrics.Login("operator", true)
		return res, nil
	default:
		s.metrics.Login("admin", false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cfg.RequireAdminAccount && !user.IsAdmin {
		s.metrics.Login("admin", false)
		return nil, fmt.Errorf("%s: %w", op, ErrNotAdmin)
	}

	res, err := s.issue(user.ID.String(), user.Name, user.Email, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Login("admin", true)

	return res, nil
}

// loginOperator — аварийный вход по паре из конфигурации, без записи в БД.
// Сравнение постоянного времени; каждый успешный вход пишется в лог на WARN.
func (s *Service) loginOperator(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.auth.loginOperator"

	if !s.cfg.OperatorEnabled() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	normEmail := strings.ToLower(strings.TrimSpace(email))
	wantEmail := strings.ToLower(strings.TrimSpace(s.cfg.OperatorEmail))

	emailOK := subtle.ConstantTimeCompare([]byte(normEmail), []byte(wantEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.OperatorPassword)) == 1
	if !emailOK || !passOK {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	res, err := s.issue(OperatorSubject, OperatorName, wantEmail, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Warn("admin_login_operator_fallback",
		slog.String("email", redact.Email(wantEmail)),
	)

	return res, nil
}

// checkCredentials находит учётку по email и сверяет пароль.
func (s *Service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" {
		return nil, ErrNotFound
	}

	user, err := s.users.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, ErrBadPassword
	}

	return user, nil
}

// issue подписывает токен на auth.token_ttl.
func (s *Service) issue(subjectID, name, email string, isAdmin bool) (*AuthResult, error) {
	raw, err := s.codec.Issue(subjectID, token.Claims{
		Name:    name,
		Email:   email,
		IsAdmin: isAdmin,
	}, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	claims, err := token.Decode(raw)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     raw,
		User:      models.UserSummary{Name: name, Email: email},
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// notifyBestEffort отправляет уведомление; ошибка доставки только логируется.
func (s *Service) notifyBestEffort(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.From(ctx).Warn("notification_failed",
			slog.String("kind", string(msg.Kind)),
			slog.String("to", redact.Email(msg.To)),
			slog.String("err", err.Error()),
		)
	}
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и нормализует регистр.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}

// validatePassword: непустой, не короче minPasswordLen символов
// и не длиннее maxPasswordBytes байт.
func validatePassword(pw string) error {
	if len(pw) == 0 {
		return ErrEmptyPassword
	}

	if utf8.RuneCountInString(pw) < minPasswordLen || len(pw) > maxPasswordBytes {
		return ErrWeakPassword
	}

	return nil
}
