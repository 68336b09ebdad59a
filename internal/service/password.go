package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/notify"
	"github.com/pribylovaa/propertia-auth/internal/pkg/log"
	"github.com/pribylovaa/propertia-auth/internal/pkg/redact"
	"github.com/pribylovaa/propertia-auth/internal/storage"
)

const resetTokenBytes = 20

// ForgotPassword выпускает одноразовый токен сброса и отправляет ссылку
// <website>/reset/<token> на почту пользователя. В хранилище попадает только хэш.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "service.password.ForgotPassword"

	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	user, err := s.users.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	plain, err := newResetToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().UTC().Add(s.cfg.ResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hashResetToken(plain), expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link := strings.TrimRight(s.resetBase, "/") + "/reset/" + plain
	log.From(ctx).Info("password_reset_requested",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)
	s.notifyBestEffort(ctx, notify.PasswordReset(user.Email, link))

	return nil
}

// ResetPassword меняет пароль по действующему токену сброса.
// Токен одноразовый: после смены пароля хранилище его гасит.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password string) error {
	const op = "service.password.ResetPassword"

	if resetToken == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
	}

	if err := validatePassword(password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user, err := s.users.UserByResetToken(ctx, hashResetToken(resetToken), now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password_reset", slog.String("user_id", user.ID.String()))

	return nil
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func hashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
