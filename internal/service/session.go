package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/pkg/log"
	"github.com/pribylovaa/propertia-auth/internal/pkg/redact"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	"github.com/pribylovaa/propertia-auth/internal/token"
)

// Reason — причина, по которой токен не принят.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonMissing   Reason = "missing"
	ReasonMalformed Reason = "malformed"
	ReasonExpired   Reason = "expired"
	ReasonRevoked   Reason = "revoked"
)

// Verdict — результат проверки токена.
type Verdict struct {
	Valid  bool
	Reason Reason
	// Claims заполнены только для Valid=true.
	Claims token.Claims
}

// Verify проверяет предъявленный токен.
// Порядок: пустой токен, затем реестр отзыва, затем подпись и срок.
// Ошибка возвращается только при сбое хранилища отзыва: токен нельзя
// считать ни действительным, ни недействительным.
func (s *Service) Verify(ctx context.Context, raw string) (Verdict, error) {
	const op = "service.session.Verify"

	if raw == "" {
		s.metrics.Verify(string(ReasonMissing))
		return Verdict{Reason: ReasonMissing}, nil
	}

	revoked, err := s.registry.IsRevoked(ctx, raw)
	if err != nil {
		s.metrics.Verify("error")
		return Verdict{}, fmt.Errorf("%s: %w", op, err)
	}

	if revoked {
		s.metrics.Verify(string(ReasonRevoked))
		log.From(ctx).Info("revoked_token_presented", slog.String("token", redact.Token(raw)))
		return Verdict{Reason: ReasonRevoked}, nil
	}

	claims, err := s.codec.VerifySignature(raw)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrExpired):
		s.metrics.Verify(string(ReasonExpired))
		return Verdict{Reason: ReasonExpired}, nil
	default:
		s.metrics.Verify(string(ReasonMalformed))
		return Verdict{Reason: ReasonMalformed}, nil
	}

	s.metrics.Verify("valid")

	return Verdict{Valid: true, Claims: claims}, nil
}

// Logout отзывает токен. Операция всегда завершается успешно:
// сбой реестра логируется, клиент в любом случае очищает локальную сессию.
func (s *Service) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}

	if err := s.registry.Revoke(ctx, raw); err != nil {
		log.From(ctx).Error("logout_revoke_failed",
			slog.String("token", redact.Token(raw)),
			slog.String("err", err.Error()),
		)
		return
	}

	s.metrics.Revoked()
	log.From(ctx).Info("token_revoked", slog.String("token", redact.Token(raw)))
}

// FetchIdentity возвращает профиль субъекта проверенного токена.
func (s *Service) FetchIdentity(ctx context.Context, subjectID string) (*models.Profile, error) {
	const op = "service.session.FetchIdentity"

	if subjectID == OperatorSubject {
		if !s.cfg.OperatorEnabled() {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return &models.Profile{
			ID:      OperatorSubject,
			Name:    OperatorName,
			Email:   s.cfg.OperatorEmail,
			IsAdmin: true,
		}, nil
	}

	id, err := uuid.Parse(subjectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Profile(), nil
}
