// revocation хранит отозванные токены и отвечает на вопрос «отозван ли токен».
//
// Реестр оперирует идентификатором токена ID(raw) — base64url(SHA-256(raw)),
// поэтому сырые токены не попадают ни в Redis, ни в БД, ни в логи.
// Семантика — объединение множеств: Revoke идемпотентен, удаления нет.
// Конкретное хранилище выбирается конфигурацией (memory/redis/postgres).
package revocation

//go:generate mockgen -destination=../../mocks/mock_revocation.go -package=mocks github.com/pribylovaa/propertia-auth/internal/revocation Store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/token"
)

// Store — контракт хранилища отозванных идентификаторов.
type Store interface {
	// RevokeToken добавляет идентификатор. expiresAt — естественный срок
	// жизни токена (нулевое значение, если токен не разобрать); хранилища
	// с TTL используют его, чтобы не держать запись дольше самого токена.
	// Повторный вызов для того же id не является ошибкой.
	RevokeToken(ctx context.Context, id string, expiresAt time.Time) error
	// IsRevoked проверяет принадлежность идентификатора множеству.
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// Registry — реестр отзыва поверх Store.
type Registry struct {
	store Store
}

// New создаёт реестр поверх хранилища.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// ID вычисляет идентификатор токена для хранилища.
func ID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Revoke отзывает токен. Пустая строка — no-op.
func (r *Registry) Revoke(ctx context.Context, raw string) error {
	const op = "revocation.Revoke"

	if raw == "" {
		return nil
	}

	// Неразбираемый токен тоже попадает в реестр: срок неизвестен.
	var exp time.Time
	if claims, err := token.Decode(raw); err == nil {
		exp = claims.ExpiresAt
	}

	if err := r.store.RevokeToken(ctx, ID(raw), exp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsRevoked сообщает, отозван ли токен.
func (r *Registry) IsRevoked(ctx context.Context, raw string) (bool, error) {
	const op = "revocation.IsRevoked"

	if raw == "" {
		return false, nil
	}

	revoked, err := r.store.IsRevoked(ctx, ID(raw))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}
