package postgres

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken добавляет хэш токена в revoked_tokens; повтор игнорируется.
func (s *Storage) RevokeToken(ctx context.Context, id string, expiresAt time.Time) error {
	const op = "storage.postgres.RevokeToken"

	query := `
		INSERT INTO revoked_tokens(token_hash, revoked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO NOTHING
	`

	// Неизвестный срок храним как NULL: такие записи janitor не трогает.
	var exp *time.Time
	if !expiresAt.IsZero() {
		e := expiresAt.UTC()
		exp = &e
	}

	if _, err := s.db.Exec(ctx, query, id, time.Now().UTC(), exp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsRevoked проверяет наличие хэша в revoked_tokens.
func (s *Storage) IsRevoked(ctx context.Context, id string) (bool, error) {
	const op = "storage.postgres.IsRevoked"

	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// DeleteExpiredRevocations удаляет записи о токенах, срок которых уже истёк:
// такие токены отвергаются по exp и без реестра.
func (s *Storage) DeleteExpiredRevocations(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredRevocations"

	query := `DELETE FROM revoked_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
