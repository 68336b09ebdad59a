// memory — процессное хранилище отозванных токенов.
// Записи живут до перезапуска процесса и никогда не удаляются.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/revocation"
)

// Store — множество идентификаторов под RWMutex.
type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// RevokeToken добавляет id в множество; expiresAt не используется.
func (s *Store) RevokeToken(ctx context.Context, id string, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()

	return nil
}

// IsRevoked проверяет наличие id.
func (s *Store) IsRevoked(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.ids[id]
	s.mu.RUnlock()

	return ok, nil
}

// Len возвращает число записей.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

var _ revocation.Store = (*Store)(nil)
