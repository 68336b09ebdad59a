// memory — потокобезопасное хранилище пользователей в памяти процесса.
// Используется в окружении local без БД и в тестах HTTP-слоя.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/storage"
)

type resetEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// Storage хранит копии записей, наружу отдаёт тоже копии.
type Storage struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
	resets  map[string]resetEntry
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		byID:    make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
		resets:  make(map[string]resetEntry),
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, ok := s.byEmail[key]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := s.byID[user.ID]; ok {
		return storage.ErrAlreadyExists
	}

	s.byID[user.ID] = *user
	s.byEmail[key] = user.ID

	return nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	u := s.byID[id]
	return &u, nil
}

func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &u, nil
}

func (s *Storage) SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return storage.ErrNotFound
	}

	// У пользователя один действующий токен сброса.
	for h, e := range s.resets {
		if e.userID == id {
			delete(s.resets, h)
		}
	}
	s.resets[hash] = resetEntry{userID: id, expiresAt: expiresAt}

	return nil
}

func (s *Storage) UserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.resets[hash]
	if !ok || !now.Before(e.expiresAt) {
		return nil, storage.ErrNotFound
	}

	u, ok := s.byID[e.userID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &u, nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = now
	s.byID[id] = u

	for h, e := range s.resets {
		if e.userID == id {
			delete(s.resets, h)
		}
	}

	return nil
}

var _ storage.UserStorage = (*Storage)(nil)
