package storage

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/propertia-auth/internal/storage Storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/propertia-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен сброса).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (регистронезависимо).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// SetResetToken сохраняет хэш токена сброса пароля и его срок.
	SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	// UserByResetToken находит пользователя по хэшу действующего токена сброса.
	UserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error)
	// UpdatePassword меняет хэш пароля и гасит токен сброса.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error
}

// RevocationStorage хранит отозванные токены (см. revocation.Store).
type RevocationStorage interface {
	// RevokeToken добавляет хэш токена; повтор не ошибка.
	RevokeToken(ctx context.Context, id string, expiresAt time.Time) error
	// IsRevoked проверяет наличие хэша.
	IsRevoked(ctx context.Context, id string) (bool, error)
	// DeleteExpiredRevocations удаляет записи о токенах, истёкших естественным образом.
	DeleteExpiredRevocations(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RevocationStorage
	Close()
}
