// cache — Redis-хранилище отозванных токенов, общее для всех инстансов
// auth-service. Запись живёт ровно столько, сколько оставалось жить
// самому токену: после естественного истечения токен отвергается по сроку.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/propertia-auth/internal/revocation"
)

// minTTL — нижняя граница TTL, чтобы уже истёкший токен не записывался
// с нулевым/отрицательным сроком (Redis отверг бы такой SET).
const minTTL = time.Minute

// RevocationCache реализует revocation.Store поверх Redis.
type RevocationCache struct {
	rdb        *redis.Client
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:revoked:". defaultTTL применяется к
// токенам с неизвестным сроком.
func NewRedisCache(redisURL, prefix string, defaultTTL time.Duration) (*RevocationCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return NewWithClient(rdb, prefix, defaultTTL), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *redis.Client, prefix string, defaultTTL time.Duration) *RevocationCache {
	if prefix == "" {
		prefix = "auth:revoked:"
	}

	if defaultTTL <= 0 {
		defaultTTL = 720 * time.Hour
	}

	return &RevocationCache{rdb: rdb, prefix: prefix, defaultTTL: defaultTTL, now: time.Now}
}

func (c *RevocationCache) key(id string) string { return c.prefix + id }

// ttlFor считает остаток жизни токена.
func (c *RevocationCache) ttlFor(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return c.defaultTTL
	}

	ttl := expiresAt.Sub(c.now())
	if ttl < minTTL {
		return minTTL
	}

	return ttl
}

// RevokeToken пишет ключ с TTL. Повторный SET лишь обновляет TTL.
func (c *RevocationCache) RevokeToken(ctx context.Context, id string, expiresAt time.Time) error {
	return c.rdb.Set(ctx, c.key(id), "1", c.ttlFor(expiresAt)).Err()
}

// IsRevoked проверяет наличие ключа.
func (c *RevocationCache) IsRevoked(ctx context.Context, id string) (bool, error) {
	_, err := c.rdb.Get(ctx, c.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Ping проверяет доступность Redis (для readiness).
func (c *RevocationCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (c *RevocationCache) Close() error { return c.rdb.Close() }

var _ revocation.Store = (*RevocationCache)(nil)
