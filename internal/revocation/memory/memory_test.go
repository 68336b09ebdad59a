package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_RevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	ok, err := s.IsRevoked(ctx, "id-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.RevokeToken(ctx, "id-1", time.Now()))
	require.NoError(t, s.RevokeToken(ctx, "id-1", time.Time{}))
	require.Equal(t, 1, s.Len())

	ok, err = s.IsRevoked(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, ok)
}

// Записи с прошедшим сроком не вычищаются.
func TestStore_KeepsExpiredEntries(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.RevokeToken(ctx, "old", time.Now().Add(-time.Hour)))

	ok, err := s.IsRevoked(ctx, "old")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_ConcurrentRevokeAndCheck(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, s.RevokeToken(ctx, fmt.Sprintf("id-%d", i), time.Time{}))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := s.IsRevoked(ctx, fmt.Sprintf("id-%d", i))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, s.Len())
	for i := 0; i < n; i++ {
		ok, err := s.IsRevoked(ctx, fmt.Sprintf("id-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.RevokeToken(ctx, "id", time.Time{}), context.Canceled)

	_, err := s.IsRevoked(ctx, "id")
	require.ErrorIs(t, err, context.Canceled)
}
