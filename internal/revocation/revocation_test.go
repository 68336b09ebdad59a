package revocation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/propertia-auth/internal/revocation"
	"github.com/pribylovaa/propertia-auth/internal/revocation/memory"
	"github.com/pribylovaa/propertia-auth/internal/token"
	"github.com/pribylovaa/propertia-auth/mocks"
)

func TestID_StableAndOpaque(t *testing.T) {
	t.Parallel()

	a := revocation.ID("token-a")
	require.Equal(t, a, revocation.ID("token-a"))
	require.NotEqual(t, a, revocation.ID("token-b"))
	require.NotContains(t, a, "token-a")
	require.Len(t, a, 43) // 32 байта SHA-256 в base64url без паддинга
}

func TestRegistry_RevokeThenIsRevoked(t *testing.T) {
	t.Parallel()

	reg := revocation.New(memory.New())
	ctx := context.Background()

	ok, err := reg.IsRevoked(ctx, "raw")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, reg.Revoke(ctx, "raw"))
	require.NoError(t, reg.Revoke(ctx, "raw"))

	for i := 0; i < 3; i++ {
		ok, err = reg.IsRevoked(ctx, "raw")
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRegistry_EmptyTokenIsNoop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)

	reg := revocation.New(st)
	require.NoError(t, reg.Revoke(context.Background(), ""))

	ok, err := reg.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	require.False(t, ok)
}

// Для разбираемого токена в хранилище уходит его естественный срок.
func TestRegistry_PassesNaturalExpiry(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)

	codec := token.New("secret", "")
	raw, err := codec.Issue("user-1", token.Claims{}, time.Hour)
	require.NoError(t, err)
	claims, err := token.Decode(raw)
	require.NoError(t, err)

	st.EXPECT().RevokeToken(gomock.Any(), revocation.ID(raw), claims.ExpiresAt).Return(nil)

	require.NoError(t, revocation.New(st).Revoke(context.Background(), raw))
}

func TestRegistry_StoreErrorsWrapped(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	boom := errors.New("redis down")

	st.EXPECT().RevokeToken(gomock.Any(), gomock.Any(), time.Time{}).Return(boom)
	st.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, boom)

	reg := revocation.New(st)
	require.ErrorIs(t, reg.Revoke(context.Background(), "garbage"), boom)

	_, err := reg.IsRevoked(context.Background(), "garbage")
	require.ErrorIs(t, err, boom)
}
