package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/propertia-auth/internal/revocation"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	"github.com/pribylovaa/propertia-auth/internal/token"
	"github.com/pribylovaa/propertia-auth/mocks"
)

func issueFor(t *testing.T, codec *token.Codec, ttl time.Duration) string {
	t.Helper()
	raw, err := codec.Issue(uuid.NewString(), token.Claims{Email: "alice@x.io", Name: "Alice"}, ttl)
	require.NoError(t, err)
	return raw
}

func TestVerify_Missing(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	v, err := f.svc.Verify(context.Background(), "")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, ReasonMissing, v.Reason)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	for _, raw := range []string{"garbage", "a.b.c"} {
		v, err := f.svc.Verify(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, ReasonMalformed, v.Reason, raw)
	}

	// Чужая подпись тоже «malformed».
	foreign := issueFor(t, token.New("other-secret", "auth-service"), time.Hour)
	v, err := f.svc.Verify(context.Background(), foreign)
	require.NoError(t, err)
	require.Equal(t, ReasonMalformed, v.Reason)
}

func TestVerify_ExpiresExactlyAtBoundary(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	clock := func() time.Time { return now }

	f := newSvcWith(t, testCfg(), token.WithClock(func() time.Time { return clock() }))
	raw := issueFor(t, f.svc.codec, time.Hour)

	v, err := f.svc.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.True(t, v.Valid)

	issued := now
	clock = func() time.Time { return issued.Add(time.Hour - time.Second) }
	v, err = f.svc.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.True(t, v.Valid)

	clock = func() time.Time { return issued.Add(time.Hour) }
	v, err = f.svc.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, ReasonExpired, v.Reason)
}

func TestLogout_ThenVerify_Revoked(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	ctx := context.Background()
	raw := issueFor(t, f.svc.codec, time.Hour)

	f.svc.Logout(ctx, raw)
	f.svc.Logout(ctx, raw)

	v, err := f.svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, ReasonRevoked, v.Reason)

	// Соседний токен того же пользователя не затронут.
	other := issueFor(t, f.svc.codec, time.Hour)
	v, err = f.svc.Verify(ctx, other)
	require.NoError(t, err)
	require.True(t, v.Valid)
}

func TestLogout_ExpiredAndGarbageTokens_Accepted(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	ctx := context.Background()

	f.svc.Logout(ctx, "")
	f.svc.Logout(ctx, "garbage")

	v, err := f.svc.Verify(ctx, "garbage")
	require.NoError(t, err)
	require.Equal(t, ReasonRevoked, v.Reason)
}

func TestVerify_StoreError_Propagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	rs := mocks.NewMockStore(ctrl)
	svc := New(mocks.NewMockStorage(ctrl), revocation.New(rs), testCfg())

	boom := errors.New("redis down")
	rs.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, boom)

	_, err := svc.Verify(context.Background(), "some.token.value")
	require.ErrorIs(t, err, boom)
}

func TestLogout_StoreError_Swallowed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	rs := mocks.NewMockStore(ctrl)
	svc := New(mocks.NewMockStorage(ctrl), revocation.New(rs), testCfg())

	rs.EXPECT().RevokeToken(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	require.NotPanics(t, func() { svc.Logout(context.Background(), "some.token.value") })
}

func TestFetchIdentity(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	ctx := context.Background()
	u := alice(t)

	f.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
	p, err := f.svc.FetchIdentity(ctx, u.ID.String())
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), p.ID)
	require.Equal(t, "Alice", p.Name)
	require.Equal(t, "alice@x.io", p.Email)

	missing := uuid.New()
	f.st.EXPECT().UserByID(gomock.Any(), missing).Return(nil, storage.ErrNotFound)
	_, err = f.svc.FetchIdentity(ctx, missing.String())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.FetchIdentity(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("db down")
	f.st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(nil, boom)
	_, err = f.svc.FetchIdentity(ctx, uuid.NewString())
	require.ErrorIs(t, err, boom)
}
