package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/propertia-auth/internal/config"
	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/notify"
	"github.com/pribylovaa/propertia-auth/internal/revocation"
	revmem "github.com/pribylovaa/propertia-auth/internal/revocation/memory"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	"github.com/pribylovaa/propertia-auth/internal/token"
	"github.com/pribylovaa/propertia-auth/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "unit-secret",
		TokenTTL:  720 * time.Hour,
		Issuer:    "auth-service",
		ResetTTL:  10 * time.Minute,
	}
}

type fixture struct {
	svc      *Service
	st       *mocks.MockStorage
	notifier *mocks.MockNotifier
}

func newSvcWith(t *testing.T, cfg config.AuthConfig, opts ...token.Option) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	nt := mocks.NewMockNotifier(ctrl)

	svc := New(st, revocation.New(revmem.New()), cfg, opts...)
	svc.SetNotifier(nt, "https://propertia.example")

	return fixture{svc: svc, st: st, notifier: nt}
}

func newSvc(t *testing.T) fixture {
	t.Helper()
	return newSvcWith(t, testCfg())
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func alice(t *testing.T) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        "alice@x.io",
		PasswordHash: mustHashPW(t, "password1"),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRegisterUser_OK(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	ctx := context.Background()

	f.st.EXPECT().UserByEmail(gomock.Any(), "bob@x.io").Return(nil, storage.ErrNotFound)
	f.st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		require.Equal(t, "Bob", u.Name)
		require.Equal(t, "bob@x.io", u.Email)
		require.True(t, checkPassword(u.PasswordHash, "password1"))
		require.False(t, u.IsAdmin)
		return nil
	})
	f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m notify.Message) error {
		require.Equal(t, notify.KindWelcome, m.Kind)
		require.Equal(t, "bob@x.io", m.To)
		return nil
	})

	res, err := f.svc.RegisterUser(ctx, " Bob ", "Bob@X.io", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, models.UserSummary{Name: "Bob", Email: "bob@x.io"}, res.User)
	require.WithinDuration(t, time.Now().Add(720*time.Hour), res.ExpiresAt, 2*time.Second)

	v, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, "bob@x.io", v.Claims.Email)
	require.False(t, v.Claims.IsAdmin)
}

func TestRegisterUser_Validation(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name, userName, email, pw string
		want                      error
	}{
		{"empty_name", "  ", "a@x.io", "password1", ErrInvalidName},
		{"bad_email", "A", "not-an-email", "password1", ErrInvalidEmail},
		{"display_name_email", "A", "A <a@x.io>", "password1", ErrInvalidEmail},
		{"empty_password", "A", "a@x.io", "", ErrEmptyPassword},
		{"short_password", "A", "a@x.io", "short", ErrWeakPassword},
		{"too_long_password", "A", "a@x.io", strings.Repeat("p", 73), ErrWeakPassword},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			f := newSvc(t)
			_, err := f.svc.RegisterUser(context.Background(), tc.userName, tc.email, tc.pw)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterUser_EmailTaken(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(alice(t), nil)

	_, err := f.svc.RegisterUser(context.Background(), "Alice", "alice@x.io", "password1")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_RaceOnSave_MapsToEmailTaken(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	f.st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, err := f.svc.RegisterUser(context.Background(), "Alice", "alice@x.io", "password1")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_NotificationFailure_DoesNotFail(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	f.st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	res, err := f.svc.RegisterUser(context.Background(), "Alice", "alice@x.io", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
}

func TestLoginUser_OK(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	u := alice(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(u, nil)

	res, err := f.svc.LoginUser(context.Background(), "Alice@X.io", "password1")
	require.NoError(t, err)
	require.Equal(t, models.UserSummary{Name: "Alice", Email: "alice@x.io"}, res.User)

	claims, err := token.Decode(res.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), claims.SubjectID)
	require.False(t, claims.IsAdmin)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt, 2*time.Second)
}

func TestLoginUser_Failures(t *testing.T) {
	t.Parallel()

	t.Run("unknown_email", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UserByEmail(gomock.Any(), "nobody@x.io").Return(nil, storage.ErrNotFound)

		_, err := f.svc.LoginUser(context.Background(), "nobody@x.io", "password1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty_email", func(t *testing.T) {
		f := newSvc(t)

		_, err := f.svc.LoginUser(context.Background(), "", "password1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad_password", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(alice(t), nil)

		_, err := f.svc.LoginUser(context.Background(), "alice@x.io", "wrong-password")
		require.ErrorIs(t, err, ErrBadPassword)
	})

	t.Run("storage_error", func(t *testing.T) {
		f := newSvc(t)
		boom := errors.New("db down")
		f.st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, boom)

		_, err := f.svc.LoginUser(context.Background(), "alice@x.io", "password1")
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestAdminLogin_Account(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(alice(t), nil)

	res, err := f.svc.AdminLogin(context.Background(), "alice@x.io", "password1")
	require.NoError(t, err)

	claims, err := token.Decode(res.Token)
	require.NoError(t, err)
	require.True(t, claims.IsAdmin)
	require.Equal(t, "Alice", claims.Name)
}

func TestAdminLogin_RequireAdminAccount(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.RequireAdminAccount = true

	f := newSvcWith(t, cfg)
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(alice(t), nil)

	_, err := f.svc.AdminLogin(context.Background(), "alice@x.io", "password1")
	require.ErrorIs(t, err, ErrNotAdmin)

	admin := alice(t)
	admin.IsAdmin = true
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(admin, nil)

	_, err = f.svc.AdminLogin(context.Background(), "alice@x.io", "password1")
	require.NoError(t, err)
}

func TestAdminLogin_BadPassword_NoOperatorFallback(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.OperatorEmail = "alice@x.io"
	cfg.OperatorPassword = "wrong-password"

	f := newSvcWith(t, cfg)
	f.st.EXPECT().UserByEmail(gomock.Any(), "alice@x.io").Return(alice(t), nil)

	_, err := f.svc.AdminLogin(context.Background(), "alice@x.io", "wrong-password")
	require.ErrorIs(t, err, ErrBadPassword)
}

func TestAdminLogin_OperatorFallback(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.OperatorEmail = "ops@x.io"
	cfg.OperatorPassword = "break-glass"

	f := newSvcWith(t, cfg)
	ctx := context.Background()

	f.st.EXPECT().UserByEmail(gomock.Any(), "ops@x.io").Return(nil, storage.ErrNotFound).Times(2)

	res, err := f.svc.AdminLogin(ctx, "OPS@x.io", "break-glass")
	require.NoError(t, err)
	require.Equal(t, models.UserSummary{Name: OperatorName, Email: "ops@x.io"}, res.User)

	v, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.True(t, v.Claims.IsAdmin)
	require.Equal(t, OperatorSubject, v.Claims.SubjectID)

	p, err := f.svc.FetchIdentity(ctx, v.Claims.SubjectID)
	require.NoError(t, err)
	require.Equal(t, OperatorName, p.Name)
	require.True(t, p.IsAdmin)

	_, err = f.svc.AdminLogin(ctx, "ops@x.io", "guess")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLogin_OperatorDisabled(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	f.st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	_, err := f.svc.AdminLogin(context.Background(), "ops@x.io", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.FetchIdentity(context.Background(), OperatorSubject)
	require.ErrorIs(t, err, ErrNotFound)
}
