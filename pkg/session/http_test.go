package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/propertia-auth/internal/token"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestProtect(t *testing.T) {
	t.Parallel()

	m := newManager(t, &fakeRemote{}, NewMemoryStore(), false)
	h := m.Protect("/login")(okHandler)

	// Пока сессия восстанавливается, редиректа нет.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	_, err := m.Start(context.Background(), "")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	require.NoError(t, m.Login(context.Background(), "tok", Identity{}))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandoffMiddleware(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	m := newManager(t, &fakeRemote{}, st, false)
	_, err := m.Start(context.Background(), "")
	require.NoError(t, err)

	h := m.Handoff(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tok := issue(t, time.Hour, token.Claims{Name: "Alice"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile?tab=1&token="+tok, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/profile?tab=1", rec.Header().Get("Location"))

	require.True(t, m.Current().Authenticated)
	saved, ok, err := st.Get(context.Background(), TokenKey("frontend"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tok, saved)
}

func TestHandoffMiddleware_RedirectStaysSameOrigin(t *testing.T) {
	t.Parallel()

	tok := issue(t, time.Hour, token.Claims{})

	tcs := []struct {
		name   string
		target string
		want   string
	}{
		{"scheme_relative", "//evil.example/?token=" + tok, "/evil.example/"},
		{"scheme_relative_with_query", "//evil.example/x?a=1&token=" + tok, "/evil.example/x?a=1"},
		{"backslash", "/%5Cevil.example?token=" + tok, "/evil.example"},
		{"dot_segments", "/a/../..//evil.example?token=" + tok, "/evil.example"},
		{"root", "/?token=" + tok, "/"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newManager(t, &fakeRemote{}, NewMemoryStore(), false)
			_, err := m.Start(context.Background(), "")
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			m.Handoff(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))

			require.Equal(t, http.StatusSeeOther, rec.Code)
			loc := rec.Header().Get("Location")
			require.Equal(t, tc.want, loc)
			require.True(t, strings.HasPrefix(loc, "/"))
			require.False(t, strings.HasPrefix(loc, "//"))
		})
	}
}

func TestLocalPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", localPath(""))
	require.Equal(t, "/", localPath("//"))
	require.Equal(t, "/dash/", localPath("/dash/"))
	require.Equal(t, "/evil.example", localPath(`/\evil.example`))
	require.Equal(t, "/a/b", localPath("/a//b"))
}
