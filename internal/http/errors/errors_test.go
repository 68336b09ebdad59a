package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/propertia-auth/internal/service"
)

func TestToHTTP_DomainTable(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		err    error
		status int
		msg    string
	}{
		{nil, http.StatusInternalServerError, MsgServerError},
		{ErrBadRequest, http.StatusBadRequest, "Invalid request body"},
		{service.ErrInvalidEmail, http.StatusBadRequest, "Invalid email"},
		{service.ErrWeakPassword, http.StatusBadRequest, "Password must be 8 to 72 characters long"},
		{service.ErrInvalidResetToken, http.StatusBadRequest, "Invalid or expired token"},
		{service.ErrBadPassword, http.StatusUnauthorized, "Invalid password"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{service.ErrNotAdmin, http.StatusForbidden, "Administrator account required"},
		{service.ErrNotFound, http.StatusNotFound, "Not found"},
		{service.ErrEmailTaken, http.StatusConflict, "Email already registered"},
		{context.Canceled, StatusClientClosedRequest, "Request canceled"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "Request timed out"},
		{fmt.Errorf("pgx: connection refused"), http.StatusInternalServerError, MsgServerError},
	}

	for _, tc := range tcs {
		// Ошибка приходит обёрнутой через op-префиксы сервиса.
		err := tc.err
		if err != nil {
			err = fmt.Errorf("service.auth.X: %w", err)
		}

		status, resp := ToHTTP(err)
		require.Equal(t, tc.status, status, "%v", tc.err)
		require.Equal(t, tc.msg, resp.Message)
		require.False(t, resp.Success)
	}
}

func TestToHTTP_ExplicitWins(t *testing.T) {
	t.Parallel()

	err := New(http.StatusUnauthorized, "Email not found", service.ErrNotFound)

	status, resp := ToHTTP(fmt.Errorf("wrap: %w", err))
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Email not found", resp.Message)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestWriteError_AddsRequestID(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, service.ErrEmailTaken)

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "rid-1", body.RequestID)
	require.False(t, body.Success)
}
