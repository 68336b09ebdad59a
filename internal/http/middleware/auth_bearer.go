package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/propertia-auth/internal/http/errors"
	"github.com/pribylovaa/propertia-auth/internal/models"
	logctx "github.com/pribylovaa/propertia-auth/internal/pkg/log"
	"github.com/pribylovaa/propertia-auth/internal/service"
)

// Verifier проверяет токен (реализуется *service.Service).
type Verifier interface {
	Verify(ctx context.Context, raw string) (service.Verdict, error)
}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт сырой токен
// в контекст (TokenFrom). Отсутствие или иная схема не ошибка.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := BearerToken(r); raw != "" {
				r = r.WithContext(context.WithValue(r.Context(), ctxToken, raw))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken достаёт токен из заголовка "Authorization: Bearer <token>".
// Схема сравнивается без учёта регистра.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

// RequireAuth пропускает запрос дальше только с действующим неотозванным
// токеном; claims кладутся в контекст (ClaimsFrom), subject — в логгер.
// Отказ: 401 {valid:false,message}, сбой реестра отзыва: 500.
func RequireAuth(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFrom(r.Context())
			if raw == "" {
				raw = BearerToken(r)
			}

			verdict, err := v.Verify(r.Context(), raw)
			if err != nil {
				logctx.From(r.Context()).Error("verify_failed", slog.String("err", err.Error()))
				WriteVerdict(w, http.StatusInternalServerError, apierrors.MsgServerError)
				return
			}

			if !verdict.Valid {
				WriteVerdict(w, http.StatusUnauthorized, VerdictMessage(verdict.Reason))
				return
			}

			ctx := context.WithValue(r.Context(), ctxClaims, verdict.Claims)
			ctx = logctx.With(ctx, slog.String("subject", verdict.Claims.SubjectID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VerdictMessage — текст ответа для причины отказа.
func VerdictMessage(reason service.Reason) string {
	switch reason {
	case service.ReasonMissing:
		return "No token provided"
	case service.ReasonRevoked:
		return "Token has been revoked"
	default:
		return "Invalid or expired token"
	}
}

// WriteVerdict пишет ответ формата /verify-token.
func WriteVerdict(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.VerifyResponse{
		Valid:   status == http.StatusOK,
		Message: message,
	})
}
