package middleware

import (
	"context"
	"net/http"

	"github.com/pribylovaa/propertia-auth/internal/token"
)

// Middleware — стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвары к обработчику в порядке их перечисления.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxToken
	ctxClaims
)

// RequestIDFrom возвращает X-Request-Id текущего запроса.
func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

// TokenFrom возвращает сырой Bearer-токен (пустая строка, если его нет).
func TokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxToken).(string)
	return v
}

// ClaimsFrom возвращает claims, положенные RequireAuth.
func ClaimsFrom(ctx context.Context) (token.Claims, bool) {
	v, ok := ctx.Value(ctxClaims).(token.Claims)
	return v, ok
}

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}
