package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/propertia-auth/internal/http/errors"
	logctx "github.com/pribylovaa/propertia-auth/internal/pkg/log"
)

// Recover превращает panic обработчика в 500 с конвертом
// {message:"Server error", success:false, request_id}.
// Если ответ уже начат, тело не дописывается: только запись в лог.
// http.ErrAbortHandler пробрасывается дальше, net/http обрывает соединение сам.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				started := sw.status != 0
				logctx.From(r.Context()).
					LogAttrs(r.Context(), slog.LevelError, "panic",
						slog.String("path", r.URL.Path),
						slog.Any("reason", rec),
						slog.Bool("response_started", started),
					)

				if started {
					return
				}
				apierrors.WriteError(sw, r, fmt.Errorf("panic: %v", rec))
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
