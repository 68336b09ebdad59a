package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/propertia-auth/internal/http/errors"
)

// Timeout ограничивает обработку запроса сроком d (уже заданный deadline
// не переопределяется, d <= 0 отключает мидлвар). Если обработчик вернулся
// по истечении срока, ничего не записав, клиент получает 504 в общем
// конверте ошибок вместо пустого 200.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.status == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				apierrors.WriteError(w, r, ctx.Err())
			}
		})
	}
}
