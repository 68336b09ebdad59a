package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/propertia-auth/internal/http/handlers"
	"github.com/pribylovaa/propertia-auth/internal/http/middleware"
	"github.com/pribylovaa/propertia-auth/internal/metrics"
)

// Service — зависимости роутера (реализуется *service.Service).
type Service interface {
	handlers.AuthService
	middleware.Verifier
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/users"; если пустой — роуты регистрируются на корне.
	Metrics  *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
		middleware.AuthBearer(), // вынимаем Bearer токен в контекст
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)
	requireAuth := middleware.RequireAuth(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, requireAuth)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, requireAuth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Короткие пути (/admin, /forgot, /reset/{resetToken}) оставлены для
// уже развёрнутых клиентов.
func registerRoutes(r chi.Router, h *handlers.Handlers, requireAuth middleware.Middleware) {
	r.Post("/login", h.LoginUser)
	r.Post("/register", h.RegisterUser)
	r.Post("/admin-login", h.AdminLogin)
	r.Post("/admin", h.AdminLogin)
	r.Post("/logout", h.Logout)
	r.Get("/verify-token", h.VerifyToken)

	r.With(requireAuth).Get("/me", h.Me)

	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/forgot", h.ForgotPassword)
	r.Post("/reset-password/{resetToken}", h.ResetPassword)
	r.Post("/reset/{resetToken}", h.ResetPassword)
}
