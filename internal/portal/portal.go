// portal — HTTP-оболочка клиентского приложения поверх pkg/session:
// вход и выход, состояние сессии, защищённые страницы и передача токена
// в соседнее приложение.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/propertia-auth/internal/http/middleware"
	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/token"
	"github.com/pribylovaa/propertia-auth/pkg/authclient"
	"github.com/pribylovaa/propertia-auth/pkg/session"
)

// LoginPath — куда Protect отправляет неаутентифицированных.
const LoginPath = "/login"

// Authenticator — вход через auth-service (реализуется *authclient.Client).
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	AdminLogin(ctx context.Context, email, password string) (*models.AuthResponse, error)
}

// Options — параметры оболочки.
type Options struct {
	Logger   *slog.Logger
	AdminApp bool
	// HandoffTargets — разрешённые адреса приложений для /handoff.
	HandoffTargets []string
}

type shell struct {
	mgr     *session.Manager
	auth    Authenticator
	opts    Options
	targets map[string]struct{}
}

// NewRouter собирает роутер приложения.
func NewRouter(mgr *session.Manager, auth Authenticator, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &shell{mgr: mgr, auth: auth, opts: opts, targets: make(map[string]struct{})}
	for _, t := range opts.HandoffTargets {
		if o := origin(t); o != "" {
			s.targets[o] = struct{}{}
		}
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		mgr.Handoff,
	)

	r.Get("/session", s.session)
	r.Post(LoginPath, s.login)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(mgr.Protect(LoginPath))
		r.Get("/", s.home)
		r.Get("/handoff", s.handoff)
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *shell) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "Invalid request body"})
		return
	}

	login := s.auth.Login
	if s.opts.AdminApp {
		login = s.auth.AdminLogin
	}

	resp, err := login(r.Context(), req.Email, req.Password)
	if err != nil {
		var se *authclient.StatusError
		switch {
		case errors.As(err, &se):
			writeJSON(w, se.Code, models.MessageResponse{Message: se.Message})
		case errors.Is(err, authclient.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, models.MessageResponse{Message: "Invalid credentials"})
		default:
			s.opts.Logger.Warn("portal_login_failed", slog.String("err", err.Error()))
			writeJSON(w, http.StatusBadGateway, models.MessageResponse{Message: "Authentication service unavailable"})
		}
		return
	}

	claims, err := token.Decode(resp.Token)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, models.MessageResponse{Message: "Authentication service returned an invalid token"})
		return
	}

	id := session.MergeIdentity(&models.Profile{Name: resp.User.Name, Email: resp.User.Email}, claims, s.opts.AdminApp)
	if err := s.mgr.Login(r.Context(), resp.Token, id); err != nil {
		s.opts.Logger.Error("portal_session_persist_failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: "Server error"})
		return
	}

	writeJSON(w, http.StatusOK, s.mgr.Current())
}

func (s *shell) logout(w http.ResponseWriter, r *http.Request) {
	s.mgr.Logout(r.Context())
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully", Success: true})
}

func (s *shell) session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Current())
}

func (s *shell) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Current().Identity)
}

// handoff перенаправляет в соседнее приложение с токеном в ?token=.
// Разрешены только адреса из HandoffTargets.
func (s *shell) handoff(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")

	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, models.MessageResponse{Message: "Invalid handoff target"})
		return
	}
	if _, ok := s.targets[origin(to)]; !ok {
		writeJSON(w, http.StatusForbidden, models.MessageResponse{Message: "Handoff target not allowed"})
		return
	}

	q := u.Query()
	q.Set(session.HandoffParam, s.mgr.Current().Token)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}

// origin — scheme://host в нижнем регистре; пустая строка для относительных адресов.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
