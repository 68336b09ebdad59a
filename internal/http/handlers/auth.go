package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/propertia-auth/internal/http/errors"
	"github.com/pribylovaa/propertia-auth/internal/http/middleware"
	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/service"
)

func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.Auth.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, loginError(err))
		return
	}

	writeJSON(w, http.StatusOK, authResponse(res))
}

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.Auth.RegisterUser(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(res))
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.Auth.AdminLogin(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, loginError(err))
		return
	}

	writeJSON(w, http.StatusOK, authResponse(res))
}

// Logout всегда отвечает 200: клиент очищает локальную сессию независимо от ответа.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context(), middleware.TokenFrom(r.Context()))

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully", Success: true})
}

// VerifyToken отвечает {valid:true} либо 401/500 с причиной.
func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.Auth.Verify(r.Context(), middleware.TokenFrom(r.Context()))
	if err != nil {
		middleware.WriteVerdict(w, http.StatusInternalServerError, apierrors.MsgServerError)
		return
	}

	if !verdict.Valid {
		middleware.WriteVerdict(w, http.StatusUnauthorized, middleware.VerdictMessage(verdict.Reason))
		return
	}

	middleware.WriteVerdict(w, http.StatusOK, "")
}

// Me возвращает профиль владельца токена. Маршрут закрыт RequireAuth.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.New(http.StatusUnauthorized, "Invalid or expired token", nil))
		return
	}

	profile, err := h.Auth.FetchIdentity(r.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = apierrors.New(http.StatusNotFound, "User not found", err)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in models.ForgotPasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.Auth.ForgotPassword(r.Context(), in.Email); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = apierrors.New(http.StatusNotFound, "Email not found", err)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Email sent", Success: true})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in models.ResetPasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), chi.URLParam(r, "resetToken"), in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Password reset successful", Success: true})
}

// loginError: неизвестный e-mail на входе — 401, а не 404.
func loginError(err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return apierrors.New(http.StatusUnauthorized, "Email not found", err)
	}

	return err
}
