package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/service"
)

// AuthService — операции сервиса, нужные REST-слою (реализуется *service.Service).
type AuthService interface {
	LoginUser(ctx context.Context, email, password string) (*service.AuthResult, error)
	RegisterUser(ctx context.Context, name, email, password string) (*service.AuthResult, error)
	AdminLogin(ctx context.Context, email, password string) (*service.AuthResult, error)
	Verify(ctx context.Context, raw string) (service.Verdict, error)
	Logout(ctx context.Context, raw string)
	FetchIdentity(ctx context.Context, subjectID string) (*models.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
}

// Handlers агрегирует зависимости REST-эндпойнтов.
type Handlers struct {
	Auth AuthService
}

func New(svc AuthService) *Handlers {
	return &Handlers{Auth: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func authResponse(res *service.AuthResult) models.AuthResponse {
	return models.AuthResponse{Token: res.Token, User: res.User, Success: true}
}
