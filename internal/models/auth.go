// Входные/выходные модели REST API auth-service.
package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// UserSummary — короткая карточка пользователя в ответе на вход.
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
	Success bool        `json:"success"`
}

// MessageResponse — ответ {message, success}.
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}
