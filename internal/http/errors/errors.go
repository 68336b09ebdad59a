// errors стандартизирует ответы об ошибках HTTP-слоя auth-service.
// На вход принимает доменную ошибку сервиса, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Хендлер может задать статус и текст явно через New: такая ошибка
// имеет приоритет над таблицей сентинелов.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/propertia-auth/internal/service"
)

// StatusClientClosedRequest — нестандартный код «клиент закрыл соединение».
const StatusClientClosedRequest = 499

// MsgServerError — текст для любых внутренних ошибок.
const MsgServerError = "Server error"

// ErrBadRequest — тело запроса не разобрано.
var ErrBadRequest = errors.New("bad request")

// ErrorResponse — единый формат ответа об ошибке.
// RequestID прокидывается из X-Request-Id для привязки баг-репортов.
type ErrorResponse struct {
	Message   string `json:"message"`
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
}

// Error — ошибка с явно заданным статусом и сообщением.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New оборачивает err в ответ с заданным статусом и текстом.
func New(status int, message string, err error) error {
	return &Error{Status: status, Message: message, Err: err}
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело.
// err == nil — программная ошибка вызова: 500, чтобы не маскировать баг.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{Message: MsgServerError}
	}

	var explicit *Error
	if errors.As(err, &explicit) {
		return explicit.Status, ErrorResponse{Message: explicit.Message}
	}

	status, msg := fromDomain(err)
	return status, ErrorResponse{Message: msg}
}

// WriteError пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromDomain — таблица сентинелов сервиса:
//   - ошибки ввода -> 400
//   - неверные учётные данные -> 401
//   - ErrNotAdmin -> 403
//   - ErrNotFound -> 404
//   - ErrEmailTaken -> 409
//   - отмена/таймаут -> 499/504
//   - прочее -> 500
func fromDomain(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email"
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, "Name is required"
	case errors.Is(err, service.ErrEmptyPassword), errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be 8 to 72 characters long"
	case errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, service.ErrBadPassword):
		return http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrNotAdmin):
		return http.StatusForbidden, "Administrator account required"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "Request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, MsgServerError
	}
}
