// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку сервисного слоя (сентинелы пакета service),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткий стабильный машинный код для фронта;
//   - безопасное message без утечки деталей.
//
// Источник истинности по маппингу: комментарии к сентинелам в пакете service.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-account-service/internal/service"
)

// ErrBadRequest — нечитаемое тело запроса или неизвестные поля.
// Транспорт: HTTP 400.
var ErrBadRequest = errors.New("bad request")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и унифицированный
// ответ для фронта.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - неизвестная ошибка — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — маппинг сентинелов service -> HTTP/FE-код/сообщение.
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "incorrect email or password"
	case errors.Is(err, service.ErrInactiveAccount):
		return http.StatusUnauthorized, "inactive_account", "inactive account"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case errors.Is(err, service.ErrTokenReused):
		return http.StatusUnauthorized, "token_reused", "token has been revoked"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated", "could not validate credentials"
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied", "not enough privileges"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "not_found", "user not found"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "already_exists", "already exists"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, please try later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
