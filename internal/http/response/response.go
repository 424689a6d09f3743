// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"net/http"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/validate"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status статус запроса ("OK" или "Error").
// Поле Error текст ошибки (опционально, при неуспехе).
// Поле Data данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// UpstreamApology текст для пользователя при недоступности внешнего сервиса.
const UpstreamApology = "Sorry, I couldn't reach the assistant service just now. Please try again in a moment."

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
func ValidationError(err error) ErrorResponse {
	return Error(validate.Message(err))
}

// FromError подбирает HTTP-статус и безопасный текст по классу ошибки.
// Внутренние подробности наружу не отдаются.
func FromError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, Error("unauthorized")
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, Error(validationText(err))
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, Error("not found")
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusServiceUnavailable, Error("service is not configured")
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway, Error(UpstreamApology)
	default:
		return http.StatusInternalServerError, Error("internal error")
	}
}

// validationText отдаёт текст ошибки валидации без префиксов операций.
func validationText(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.Unwrap(e) == apperr.ErrValidation {
			return e.Error()
		}
	}
	return "invalid request"
}
