// Package apperr содержит классы ошибок приложения.
//
// Ошибки конкретных операций оборачивают один из этих маркеров через
// fmt.Errorf("...: %w", apperr.ErrX), а вызывающая сторона классифицирует
// их через errors.Is.
package apperr

import "errors"

var (
	// ErrConfiguration фатальная ошибка конфигурации (например, нет API-ключа).
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream внешний сервис (LLM, биллинг, хранилище) недоступен или ответил ошибкой.
	ErrUpstream = errors.New("upstream service error")
	// ErrToolExecution ошибка выполнения одного вызова инструмента.
	ErrToolExecution = errors.New("tool execution error")
	// ErrValidation некорректные входные данные, исправимые вызывающей стороной.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized нет подтверждённой личности вызывающего.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound запрошенная сущность не найдена.
	ErrNotFound = errors.New("not found")
)

// Kind возвращает короткое имя класса ошибки для логов и ответов.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUnauthorized):
		return "authorization"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrToolExecution):
		return "tool_execution"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
