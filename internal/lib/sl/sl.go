// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import (
	"log/slog"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

// Err возвращает атрибут "error" с текстом ошибки.
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Kind возвращает атрибут "error_kind" с классом ошибки из apperr.
func Kind(err error) slog.Attr {
	return slog.String("error_kind", apperr.Kind(err))
}
