package middlewarectx

import (
	"net/http"
	"strings"

	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// PlatformHeader заголовок, в котором клиент сообщает свою платформу.
const PlatformHeader = "X-Client-Platform"

// DetectPlatform определяет платформу по значению заголовка: ios и android
// считаются native, всё остальное web.
func DetectPlatform(header string) models.Platform {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "ios", "android", "native":
		return models.PlatformNative
	default:
		return models.PlatformWeb
	}
}

// PlatformMiddleware кладёт платформу клиента в контекст запроса.
func PlatformMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := DetectPlatform(r.Header.Get(PlatformHeader))
		next.ServeHTTP(w, r.WithContext(WithPlatform(r.Context(), p)))
	})
}
