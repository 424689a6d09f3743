package revenuecat

import (
	"slices"
	"strings"

	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// PlatformForStore относит магазин из вебхука к платформе. Для неизвестного
// магазина возвращается пустая платформа.
func PlatformForStore(store string) models.Platform {
	s := strings.ToLower(strings.TrimSpace(store))
	switch {
	case slices.Contains(NativeStores, s):
		return models.PlatformNative
	case slices.Contains(WebStores, s):
		return models.PlatformWeb
	default:
		return ""
	}
}

// UserID возвращает app_user_id события; анонимные id RevenueCat
// ($RCAnonymousID) пропускаются в пользу первого неанонимного алиаса.
func (e WebhookEvent) UserID() string {
	if id := e.Event.AppUserID; id != "" && !isAnonymous(id) {
		return id
	}
	for _, alias := range e.Event.Aliases {
		if alias != "" && !isAnonymous(alias) {
			return alias
		}
	}
	return ""
}

func isAnonymous(id string) bool {
	return strings.HasPrefix(id, "$RCAnonymousID:")
}
