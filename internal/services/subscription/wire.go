package subscription

import (
	"log/slog"

	"github.com/magabrotheeeer/contractor-assistant/internal/billing/revenuecat"
	"github.com/magabrotheeeer/contractor-assistant/internal/billing/stripebilling"
	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/entitlement"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// NewEngineFromConfig собирает движок с адаптерами обеих платформ. Веб-биллинг
// идёт через Stripe, если он включён, иначе через веб-ключ RevenueCat.
func NewEngineFromConfig(cfg *config.Config, store EntitlementStore, log *slog.Logger) *Engine {
	native := revenuecat.NewNativeClient(cfg.RevenueCatBaseURL, cfg.NativeAPIKey, cfg.RevenueCatTimeout)
	var web entitlement.BillingClient = revenuecat.NewWebClient(cfg.RevenueCatBaseURL, cfg.WebAPIKey, cfg.RevenueCatTimeout)
	if cfg.StripeEnabled {
		web = stripebilling.NewClient(cfg.StripeSecretKey, cfg.StripeEntitlement)
	}
	factory := entitlement.NewFactory(native, web, store, log)

	return NewEngine(store, func(p models.Platform) (PlatformAdapter, error) {
		a, err := factory.For(p)
		if err != nil {
			return nil, err
		}
		return a, nil
	}, log)
}
