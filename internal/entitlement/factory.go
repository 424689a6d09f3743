package entitlement

import (
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Factory выдаёт новый адаптер на каждую операцию движка.
type Factory struct {
	native BillingClient
	web    BillingClient
	store  Store
	log    *slog.Logger
}

// NewFactory создаёт фабрику адаптеров. Клиенты могут быть не настроены:
// это обнаружится при Initialize.
func NewFactory(native, web BillingClient, store Store, log *slog.Logger) *Factory {
	return &Factory{native: native, web: web, store: store, log: log}
}

// For возвращает новый адаптер платформы.
func (f *Factory) For(platform models.Platform) (*Adapter, error) {
	switch platform {
	case models.PlatformNative:
		return NewNative(f.native, f.store, f.log), nil
	case models.PlatformWeb:
		return NewWeb(f.web, f.store, f.log), nil
	default:
		return nil, fmt.Errorf("entitlement.Factory.For: %w: unknown platform %q", apperr.ErrValidation, platform)
	}
}
