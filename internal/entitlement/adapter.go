// Package entitlement содержит адаптеры платформ (native и web), которые
// читают права пользователя у биллинг-провайдера и синхронизируют их
// в хранилище записей о доступе.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// BillingClient источник активных прав одной платформы.
type BillingClient interface {
	Configured() bool
	ActiveEntitlements(ctx context.Context, appUserID string) ([]models.ActiveEntitlement, error)
}

// PurchaseRestorer биллинг-клиент, умеющий привязать чек магазина к пользователю.
type PurchaseRestorer interface {
	RestorePurchases(ctx context.Context, appUserID, receipt string) error
}

// Store хранилище записей о доступе.
type Store interface {
	UpsertEntitlement(ctx context.Context, rec models.EntitlementRecord) (*models.EntitlementRecord, error)
	ListEntitlementsByUser(ctx context.Context, userID string) ([]models.EntitlementRecord, error)
}

// Adapter адаптер одной платформы. Экземпляр привязан к одному пользователю
// после Initialize; создавайте новый адаптер на каждый запрос.
type Adapter struct {
	platform models.Platform
	client   BillingClient
	store    Store
	log      *slog.Logger

	mu          sync.Mutex
	userID      string
	initialized bool
}

// New создаёт адаптер платформы platform.
func New(platform models.Platform, client BillingClient, store Store, log *slog.Logger) *Adapter {
	return &Adapter{
		platform: platform,
		client:   client,
		store:    store,
		log:      log.With(slog.String("platform", string(platform))),
	}
}

// NewNative адаптер нативных магазинов.
func NewNative(client BillingClient, store Store, log *slog.Logger) *Adapter {
	return New(models.PlatformNative, client, store, log)
}

// NewWeb адаптер веб-биллинга.
func NewWeb(client BillingClient, store Store, log *slog.Logger) *Adapter {
	return New(models.PlatformWeb, client, store, log)
}

// Platform возвращает платформу адаптера.
func (a *Adapter) Platform() models.Platform {
	return a.platform
}

// Initialize привязывает адаптер к пользователю. Повторный вызов с тем же
// userID ничего не делает, с другим переключает адаптер. Ошибку возвращает
// только отсутствие ключа биллинга (apperr.ErrConfiguration); прочие сбои
// оставляют адаптер неинициализированным без ошибки.
func (a *Adapter) Initialize(ctx context.Context, userID string) error {
	const op = "entitlement.Adapter.Initialize"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil || !a.client.Configured() {
		a.initialized = false
		return fmt.Errorf("%s: %w: %s billing key is not set", op, apperr.ErrConfiguration, a.platform)
	}
	if userID == "" {
		a.log.Warn("initialize without user id, adapter stays uninitialized")
		a.initialized = false
		return nil
	}
	if err := ctx.Err(); err != nil {
		a.log.Warn("initialize cancelled", sl.Err(err))
		a.initialized = false
		return nil
	}
	if a.initialized && a.userID == userID {
		return nil
	}

	a.userID = userID
	a.initialized = true
	return nil
}

func (a *Adapter) current() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID, a.initialized
}

// QueryActiveEntitlements возвращает id активных прав. При любой ошибке
// результат пустой непустой срез; ошибка только для диагностики.
func (a *Adapter) QueryActiveEntitlements(ctx context.Context) ([]string, error) {
	ents, err := a.activeEntitlements(ctx)
	ids := make([]string, 0, len(ents))
	for _, e := range ents {
		ids = append(ids, e.EntitlementID)
	}
	return ids, err
}

func (a *Adapter) activeEntitlements(ctx context.Context) ([]models.ActiveEntitlement, error) {
	const op = "entitlement.Adapter.activeEntitlements"

	userID, ok := a.current()
	if !ok {
		return nil, fmt.Errorf("%s: adapter is not initialized", op)
	}
	ents, err := a.client.ActiveEntitlements(ctx, userID)
	if err != nil {
		a.log.Warn("failed to query active entitlements", slog.String("user_id", userID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ents, nil
}

// RestorePurchases передаёт чек провайдеру, если он это поддерживает.
func (a *Adapter) RestorePurchases(ctx context.Context, receipt string) error {
	const op = "entitlement.Adapter.RestorePurchases"

	userID, ok := a.current()
	if !ok {
		return fmt.Errorf("%s: adapter is not initialized", op)
	}
	restorer, ok := a.client.(PurchaseRestorer)
	if !ok || receipt == "" {
		return nil
	}
	if err := restorer.RestorePurchases(ctx, userID, receipt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SyncToEntitlementStore сохраняет текущее состояние платформы. Активное
// право записывается всегда. Неактивное только понижает существующую
// собственную (не связанную) запись платформы: новых неактивных записей
// не создаётся, связанные записи не трогаются. Без инициализации ничего
// не делает.
func (a *Adapter) SyncToEntitlementStore(ctx context.Context) error {
	const op = "entitlement.Adapter.SyncToEntitlementStore"

	userID, ok := a.current()
	if !ok {
		return nil
	}
	ents, err := a.activeEntitlements(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(ents) > 0 {
		best := pickLongest(ents)
		rec := models.EntitlementRecord{
			UserID:        userID,
			Platform:      a.platform,
			IsActive:      true,
			ProductID:     strPtr(best.ProductID),
			EntitlementID: strPtr(best.EntitlementID),
			ExpiresAt:     best.ExpiresAt,
			WillRenew:     best.WillRenew,
		}
		if _, err := a.store.UpsertEntitlement(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		a.log.Info("entitlement synced", slog.String("user_id", userID), slog.String("entitlement", best.EntitlementID))
		return nil
	}

	records, err := a.store.ListEntitlementsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, rec := range records {
		if rec.Platform != a.platform || rec.LinkedFromPlatform != nil || !rec.IsActive {
			continue
		}
		rec.IsActive = false
		rec.WillRenew = false
		if _, err := a.store.UpsertEntitlement(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		a.log.Info("entitlement downgraded", slog.String("user_id", userID))
	}
	return nil
}

// pickLongest выбирает право с самым поздним окончанием; бессрочное побеждает.
func pickLongest(ents []models.ActiveEntitlement) models.ActiveEntitlement {
	best := ents[0]
	for _, e := range ents[1:] {
		if best.ExpiresAt == nil {
			break
		}
		if e.ExpiresAt == nil || e.ExpiresAt.After(*best.ExpiresAt) {
			best = e
		}
	}
	return best
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
