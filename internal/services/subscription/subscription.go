// Package subscription реализует движок согласования подписок: единое решение
// о доступе пользователя поверх двух платформ биллинга (native и web),
// которые не могут проверить покупки друг друга.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Reason причина решения о доступе.
type Reason string

const (
	// ReasonActiveRecord есть действующая запись в хранилище.
	ReasonActiveRecord Reason = "active_record"
	// ReasonNativeRecord есть нативная запись, пусть и неактивная.
	ReasonNativeRecord Reason = "native_record"
	// ReasonLiveEntitlement записей нет, но биллинг платформы сообщил о праве.
	ReasonLiveEntitlement Reason = "live_entitlement"
	// ReasonNoEntitlement все источники ответили, права нет.
	ReasonNoEntitlement Reason = "no_entitlement"
	// ReasonUnavailable права не найдено, но часть источников была недоступна.
	ReasonUnavailable Reason = "unavailable"
)

// Decision внутренний результат проверки доступа.
type Decision struct {
	Granted bool
	Reason  Reason
}

// EntitlementStore хранилище записей о доступе.
type EntitlementStore interface {
	UpsertEntitlement(ctx context.Context, rec models.EntitlementRecord) (*models.EntitlementRecord, error)
	ListEntitlementsByUser(ctx context.Context, userID string) ([]models.EntitlementRecord, error)
}

// PlatformAdapter адаптер биллинга одной платформы.
type PlatformAdapter interface {
	Initialize(ctx context.Context, userID string) error
	QueryActiveEntitlements(ctx context.Context) ([]string, error)
	SyncToEntitlementStore(ctx context.Context) error
	RestorePurchases(ctx context.Context, receipt string) error
}

// AdapterFactory создаёт новый адаптер платформы на одну операцию.
type AdapterFactory func(platform models.Platform) (PlatformAdapter, error)

// Engine движок согласования. Не хранит состояния между вызовами.
type Engine struct {
	store    EntitlementStore
	adapters AdapterFactory
	log      *slog.Logger
}

// NewEngine создаёт движок согласования.
func NewEngine(store EntitlementStore, adapters AdapterFactory, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		adapters: adapters,
		log:      log,
	}
}

// CheckAccess отвечает, есть ли у пользователя доступ. Ошибка только для
// пустого userID (apperr.ErrUnauthorized) или неизвестной платформы.
func (e *Engine) CheckAccess(ctx context.Context, userID string, platform models.Platform) (bool, error) {
	d, err := e.Decide(ctx, userID, platform)
	if err != nil {
		return false, err
	}
	return d.Granted, nil
}

// Decide выполняет проверку доступа: сначала хранилище, затем нативная
// запись, затем живой запрос к биллингу текущей платформы.
func (e *Engine) Decide(ctx context.Context, userID string, platform models.Platform) (Decision, error) {
	const op = "subscription.Engine.Decide"
	if err := validateCaller(userID, platform); err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	log := e.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("platform", string(platform)))

	records, storeErr := e.store.ListEntitlementsByUser(ctx, userID)
	if storeErr != nil {
		metrics.SourceFailures.WithLabelValues("store", string(platform)).Inc()
		log.Warn("entitlement store unavailable", sl.Err(storeErr))
	}
	if d, ok := e.fromRecords(records); ok {
		return e.record(d), nil
	}
	if len(records) > 0 {
		return e.record(Decision{Granted: false, Reason: ReasonNoEntitlement}), nil
	}

	granted, liveErr := e.liveCheck(ctx, log, userID, platform)
	if granted {
		return e.record(Decision{Granted: true, Reason: ReasonLiveEntitlement}), nil
	}
	if storeErr != nil || liveErr != nil {
		return e.record(Decision{Granted: false, Reason: ReasonUnavailable}), nil
	}
	return e.record(Decision{Granted: false, Reason: ReasonNoEntitlement}), nil
}

// RefreshAccess восстанавливает покупки (native, если передан чек) или
// пересинхронизирует состояние (web), выполняет проход связывания и
// возвращает результат проверки по хранилищу.
func (e *Engine) RefreshAccess(ctx context.Context, userID string, platform models.Platform, receipt string) (bool, error) {
	d, err := e.Refresh(ctx, userID, platform, receipt)
	if err != nil {
		return false, err
	}
	return d.Granted, nil
}

// Refresh как RefreshAccess, но возвращает решение с причиной.
func (e *Engine) Refresh(ctx context.Context, userID string, platform models.Platform, receipt string) (Decision, error) {
	const op = "subscription.Engine.Refresh"
	if err := validateCaller(userID, platform); err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	log := e.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("platform", string(platform)))

	if adapter, ok := e.initAdapter(ctx, log, userID, platform); ok {
		if platform == models.PlatformNative {
			if err := adapter.RestorePurchases(ctx, receipt); err != nil {
				metrics.SourceFailures.WithLabelValues("restore", string(platform)).Inc()
				log.Warn("restore purchases failed", sl.Err(err))
			}
		}
		if err := adapter.SyncToEntitlementStore(ctx); err != nil {
			metrics.SourceFailures.WithLabelValues("sync", string(platform)).Inc()
			log.Warn("sync failed", sl.Err(err))
		}
	}

	if err := e.Reconcile(ctx, userID); err != nil {
		log.Warn("link pass failed", sl.Err(err))
	}

	records, err := e.store.ListEntitlementsByUser(ctx, userID)
	if err != nil {
		metrics.SourceFailures.WithLabelValues("store", string(platform)).Inc()
		log.Warn("entitlement store unavailable", sl.Err(err))
		return e.record(Decision{Granted: false, Reason: ReasonUnavailable}), nil
	}
	if d, ok := e.fromRecords(records); ok {
		return e.record(d), nil
	}
	return e.record(Decision{Granted: false, Reason: ReasonNoEntitlement}), nil
}

// Reconcile проход связывания: переносит состояние, наблюдённое на одной
// платформе, на другую. Повторный запуск без изменений ничего не пишет.
func (e *Engine) Reconcile(ctx context.Context, userID string) error {
	const op = "subscription.Engine.Reconcile"
	if userID == "" {
		return fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}

	records, err := e.store.ListEntitlementsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, want := range planLinks(records) {
		if _, err := e.store.UpsertEntitlement(ctx, want); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		metrics.LinkWrites.WithLabelValues(string(want.Platform)).Inc()
		e.log.Info("linked entitlement record",
			slog.String("op", op),
			slog.String("user_id", userID),
			slog.String("platform", string(want.Platform)),
			slog.Bool("is_active", want.IsActive))
	}
	return nil
}

// planLinks вычисляет записи, которые нужно записать проходом связывания.
// Источником служит только запись, наблюдённая напрямую; связанная копия
// повторяет своё исходное состояние.
func planLinks(records []models.EntitlementRecord) []models.EntitlementRecord {
	var native, web *models.EntitlementRecord
	for i := range records {
		switch records[i].Platform {
		case models.PlatformNative:
			native = &records[i]
		case models.PlatformWeb:
			web = &records[i]
		}
	}

	var out []models.EntitlementRecord
	if native != nil && native.LinkedFromPlatform == nil {
		if web == nil || !web.IsActive || web.LinkedFromPlatform != nil {
			if want := linkedCopy(*native, models.PlatformWeb); web == nil || !web.SameState(want) {
				out = append(out, want)
			}
		}
	}
	if web != nil && web.LinkedFromPlatform == nil {
		mirror := native != nil && native.LinkedFromPlatform != nil
		if (native == nil && web.IsActive) || mirror {
			if want := linkedCopy(*web, models.PlatformNative); native == nil || !native.SameState(want) {
				out = append(out, want)
			}
		}
	}
	return out
}

func linkedCopy(src models.EntitlementRecord, target models.Platform) models.EntitlementRecord {
	from := src.Platform
	return models.EntitlementRecord{
		UserID:             src.UserID,
		Platform:           target,
		IsActive:           src.IsActive,
		ProductID:          src.ProductID,
		EntitlementID:      src.EntitlementID,
		ExpiresAt:          src.ExpiresAt,
		WillRenew:          src.WillRenew,
		LinkedFromPlatform: &from,
	}
}

// fromRecords шаги 1-2: любая запись с IsActive, затем любая нативная запись.
// Срок действия здесь не проверяется: истёкшие записи снимает сверка.
func (e *Engine) fromRecords(records []models.EntitlementRecord) (Decision, bool) {
	for _, r := range records {
		if r.IsActive {
			return Decision{Granted: true, Reason: ReasonActiveRecord}, true
		}
	}
	for _, r := range records {
		if r.Platform == models.PlatformNative {
			return Decision{Granted: true, Reason: ReasonNativeRecord}, true
		}
	}
	return Decision{}, false
}

// liveCheck шаг 3: запрос к биллингу платформы вызывающего и синхронизация.
func (e *Engine) liveCheck(ctx context.Context, log *slog.Logger, userID string, platform models.Platform) (bool, error) {
	adapter, ok := e.initAdapter(ctx, log, userID, platform)
	if !ok {
		return false, fmt.Errorf("%s adapter unavailable", platform)
	}
	ids, err := adapter.QueryActiveEntitlements(ctx)
	if err != nil {
		metrics.SourceFailures.WithLabelValues("billing", string(platform)).Inc()
		log.Warn("live entitlement query failed", sl.Err(err))
	}
	if len(ids) == 0 {
		return false, err
	}
	if err := adapter.SyncToEntitlementStore(ctx); err != nil {
		metrics.SourceFailures.WithLabelValues("sync", string(platform)).Inc()
		log.Warn("failed to persist live entitlement", sl.Err(err))
	}
	return true, nil
}

func (e *Engine) initAdapter(ctx context.Context, log *slog.Logger, userID string, platform models.Platform) (PlatformAdapter, bool) {
	adapter, err := e.adapters(platform)
	if err != nil {
		log.Error("failed to build adapter", sl.Err(err), sl.Kind(err))
		return nil, false
	}
	if err := adapter.Initialize(ctx, userID); err != nil {
		log.Error("failed to initialize adapter", sl.Err(err), sl.Kind(err))
		return nil, false
	}
	return adapter, true
}

func (e *Engine) record(d Decision) Decision {
	metrics.AccessDecisions.WithLabelValues(string(d.Reason)).Inc()
	return d
}

func validateCaller(userID string, platform models.Platform) error {
	if userID == "" {
		return apperr.ErrUnauthorized
	}
	if !platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", apperr.ErrValidation, platform)
	}
	return nil
}
