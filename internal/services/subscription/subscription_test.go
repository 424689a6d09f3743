package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]models.EntitlementRecord
	upserts int
	listErr error
}

func newMemStore(recs ...models.EntitlementRecord) *memStore {
	s := &memStore{records: map[string]models.EntitlementRecord{}}
	for _, r := range recs {
		s.records[r.UserID+"/"+string(r.Platform)] = r
	}
	return s
}

func (s *memStore) UpsertEntitlement(_ context.Context, rec models.EntitlementRecord) (*models.EntitlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.records[rec.UserID+"/"+string(rec.Platform)] = rec
	return &rec, nil
}

func (s *memStore) ListEntitlementsByUser(_ context.Context, userID string) ([]models.EntitlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.EntitlementRecord
	for _, p := range []models.Platform{models.PlatformNative, models.PlatformWeb} {
		if r, ok := s.records[userID+"/"+string(p)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) get(userID string, p models.Platform) (models.EntitlementRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID+"/"+string(p)]
	return r, ok
}

// fakeAdapter адаптер с заданным ответом биллинга.
type fakeAdapter struct {
	platform models.Platform
	store    *memStore
	active   []string
	queryErr error
	initErr  error

	userID   string
	queries  int
	restores []string
}

func (a *fakeAdapter) Initialize(_ context.Context, userID string) error {
	if a.initErr != nil {
		return a.initErr
	}
	a.userID = userID
	return nil
}

func (a *fakeAdapter) QueryActiveEntitlements(_ context.Context) ([]string, error) {
	a.queries++
	if a.queryErr != nil {
		return []string{}, a.queryErr
	}
	return a.active, nil
}

func (a *fakeAdapter) SyncToEntitlementStore(ctx context.Context) error {
	if a.queryErr != nil {
		return a.queryErr
	}
	if len(a.active) > 0 {
		ent := a.active[0]
		_, err := a.store.UpsertEntitlement(ctx, models.EntitlementRecord{
			UserID: a.userID, Platform: a.platform, IsActive: true, EntitlementID: &ent,
		})
		return err
	}
	if rec, ok := a.store.get(a.userID, a.platform); ok && rec.LinkedFromPlatform == nil && rec.IsActive {
		rec.IsActive = false
		_, err := a.store.UpsertEntitlement(ctx, rec)
		return err
	}
	return nil
}

func (a *fakeAdapter) RestorePurchases(_ context.Context, receipt string) error {
	a.restores = append(a.restores, receipt)
	return nil
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(store *memStore, adapters map[models.Platform]*fakeAdapter) *Engine {
	return NewEngine(store, func(p models.Platform) (PlatformAdapter, error) {
		a, ok := adapters[p]
		if !ok {
			return nil, errors.New("no adapter")
		}
		return a, nil
	}, noopLogger())
}

func sp(s string) *string { return &s }

func TestCheckAccess_MonotonicTrust(t *testing.T) {
	for _, platform := range []models.Platform{models.PlatformNative, models.PlatformWeb} {
		t.Run(string(platform), func(t *testing.T) {
			store := newMemStore(models.EntitlementRecord{
				UserID: "u1", Platform: platform, IsActive: true, EntitlementID: sp("pro"),
			})
			failing := map[models.Platform]*fakeAdapter{
				models.PlatformNative: {platform: models.PlatformNative, store: store, queryErr: errors.New("sdk down")},
				models.PlatformWeb:    {platform: models.PlatformWeb, store: store, initErr: apperr.ErrConfiguration},
			}
			engine := newTestEngine(store, failing)

			for _, caller := range []models.Platform{models.PlatformNative, models.PlatformWeb} {
				d, err := engine.Decide(context.Background(), "u1", caller)
				require.NoError(t, err)
				assert.True(t, d.Granted)
				assert.Equal(t, ReasonActiveRecord, d.Reason)
			}
			assert.Zero(t, failing[models.PlatformNative].queries)
		})
	}
}

func TestCheckAccess_NativeOverride(t *testing.T) {
	store := newMemStore(models.EntitlementRecord{UserID: "u1", Platform: models.PlatformNative, IsActive: false})
	web := &fakeAdapter{platform: models.PlatformWeb, store: store}
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{models.PlatformWeb: web})

	d, err := engine.Decide(context.Background(), "u1", models.PlatformWeb)
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, ReasonNativeRecord, d.Reason)
	assert.Zero(t, web.queries)
}

func TestCheckAccess_LiveFallback(t *testing.T) {
	store := newMemStore()
	native := &fakeAdapter{platform: models.PlatformNative, store: store, active: []string{"pro"}}
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{models.PlatformNative: native})

	granted, err := engine.CheckAccess(context.Background(), "u1", models.PlatformNative)
	require.NoError(t, err)
	assert.True(t, granted)

	rec, ok := store.get("u1", models.PlatformNative)
	require.True(t, ok)
	assert.True(t, rec.IsActive)

	d, err := engine.Decide(context.Background(), "u1", models.PlatformNative)
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, ReasonActiveRecord, d.Reason)
	assert.Equal(t, 1, native.queries, "second check must be answered from the store")
}

func TestCheckAccess_Denied(t *testing.T) {
	tests := []struct {
		name       string
		store      *memStore
		adapter    *fakeAdapter
		wantReason Reason
	}{
		{
			name:       "все источники ответили",
			store:      newMemStore(),
			adapter:    &fakeAdapter{platform: models.PlatformWeb},
			wantReason: ReasonNoEntitlement,
		},
		{
			name:       "биллинг недоступен",
			store:      newMemStore(),
			adapter:    &fakeAdapter{platform: models.PlatformWeb, queryErr: errors.New("timeout")},
			wantReason: ReasonUnavailable,
		},
		{
			name:       "хранилище недоступно",
			store:      &memStore{records: map[string]models.EntitlementRecord{}, listErr: errors.New("db down")},
			adapter:    &fakeAdapter{platform: models.PlatformWeb},
			wantReason: ReasonUnavailable,
		},
		{
			name: "только неактивная веб-запись",
			store: newMemStore(models.EntitlementRecord{
				UserID: "u1", Platform: models.PlatformWeb, IsActive: false,
			}),
			adapter:    &fakeAdapter{platform: models.PlatformWeb, active: []string{"pro"}},
			wantReason: ReasonNoEntitlement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.adapter.store = tt.store
			engine := newTestEngine(tt.store, map[models.Platform]*fakeAdapter{models.PlatformWeb: tt.adapter})

			d, err := engine.Decide(context.Background(), "u1", models.PlatformWeb)
			require.NoError(t, err)
			assert.False(t, d.Granted)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestCheckAccess_ExpiredActiveRecordStillGrants(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	store := newMemStore(models.EntitlementRecord{
		UserID: "u1", Platform: models.PlatformWeb, IsActive: true, ExpiresAt: &past,
	})
	web := &fakeAdapter{platform: models.PlatformWeb, store: store, queryErr: errors.New("sdk down")}
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{models.PlatformWeb: web})

	d, err := engine.Decide(context.Background(), "u1", models.PlatformWeb)
	require.NoError(t, err)
	assert.True(t, d.Granted, "доступ снимает только сверка, а не чтение")
	assert.Equal(t, ReasonActiveRecord, d.Reason)
	assert.Zero(t, web.queries)
}

func TestCheckAccess_LinkedNativeRecordOverrides(t *testing.T) {
	web := models.PlatformWeb
	store := newMemStore(
		models.EntitlementRecord{UserID: "u1", Platform: models.PlatformNative, IsActive: false, LinkedFromPlatform: &web},
		models.EntitlementRecord{UserID: "u1", Platform: models.PlatformWeb, IsActive: false},
	)
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{
		models.PlatformWeb: {platform: models.PlatformWeb, store: store, queryErr: errors.New("sdk down")},
	})

	granted, err := engine.CheckAccess(context.Background(), "u1", models.PlatformWeb)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestCheckAccess_InvalidCaller(t *testing.T) {
	engine := newTestEngine(newMemStore(), nil)

	_, err := engine.CheckAccess(context.Background(), "", models.PlatformWeb)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = engine.CheckAccess(context.Background(), "u1", models.Platform("desktop"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRefreshAccess_LinksWebToNative(t *testing.T) {
	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	store := newMemStore(models.EntitlementRecord{
		UserID: "u1", Platform: models.PlatformWeb, IsActive: true,
		ProductID: sp("web_monthly"), EntitlementID: sp("pro"), ExpiresAt: &expires, WillRenew: true,
	})
	native := &fakeAdapter{platform: models.PlatformNative, store: store}
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{models.PlatformNative: native})

	granted, err := engine.CheckAccess(context.Background(), "u1", models.PlatformWeb)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = engine.RefreshAccess(context.Background(), "u1", models.PlatformNative, "receipt-1")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, []string{"receipt-1"}, native.restores)

	rec, ok := store.get("u1", models.PlatformNative)
	require.True(t, ok)
	require.NotNil(t, rec.LinkedFromPlatform)
	assert.Equal(t, models.PlatformWeb, *rec.LinkedFromPlatform)
	assert.True(t, rec.IsActive)
	assert.Equal(t, "web_monthly", *rec.ProductID)
	assert.True(t, rec.ExpiresAt.Equal(expires))

	granted, err = engine.CheckAccess(context.Background(), "u1", models.PlatformNative)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestRefreshAccess_WebDoesNotRestore(t *testing.T) {
	store := newMemStore()
	web := &fakeAdapter{platform: models.PlatformWeb, store: store, active: []string{"pro"}}
	engine := newTestEngine(store, map[models.Platform]*fakeAdapter{models.PlatformWeb: web})

	granted, err := engine.RefreshAccess(context.Background(), "u1", models.PlatformWeb, "ignored")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Empty(t, web.restores)

	_, ok := store.get("u1", models.PlatformNative)
	assert.True(t, ok, "active web record should be linked to native")
}

func TestReconcile_Idempotent(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	store := newMemStore(models.EntitlementRecord{
		UserID: "u1", Platform: models.PlatformNative, IsActive: true,
		ProductID: sp("pro_monthly"), EntitlementID: sp("pro"), ExpiresAt: &expires,
	})
	engine := newTestEngine(store, nil)

	require.NoError(t, engine.Reconcile(context.Background(), "u1"))
	first, err := store.ListEntitlementsByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	writes := store.upserts

	require.NoError(t, engine.Reconcile(context.Background(), "u1"))
	second, err := store.ListEntitlementsByUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, writes, store.upserts)
}

func TestReconcile_LinkedCopyFollowsSource(t *testing.T) {
	web := models.PlatformWeb
	store := newMemStore(
		models.EntitlementRecord{UserID: "u1", Platform: models.PlatformWeb, IsActive: false},
		models.EntitlementRecord{UserID: "u1", Platform: models.PlatformNative, IsActive: true, LinkedFromPlatform: &web},
	)
	engine := newTestEngine(store, nil)

	require.NoError(t, engine.Reconcile(context.Background(), "u1"))

	rec, ok := store.get("u1", models.PlatformNative)
	require.True(t, ok)
	assert.False(t, rec.IsActive)

	d, err := engine.Decide(context.Background(), "u1", models.PlatformWeb)
	require.NoError(t, err)
	assert.True(t, d.Granted, "нативная запись есть, пусть и неактивная")
	assert.Equal(t, ReasonNativeRecord, d.Reason)
}

func TestReconcile_Unauthorized(t *testing.T) {
	engine := newTestEngine(newMemStore(), nil)
	assert.ErrorIs(t, engine.Reconcile(context.Background(), ""), apperr.ErrUnauthorized)
}
