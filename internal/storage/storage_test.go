package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/magabrotheeeer/contractor-assistant/internal/migrations"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("contractor_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, migrations.Run(st.DB, "../../migrations"))
	require.NoError(t, st.CheckDatabaseReady(ctx))
	return st
}

func strPtr(s string) *string { return &s }

func TestEntitlements(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	t.Run("upsert creates and replaces per platform", func(t *testing.T) {
		expires := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
		saved, err := st.UpsertEntitlement(ctx, models.EntitlementRecord{
			UserID:        "user-1",
			Platform:      models.PlatformNative,
			IsActive:      true,
			ProductID:     strPtr("pro_monthly"),
			EntitlementID: strPtr("pro"),
			ExpiresAt:     &expires,
			WillRenew:     true,
		})
		require.NoError(t, err)
		assert.True(t, saved.IsActive)
		assert.Nil(t, saved.LinkedFromPlatform)
		require.NotNil(t, saved.ExpiresAt)
		assert.True(t, saved.ExpiresAt.Equal(expires))

		native := models.PlatformNative
		_, err = st.UpsertEntitlement(ctx, models.EntitlementRecord{
			UserID:             "user-1",
			Platform:           models.PlatformWeb,
			IsActive:           true,
			EntitlementID:      strPtr("pro"),
			LinkedFromPlatform: &native,
		})
		require.NoError(t, err)

		_, err = st.UpsertEntitlement(ctx, models.EntitlementRecord{
			UserID:   "user-1",
			Platform: models.PlatformNative,
			IsActive: false,
		})
		require.NoError(t, err)

		records, err := st.ListEntitlementsByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, models.PlatformNative, records[0].Platform)
		assert.False(t, records[0].IsActive)
		assert.Nil(t, records[0].ProductID)
		assert.Equal(t, models.PlatformWeb, records[1].Platform)
		require.NotNil(t, records[1].LinkedFromPlatform)
		assert.Equal(t, models.PlatformNative, *records[1].LinkedFromPlatform)
	})

	t.Run("unknown user has no records", func(t *testing.T) {
		records, err := st.ListEntitlementsByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("expired active records are listed for the sweep", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour).UTC()
		future := time.Now().Add(48 * time.Hour).UTC()
		web := models.PlatformWeb
		for _, rec := range []models.EntitlementRecord{
			{UserID: "sweep-1", Platform: models.PlatformWeb, IsActive: true, ExpiresAt: &past},
			{UserID: "sweep-1", Platform: models.PlatformNative, IsActive: true, ExpiresAt: &past, LinkedFromPlatform: &web},
			{UserID: "sweep-2", Platform: models.PlatformNative, IsActive: true, ExpiresAt: &future},
			{UserID: "sweep-3", Platform: models.PlatformNative, IsActive: false, ExpiresAt: &past},
		} {
			_, err := st.UpsertEntitlement(ctx, rec)
			require.NoError(t, err)
		}

		expired, err := st.ListExpiredEntitlements(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "sweep-1", expired[0].UserID)
		assert.Equal(t, models.PlatformWeb, expired[0].Platform)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := st.ListEntitlementsByUser(cctx, "user-1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestContractorData(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	client, err := st.CreateClient(ctx, models.Client{UserID: "u1", Name: "Jane Smith", Email: "jane@example.com"})
	require.NoError(t, err)
	_, err = st.CreateClient(ctx, models.Client{UserID: "u2", Name: "Jane Other"})
	require.NoError(t, err)

	t.Run("clients are scoped by user", func(t *testing.T) {
		found, err := st.FindClients(ctx, "u1", "jane", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, client.ID, found[0].ID)

		byName, err := st.FindClientByName(ctx, "u1", "jane smith")
		require.NoError(t, err)
		assert.Equal(t, client.ID, byName.ID)

		_, err = st.FindClientByName(ctx, "u1", "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("notes require owned client", func(t *testing.T) {
		_, err := st.AddClientNote(ctx, models.ClientNote{UserID: "u1", ClientID: client.ID, Body: "prefers email"})
		require.NoError(t, err)
		_, err = st.AddClientNote(ctx, models.ClientNote{UserID: "u2", ClientID: client.ID, Body: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("projects and tasks", func(t *testing.T) {
		p, err := st.CreateProject(ctx, models.Project{UserID: "u1", ClientID: &client.ID, ClientName: client.Name, Name: "Kitchen remodel", Budget: 12500})
		require.NoError(t, err)
		assert.Equal(t, "planned", p.Status)

		require.NoError(t, st.UpdateProjectStatus(ctx, "u1", p.ID, "active"))
		assert.ErrorIs(t, st.UpdateProjectStatus(ctx, "u2", p.ID, "done"), ErrNotFound)

		projects, err := st.ListProjects(ctx, "u1", ProjectFilter{Status: "active"})
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.InDelta(t, 12500, projects[0].Budget, 0.001)

		_, err = st.CreateTask(ctx, models.Task{UserID: "u1", ProjectID: p.ID, Title: "Order cabinets"})
		require.NoError(t, err)
		_, err = st.CreateTask(ctx, models.Task{UserID: "u2", ProjectID: p.ID, Title: "Intrude"})
		assert.ErrorIs(t, err, ErrNotFound)

		tasks, err := st.ListTasks(ctx, "u1", p.ID, false)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Order cabinets", tasks[0].Title)
	})

	t.Run("estimates invoices and summary", func(t *testing.T) {
		_, err := st.CreateEstimate(ctx, models.Estimate{UserID: "u1", ClientID: &client.ID, Title: "Deck", Amount: 4200})
		require.NoError(t, err)
		estimates, err := st.ListEstimates(ctx, "u1", "draft", 0)
		require.NoError(t, err)
		require.Len(t, estimates, 1)

		_, err = st.CreateInvoice(ctx, models.Invoice{UserID: "u1", ClientID: &client.ID, Amount: 1000, Status: "paid"})
		require.NoError(t, err)
		_, err = st.CreateInvoice(ctx, models.Invoice{UserID: "u1", ClientID: &client.ID, Amount: 500})
		require.NoError(t, err)
		_, err = st.CreateExpense(ctx, models.Expense{UserID: "u1", Category: "materials", Amount: 300})
		require.NoError(t, err)

		invoices, err := st.ListInvoices(ctx, "u1", "open", 0)
		require.NoError(t, err)
		require.Len(t, invoices, 1)

		now := time.Now()
		sum, err := st.FinancialSummary(ctx, "u1", now.AddDate(0, 0, -2), now.AddDate(0, 0, 2))
		require.NoError(t, err)
		assert.InDelta(t, 1500, sum.Invoiced, 0.001)
		assert.InDelta(t, 1000, sum.Paid, 0.001)
		assert.InDelta(t, 500, sum.Outstanding, 0.001)
		assert.InDelta(t, 300, sum.Expenses, 0.001)
		assert.InDelta(t, 700, sum.NetCashflow, 0.001)
		assert.Equal(t, 1, sum.OpenInvoiceCnt)
	})

	t.Run("finance rows reference only owned projects and clients", func(t *testing.T) {
		p, err := st.CreateProject(ctx, models.Project{UserID: "u1", Name: "Garage"})
		require.NoError(t, err)

		_, err = st.CreateEstimate(ctx, models.Estimate{UserID: "u2", ProjectID: &p.ID, Title: "Steal", Amount: 1})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.CreateEstimate(ctx, models.Estimate{UserID: "u2", ClientID: &client.ID, Title: "Steal", Amount: 1})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.CreateExpense(ctx, models.Expense{UserID: "u2", ProjectID: &p.ID, Category: "fuel", Amount: 1})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.CreateInvoice(ctx, models.Invoice{UserID: "u2", ClientID: &client.ID, Amount: 1})
		assert.ErrorIs(t, err, ErrNotFound)

		exp, err := st.CreateExpense(ctx, models.Expense{UserID: "u1", ProjectID: &p.ID, Category: "concrete", Amount: 80})
		require.NoError(t, err)
		require.NotNil(t, exp.ProjectID)
		assert.Equal(t, p.ID, *exp.ProjectID)

		est, err := st.CreateEstimate(ctx, models.Estimate{UserID: "u1", ProjectID: &p.ID, Title: "Slab", Amount: 2400})
		require.NoError(t, err)
		assert.NotZero(t, est.ID)

		u2Estimates, err := st.ListEstimates(ctx, "u2", "", 0)
		require.NoError(t, err)
		assert.Empty(t, u2Estimates)
	})
}
