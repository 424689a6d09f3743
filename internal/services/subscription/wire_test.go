package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

func TestNewEngineFromConfig_Unconfigured(t *testing.T) {
	active := models.EntitlementRecord{UserID: "u1", Platform: models.PlatformWeb, IsActive: true}
	store := newMemStore(active)
	e := NewEngineFromConfig(&config.Config{}, store, noopLogger())

	d, err := e.Decide(context.Background(), "u1", models.PlatformNative)
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, ReasonActiveRecord, d.Reason)

	d, err = e.Decide(context.Background(), "u2", models.PlatformNative)
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonUnavailable, d.Reason)
}
