package entitlement

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

func TestFactory_For(t *testing.T) {
	native := new(MockBilling)
	web := new(MockBilling)
	native.On("Configured").Return(true)
	web.On("Configured").Return(false)
	f := NewFactory(native, web, newMemStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	a, err := f.For(models.PlatformNative)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformNative, a.Platform())
	assert.NoError(t, a.Initialize(context.Background(), "u1"))

	b, err := f.For(models.PlatformWeb)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformWeb, b.Platform())
	assert.ErrorIs(t, b.Initialize(context.Background(), "u1"), apperr.ErrConfiguration)

	second, err := f.For(models.PlatformNative)
	require.NoError(t, err)
	assert.NotSame(t, a, second)

	_, err = f.For(models.Platform("desktop"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
