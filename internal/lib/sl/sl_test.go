package sl_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)

	assert.NotPanics(t, func() {
		assert.Equal(t, "", sl.Err(nil).Value.String())
	})
}

func TestKind(t *testing.T) {
	err := fmt.Errorf("llm.Chat: %w", apperr.ErrUpstream)
	attr := sl.Kind(err)
	assert.Equal(t, "error_kind", attr.Key)
	assert.Equal(t, "upstream", attr.Value.String())
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	log := sl.Setup("local", &buf)
	log.Debug("debug line")
	assert.Contains(t, buf.String(), "level=DEBUG")

	buf.Reset()
	log = sl.Setup("prod", &buf)
	log.Debug("hidden")
	log.Info("visible", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}
