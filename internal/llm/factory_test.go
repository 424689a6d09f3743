package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

func TestNewFromConfig(t *testing.T) {
	p, err := NewFromConfig(config.LLM{Provider: "openai", APIKey: "sk", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewFromConfig(config.LLM{Provider: "anthropic", APIKey: "sk-ant", Model: "claude-sonnet-4-5"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = NewFromConfig(config.LLM{Provider: "openai"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = NewFromConfig(config.LLM{Provider: "mystery", APIKey: "k"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestUnconfigured(t *testing.T) {
	_, cfgErr := NewFromConfig(config.LLM{Provider: "anthropic"})
	p := Unconfigured(cfgErr)

	_, err := p.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Equal(t, "unconfigured", p.Name())
}
