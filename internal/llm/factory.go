package llm

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

// NewFromConfig создаёт провайдера по настройкам. Отсутствие ключа или
// неизвестный провайдер дают apperr.ErrConfiguration.
func NewFromConfig(cfg config.LLM) (Provider, error) {
	const op = "llm.NewFromConfig"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: %s API key is required", op, apperr.ErrConfiguration, cfg.Provider)
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.LLMBaseURL, cfg.MaxTokens, cfg.LLMTimeout), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.LLMBaseURL, cfg.MaxTokens, cfg.LLMTimeout), nil
	default:
		return nil, fmt.Errorf("%s: %w: unknown provider %q", op, apperr.ErrConfiguration, cfg.Provider)
	}
}

// Unconfigured провайдер-заглушка для запуска без ключа модели: каждый
// вызов возвращает исходную ошибку конфигурации.
func Unconfigured(err error) Provider {
	return unconfigured{err: err}
}

type unconfigured struct {
	err error
}

func (u unconfigured) Chat(context.Context, ChatRequest) (*ChatResponse, error) {
	return nil, u.err
}

func (u unconfigured) Name() string { return "unconfigured" }
