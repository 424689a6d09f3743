package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

// AnthropicClient клиент Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient создаёт клиент Anthropic. Пустой baseURL означает api.anthropic.com.
func NewAnthropicClient(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name возвращает имя провайдера.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Chat отправляет запрос в Anthropic. Ошибки API оборачивают apperr.ErrUpstream.
func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	const op = "llm.AnthropicClient.Chat"

	msg, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}

	out := &ChatResponse{StopReason: string(msg.StopReason)}
	var text []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if t := strings.TrimSpace(block.Text); t != "" {
				text = append(text, t)
			}
		case "tool_use":
			args := block.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Text = strings.Join(text, "\n\n")
	return out, nil
}

func (c *AnthropicClient) buildParams(req ChatRequest) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	tools := toolsFor(req)
	for _, t := range tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters.Properties,
					Required:   t.Parameters.Required,
				},
			},
		})
	}
	if len(tools) > 0 {
		if req.ToolChoice == ToolChoiceRequired {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
		params.Messages = structuredMessages(req.Messages)
	} else {
		// Блоки tool_use/tool_result без объявленных инструментов API не принимает.
		params.Messages = flattenedMessages(req.Messages)
	}
	return params
}

// structuredMessages собирает транскрипт с блоками tool_use и tool_result;
// подряд идущие результаты объединяются в одно сообщение пользователя.
func structuredMessages(msgs []Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	flush()
	return out
}

// flattenedMessages переводит вызовы и результаты инструментов в обычный
// текст и склеивает соседние сообщения одной роли.
func flattenedMessages(msgs []Message) []anthropic.MessageParam {
	type turn struct {
		role  string
		parts []string
	}
	var turns []turn
	add := func(role, text string) {
		if text == "" {
			return
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].parts = append(turns[n-1].parts, text)
			return
		}
		turns = append(turns, turn{role: role, parts: []string{text}})
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			add(RoleAssistant, m.Content)
			for _, tc := range m.ToolCalls {
				add(RoleAssistant, fmt.Sprintf("[called %s with %s]", tc.Name, string(tc.Arguments)))
			}
		case RoleTool:
			status := "result"
			if m.IsError {
				status = "error"
			}
			add(RoleUser, fmt.Sprintf("[%s %s: %s]", m.ToolName, status, m.Content))
		default:
			add(RoleUser, m.Content)
		}
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.parts, "\n"))
		if t.role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
