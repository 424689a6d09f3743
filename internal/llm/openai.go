package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient клиент OpenAI Chat Completions.
type OpenAIClient struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewOpenAIClient создаёт клиент OpenAI. Пустой baseURL означает api.openai.com.
func NewOpenAIClient(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = openaiAPIURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name возвращает имя провайдера.
func (c *OpenAIClient) Name() string {
	return "openai"
}

type openaiRequest struct {
	Model      string          `json:"model"`
	Messages   []openaiMessage `json:"messages"`
	MaxTokens  int             `json:"max_tokens,omitempty"`
	Tools      []openaiTool    `json:"tools,omitempty"`
	ToolChoice string          `json:"tool_choice,omitempty"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiTool struct {
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Schema `json:"parameters"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat отправляет запрос в OpenAI. Любой сбой транспорта или ответ не 200
// оборачивает apperr.ErrUpstream.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	const op = "llm.OpenAIClient.Chat"

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: request failed: %w", op, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response: %w", op, apperr.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp openaiError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%s: %w: API error (%d): %s", op, apperr.ErrUpstream, resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%s: %w: API error (%d)", op, apperr.ErrUpstream, resp.StatusCode)
	}

	var out openaiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%s: %w: failed to parse response: %w", op, apperr.ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w: no response choices returned", op, apperr.ErrUpstream)
	}

	choice := out.Choices[0]
	result := &ChatResponse{StopReason: choice.FinishReason}
	if choice.Message.Content != nil {
		result.Text = strings.TrimSpace(*choice.Message.Content)
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(strings.TrimSpace(tc.Function.Arguments)) == 0 {
			args = json.RawMessage("{}")
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

func (c *OpenAIClient) buildRequest(req ChatRequest) openaiRequest {
	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: strPtr(req.System)})
	}
	for _, m := range req.Messages {
		msg := openaiMessage{Role: m.Role, Content: strPtr(m.Content)}
		switch m.Role {
		case RoleAssistant:
			if len(m.ToolCalls) > 0 && m.Content == "" {
				msg.Content = nil
			}
			for _, tc := range m.ToolCalls {
				var call openaiToolCall
				call.ID = tc.ID
				call.Type = "function"
				call.Function.Name = tc.Name
				call.Function.Arguments = string(tc.Arguments)
				msg.ToolCalls = append(msg.ToolCalls, call)
			}
		case RoleTool:
			msg.ToolCallID = m.ToolCallID
		}
		messages = append(messages, msg)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	out := openaiRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	for _, t := range toolsFor(req) {
		out.Tools = append(out.Tools, openaiTool{
			Type:     "function",
			Function: openaiFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = string(req.ToolChoice)
		if out.ToolChoice == "" {
			out.ToolChoice = string(ToolChoiceAuto)
		}
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
