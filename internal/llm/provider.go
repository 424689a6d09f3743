// Package llm содержит клиенты языковых моделей с поддержкой вызова
// инструментов (OpenAI Chat Completions и Anthropic Messages).
package llm

import (
	"context"
	"encoding/json"
)

// Роли сообщений транскрипта.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolChoice политика вызова инструментов.
type ToolChoice string

const (
	// ToolChoiceAuto модель сама решает, вызывать ли инструменты.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceRequired модель обязана вызвать хотя бы один инструмент.
	ToolChoiceRequired ToolChoice = "required"
	// ToolChoiceNone инструменты не передаются модели вовсе.
	ToolChoiceNone ToolChoice = "none"
)

// Message сообщение транскрипта.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // для assistant
	ToolCallID string     `json:"tool_call_id,omitempty"` // для tool
	ToolName   string     `json:"tool_name,omitempty"`    // для tool
	IsError    bool       `json:"is_error,omitempty"`     // для tool
}

// ToolCall вызов инструмента, запрошенный моделью.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Property описание одного параметра инструмента.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Schema JSON Schema параметров инструмента.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Tool объявление инструмента для модели.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// ChatRequest запрос к модели. При ToolChoiceNone поле Tools игнорируется
// и инструменты в запрос не попадают.
type ChatRequest struct {
	System     string
	Messages   []Message
	Tools      []Tool
	ToolChoice ToolChoice
	MaxTokens  int
}

// ChatResponse ответ модели: текст, вызовы инструментов или оба.
type ChatResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Provider клиент языковой модели.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// toolsFor возвращает инструменты, которые нужно отправить модели.
func toolsFor(req ChatRequest) []Tool {
	if req.ToolChoice == ToolChoiceNone {
		return nil
	}
	return req.Tools
}
