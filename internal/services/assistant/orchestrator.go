// Package assistant реализует цикл диалога с языковой моделью: запрос с
// инструментами персоны, последовательное выполнение вызовов, повторный
// запрос без инструментов для текстового итога.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/llm"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/tools"
)

// TurnResult итог одного цикла диалога.
type TurnResult struct {
	Text            string                  `json:"text"`
	ToolResults     []models.ToolResult     `json:"tool_results"`
	PendingApproval *models.PendingApproval `json:"pending_approval,omitempty"`
}

// Orchestrator управляет циклом диалога.
type Orchestrator struct {
	provider  llm.Provider
	executors map[tools.Kind]ExecutorFunc
	log       *slog.Logger
}

// New создаёт оркестратор. Если у какого-либо инструмента любой персоны нет
// исполнителя, возвращается apperr.ErrConfiguration.
func New(provider llm.Provider, executors map[tools.Kind]ExecutorFunc, log *slog.Logger) (*Orchestrator, error) {
	const op = "assistant.New"
	if provider == nil {
		return nil, fmt.Errorf("%s: %w: no language model provider", op, apperr.ErrConfiguration)
	}
	for _, p := range tools.Personas() {
		reg, err := tools.For(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, kind := range reg.Kinds() {
			if executors[kind] == nil {
				return nil, fmt.Errorf("%s: %w: tool %q of persona %s has no executor", op, apperr.ErrConfiguration, kind, p)
			}
		}
	}
	return &Orchestrator{provider: provider, executors: executors, log: log}, nil
}

// RunTurn выполняет один цикл диалога для userID. Ошибки отдельных
// инструментов попадают в ToolResults; ошибка модели прерывает цикл.
func (o *Orchestrator) RunTurn(ctx context.Context, userID string, persona tools.Persona, transcript []models.Turn) (*TurnResult, error) {
	const op = "assistant.RunTurn"
	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	reg, err := tools.For(persona)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	messages, err := buildMessages(transcript)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log := o.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("persona", string(persona)))

	first, err := o.chat(ctx, "initial", llm.ChatRequest{
		System:     reg.SystemPrompt(),
		Messages:   messages,
		Tools:      reg.LLMTools(),
		ToolChoice: reg.ToolChoice(),
	})
	if err != nil {
		log.Error("language model request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &TurnResult{Text: first.Text, ToolResults: []models.ToolResult{}}
	if len(first.ToolCalls) == 0 {
		return result, nil
	}

	toolMessages := make([]llm.Message, 0, len(first.ToolCalls))
	for _, call := range first.ToolCalls {
		res, pending := o.execute(ctx, userID, reg, call)
		if pending != nil {
			result.PendingApproval = pending
		}
		result.ToolResults = append(result.ToolResults, res)
		toolMessages = append(toolMessages, resultMessage(res))
		log.Info("tool executed", slog.String("tool", res.Name), slog.Bool("ok", res.OK))
	}

	if result.Text != "" {
		return result, nil
	}

	followUp := append(slices.Clone(messages), llm.Message{Role: llm.RoleAssistant, ToolCalls: first.ToolCalls})
	followUp = append(followUp, toolMessages...)
	second, err := o.chat(ctx, "follow_up", llm.ChatRequest{
		System:     reg.SystemPrompt(),
		Messages:   followUp,
		ToolChoice: llm.ToolChoiceNone,
	})
	if err != nil {
		log.Error("follow-up language model request failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Text = second.Text
	if result.Text == "" {
		result.Text = fallbackSummary(result.ToolResults)
	}
	return result, nil
}

func (o *Orchestrator) chat(ctx context.Context, phase string, req llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := o.provider.Chat(ctx, req)
	metrics.LLMDuration.WithLabelValues(o.provider.Name(), phase).Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, apperr.ErrUpstream) && !errors.Is(err, apperr.ErrConfiguration) {
			err = fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
		}
		return nil, err
	}
	return resp, nil
}

// execute выполняет один вызов. Любая ошибка превращается в неуспешный
// результат и не затрагивает соседние вызовы.
func (o *Orchestrator) execute(ctx context.Context, userID string, reg *tools.Registry, call llm.ToolCall) (models.ToolResult, *models.PendingApproval) {
	res := models.ToolResult{CallID: call.ID, Name: call.Name}

	cmd, err := decode(reg, call)
	if err != nil {
		return o.failed(reg, res, err), nil
	}
	if err := ctx.Err(); err != nil {
		return o.failed(reg, res, fmt.Errorf("%w: %w", apperr.ErrToolExecution, err)), nil
	}

	data, err := o.runExecutor(ctx, userID, cmd)
	if err != nil {
		if !errors.Is(err, apperr.ErrToolExecution) && !errors.Is(err, apperr.ErrValidation) {
			err = fmt.Errorf("%w: %w", apperr.ErrToolExecution, err)
		}
		return o.failed(reg, res, err), nil
	}

	res.OK = true
	metrics.ToolCalls.WithLabelValues(string(reg.Persona()), call.Name, "ok").Inc()
	if pending, ok := data.(*models.PendingApproval); ok && pending != nil {
		res.Data = map[string]any{"status": "pending_approval", "draft_id": pending.ID}
		return res, pending
	}
	res.Data = data
	return res, nil
}

// runExecutor изолирует панику исполнителя в рамках одного вызова.
func (o *Orchestrator) runExecutor(ctx context.Context, userID string, cmd tools.Command) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: executor panic: %v", apperr.ErrToolExecution, r)
		}
	}()
	return o.executors[cmd.Kind()](ctx, userID, cmd)
}

// decode изолирует панику разбора аргументов в рамках одного вызова.
func decode(reg *tools.Registry, call llm.ToolCall) (cmd tools.Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			cmd = nil
			err = fmt.Errorf("%w: argument decoding panic: %v", apperr.ErrToolExecution, r)
		}
	}()
	return reg.Decode(call.Name, call.Arguments)
}

func (o *Orchestrator) failed(reg *tools.Registry, res models.ToolResult, err error) models.ToolResult {
	res.OK = false
	res.Error = err.Error()
	res.ErrorKind = apperr.Kind(err)
	metrics.ToolCalls.WithLabelValues(string(reg.Persona()), res.Name, res.ErrorKind).Inc()
	return res
}

// buildMessages переносит в запрос только реплики пользователя и
// ассистента с непустым текстом.
func buildMessages(transcript []models.Turn) ([]llm.Message, error) {
	messages := make([]llm.Message, 0, len(transcript))
	hasUser := false
	for _, t := range transcript {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case models.RoleUser:
			hasUser = true
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: t.Content})
		case models.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: t.Content})
		}
	}
	if !hasUser {
		return nil, fmt.Errorf("%w: transcript has no user message", apperr.ErrValidation)
	}
	return messages, nil
}

func resultMessage(res models.ToolResult) llm.Message {
	payload := map[string]any{"ok": res.OK}
	if res.OK {
		payload["data"] = res.Data
	} else {
		payload["error"] = res.Error
	}
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error()))
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    string(body),
		ToolCallID: res.CallID,
		ToolName:   res.Name,
		IsError:    !res.OK,
	}
}

func fallbackSummary(results []models.ToolResult) string {
	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	return fmt.Sprintf("Completed %d of %d requested actions.", ok, len(results))
}
