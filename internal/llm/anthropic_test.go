package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
)

func anthropicServer(t *testing.T, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnthropicClient_ToolUse(t *testing.T) {
	var captured map[string]any
	server := anthropicServer(t, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude",
		"stop_reason": "tool_use",
		"content": [
			{"type": "text", "text": "Let me look."},
			{"type": "tool_use", "id": "toolu_1", "name": "lookup_client", "input": {"query": "Jane"}}
		],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, &captured)

	client := NewAnthropicClient("sk-ant", "claude-sonnet-4-5", server.URL, 512, time.Second)
	resp, err := client.Chat(context.Background(), ChatRequest{
		System:     "You are helpful.",
		Messages:   []Message{{Role: RoleUser, Content: "Find Jane"}},
		Tools:      []Tool{lookupTool},
		ToolChoice: ToolChoiceRequired,
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me look.", resp.Text)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"query":"Jane"}`, string(resp.ToolCalls[0].Arguments))

	choice := captured["tool_choice"].(map[string]any)
	assert.Equal(t, "any", choice["type"])
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "lookup_client", tools[0].(map[string]any)["name"])
}

func TestAnthropicClient_FollowUpWithoutTools(t *testing.T) {
	var captured map[string]any
	server := anthropicServer(t, `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": "Jane is your client."}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, &captured)

	client := NewAnthropicClient("sk-ant", "claude-sonnet-4-5", server.URL, 0, time.Second)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "Find Jane"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "toolu_1", Name: "lookup_client", Arguments: json.RawMessage(`{"query":"Jane"}`)}}},
			{Role: RoleTool, ToolCallID: "toolu_1", ToolName: "lookup_client", Content: `{"clients":[]}`},
		},
		Tools:      []Tool{lookupTool},
		ToolChoice: ToolChoiceNone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane is your client.", resp.Text)
	assert.Empty(t, resp.ToolCalls)

	_, hasTools := captured["tools"]
	assert.False(t, hasTools)
	raw, err := json.Marshal(captured["messages"])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tool_use")
	assert.NotContains(t, string(raw), "tool_result")
	assert.Contains(t, string(raw), "lookup_client")
	assert.Len(t, captured["messages"], 3)
}

func TestAnthropicClient_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("sk-ant", "claude", server.URL, 0, time.Second)
	_, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}
