package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "wrapped configuration", err: fmt.Errorf("llm.New: %w", ErrConfiguration), want: "configuration"},
		{name: "unauthorized", err: ErrUnauthorized, want: "authorization"},
		{name: "validation", err: fmt.Errorf("missing name: %w", ErrValidation), want: "validation"},
		{name: "tool", err: fmt.Errorf("%w: insert failed", ErrToolExecution), want: "tool_execution"},
		{name: "upstream", err: fmt.Errorf("openai: %w", ErrUpstream), want: "upstream"},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "plain", err: errors.New("boom"), want: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
