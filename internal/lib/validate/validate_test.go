package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string  `json:"name" validate:"required"`
	Email  string  `json:"email,omitempty" validate:"omitempty,email"`
	Status string  `json:"status" validate:"omitempty,oneof=open paid"`
	Amount float64 `json:"amount" validate:"gt=0"`
	Due    string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func TestMessage(t *testing.T) {
	v := New()

	err := v.Struct(sample{Email: "nope", Status: "lost", Due: "tomorrow"})
	require.Error(t, err)
	msg := Message(err)
	assert.Contains(t, msg, "field name is a required field")
	assert.Contains(t, msg, "field email must be a valid email address")
	assert.Contains(t, msg, "field status must be one of: open paid")
	assert.Contains(t, msg, "field amount must be at least 0")
	assert.Contains(t, msg, "field due_date must be a date in format 2006-01-02")

	assert.NoError(t, v.Struct(sample{Name: "ok", Amount: 1}))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestDatetime(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(sample{Name: "ok", Amount: 1, Due: "2025-03-01"}))
	assert.NoError(t, v.Struct(sample{Name: "ok", Amount: 1}), "пустая дата пропускается через omitempty")

	err := v.Struct(sample{Name: "ok", Amount: 1, Due: "01.03.2025"})
	require.Error(t, err)
	assert.Equal(t, "field due_date must be a date in format 2006-01-02", Message(err))
}
