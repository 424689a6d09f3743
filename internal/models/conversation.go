package models

import "encoding/json"

// Role автор реплики в диалоге.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool"
)

// Turn реплика диалога. Последовательность реплик только дополняется.
type Turn struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ToolInvocation вызов инструмента, запрошенный языковой моделью.
type ToolInvocation struct {
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult итог одного вызова инструмента.
type ToolResult struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// PendingApproval черновик письма, который нельзя отправлять без явного
// подтверждения пользователя.
type PendingApproval struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	ClientName string `json:"client_name,omitempty"`
}

// OutgoingMail подтверждённое письмо, поставленное в очередь на отправку.
type OutgoingMail struct {
	DraftID string `json:"draft_id"`
	UserID  string `json:"user_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ReconcileJob задание на синхронизацию прав пользователя после события биллинга.
type ReconcileJob struct {
	UserID   string   `json:"user_id"`
	Platform Platform `json:"platform"`
	Source   string   `json:"source"`
	Event    string   `json:"event"`
}
