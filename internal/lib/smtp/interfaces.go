// Package smtp доставляет подтверждённые письма через SMTP-сервер со STARTTLS.
package smtp

import (
	"context"
	"io"
)

// Session авторизованная SMTP-сессия. *net/smtp.Client ей удовлетворяет.
type Session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает сессию с сервером.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
