package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

const dialTimeout = 15 * time.Second

// Mailer отправляет OutgoingMail от имени ящика из конфига.
type Mailer struct {
	dialer Dialer
	from   string
	log    *slog.Logger
	now    func() time.Time
}

// NewMailer создаёт отправителя поверх STARTTLS-соединения.
func NewMailer(cfg config.SMTP, log *slog.Logger) *Mailer {
	var d Dialer
	if cfg.SMTPHost != "" {
		d = starttlsDialer{cfg: cfg}
	}
	return newMailer(d, cfg.SMTPUser, log)
}

func newMailer(d Dialer, from string, log *slog.Logger) *Mailer {
	return &Mailer{dialer: d, from: from, log: log, now: time.Now}
}

// Configured сообщает, задан ли SMTP-сервер.
func (m *Mailer) Configured() bool {
	return m.dialer != nil
}

// Deliver отправляет одно письмо одному получателю.
func (m *Mailer) Deliver(ctx context.Context, mail models.OutgoingMail) error {
	const op = "smtp.Deliver"
	if !m.Configured() {
		return fmt.Errorf("%s: %w: smtp host is not set", op, apperr.ErrConfiguration)
	}
	log := m.log.With(slog.String("draft_id", mail.DraftID))

	s, err := m.dialer.Dial(ctx)
	if err != nil {
		log.Error("failed to open smtp session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.Close()

	if err := s.Mail(m.from); err != nil {
		return fmt.Errorf("%s: MAIL FROM %s: %w", op, m.from, err)
	}
	if err := s.Rcpt(mail.To); err != nil {
		return fmt.Errorf("%s: RCPT TO %s: %w", op, mail.To, err)
	}
	wc, err := s.Data()
	if err != nil {
		return fmt.Errorf("%s: DATA: %w", op, err)
	}
	if _, err := wc.Write(Compose(m.from, mail, m.now())); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("%s: finish DATA: %w", op, err)
	}
	if err := s.Quit(); err != nil {
		log.Warn("smtp quit failed after delivery", sl.Err(err))
	}
	return nil
}

// Compose собирает текст письма. Переводы строк в заголовках заменяются
// пробелами.
func Compose(from string, mail models.OutgoingMail, now time.Time) []byte {
	header := strings.NewReplacer("\r", " ", "\n", " ")
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return []byte(strings.Join([]string{
		"From: " + header.Replace(from),
		"To: " + header.Replace(mail.To),
		"Subject: " + header.Replace(mail.Subject),
		"Date: " + now.UTC().Format(time.RFC1123Z),
		"Message-ID: <" + header.Replace(mail.DraftID) + "@" + domain + ">",
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		mail.Body,
	}, "\r\n"))
}

// starttlsDialer подключается к серверу, поднимает TLS и авторизуется.
type starttlsDialer struct {
	cfg config.SMTP
}

func (d starttlsDialer) Dial(ctx context.Context) (Session, error) {
	const op = "smtp.Dial"
	addr := net.JoinHostPort(d.cfg.SMTPHost, d.cfg.SMTPPort)

	nd := net.Dialer{Timeout: dialTimeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: dial %s: %w", op, apperr.ErrUpstream, addr, err)
	}
	c, err := smtp.NewClient(conn, d.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w: handshake: %w", op, apperr.ErrUpstream, err)
	}

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return nil, abort(c, fmt.Errorf("%s: server does not support STARTTLS", op))
	}
	if err := c.StartTLS(&tls.Config{ServerName: d.cfg.SMTPHost, MinVersion: tls.VersionTLS12}); err != nil {
		return nil, abort(c, fmt.Errorf("%s: starttls: %w", op, err))
	}
	if err := c.Auth(smtp.PlainAuth("", d.cfg.SMTPUser, d.cfg.SMTPPass, d.cfg.SMTPHost)); err != nil {
		return nil, abort(c, fmt.Errorf("%s: auth: %w", op, err))
	}
	return c, nil
}

func abort(c *smtp.Client, err error) error {
	return errors.Join(err, c.Close())
}
