// Package sender отправляет подтверждённые пользователем письма по SMTP.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Mailer доставляет одно письмо.
type Mailer interface {
	Deliver(ctx context.Context, mail models.OutgoingMail) error
}

// SenderService отправляет письма из очереди mail.outgoing.
type SenderService struct {
	mailer Mailer
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, mailer Mailer) *SenderService {
	return &SenderService{
		mailer: mailer,
		log:    log,
	}
}

// SendApproved обрабатывает одно сообщение очереди. Сообщения, которые
// невозможно разобрать, отбрасываются без повтора.
func (s *SenderService) SendApproved(ctx context.Context, body []byte) error {
	const op = "sender.SendApproved"
	var mail models.OutgoingMail
	if err := json.Unmarshal(body, &mail); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		metrics.JobsProcessed.WithLabelValues(rabbitmq.OutgoingQueue, "dropped").Inc()
		return rabbitmq.Permanent(fmt.Errorf("%s: error unmarshalling message: %w", op, err))
	}
	if mail.To == "" || strings.ContainsAny(mail.To, "\r\n") {
		metrics.JobsProcessed.WithLabelValues(rabbitmq.OutgoingQueue, "dropped").Inc()
		return rabbitmq.Permanent(fmt.Errorf("%s: draft %s has invalid recipient", op, mail.DraftID))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.Deliver(ctx, mail); err != nil {
		metrics.JobsProcessed.WithLabelValues(rabbitmq.OutgoingQueue, "failed").Inc()
		s.log.Error("failed to deliver approved mail", slog.String("draft_id", mail.DraftID), sl.Err(err))
		if errors.Is(err, apperr.ErrConfiguration) {
			return rabbitmq.Permanent(fmt.Errorf("%s: %w", op, err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.JobsProcessed.WithLabelValues(rabbitmq.OutgoingQueue, "ok").Inc()
	s.log.Info("approved mail sent", slog.String("draft_id", mail.DraftID), slog.String("user_id", mail.UserID))
	return nil
}
