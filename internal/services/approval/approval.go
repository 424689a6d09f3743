// Package approval хранит черновики писем до явного подтверждения
// пользователем и ставит подтверждённые письма в очередь на отправку.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// DraftStore временное хранилище черновиков.
type DraftStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Take(ctx context.Context, key string, result any) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Publisher очередь исходящих сообщений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service управляет черновиками, ожидающими подтверждения.
type Service struct {
	drafts    DraftStore
	publisher Publisher
	ttl       time.Duration
	log       *slog.Logger
}

// New создаёт Service. Неподтверждённый черновик живёт ttl.
func New(drafts DraftStore, publisher Publisher, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{drafts: drafts, publisher: publisher, ttl: ttl, log: log}
}

func draftKey(userID, id string) string {
	return "draft:" + userID + ":" + id
}

// Hold сохраняет черновик пользователя до подтверждения или истечения срока.
func (s *Service) Hold(ctx context.Context, userID string, draft *models.PendingApproval) error {
	const op = "approval.Hold"
	if userID == "" {
		return fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	if draft == nil || draft.ID == "" {
		return fmt.Errorf("%s: %w: draft has no id", op, apperr.ErrValidation)
	}
	if err := s.drafts.Set(ctx, draftKey(userID, draft.ID), draft, s.ttl); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return nil
}

// Edit правки пользователя к черновику перед отправкой. Пустые поля
// оставляют текст черновика без изменений.
type Edit struct {
	Subject string
	Body    string
}

// Approve подтверждает черновик и ставит письмо в очередь. Черновик
// используется один раз; при сбое очереди он возвращается на место.
func (s *Service) Approve(ctx context.Context, userID, draftID string, edit Edit) (*models.OutgoingMail, error) {
	const op = "approval.Approve"
	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("draft_id", draftID))

	key := draftKey(userID, draftID)
	var draft models.PendingApproval
	found, err := s.drafts.Take(ctx, key, &draft)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: draft %s: %w", op, draftID, apperr.ErrNotFound)
	}

	mail := &models.OutgoingMail{
		DraftID: draft.ID,
		UserID:  userID,
		To:      draft.To,
		Subject: draft.Subject,
		Body:    draft.Body,
	}
	if edit.Subject != "" {
		mail.Subject = edit.Subject
	}
	if edit.Body != "" {
		mail.Body = edit.Body
	}
	if err := s.publisher.Publish(ctx, rabbitmq.OutgoingKey, mail); err != nil {
		log.Error("failed to enqueue approved mail", sl.Err(err))
		if restoreErr := s.drafts.Set(ctx, key, draft, s.ttl); restoreErr != nil {
			log.Error("failed to restore draft", sl.Err(restoreErr))
		}
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	log.Info("approved mail enqueued")
	return mail, nil
}

// Discard удаляет черновик без отправки.
func (s *Service) Discard(ctx context.Context, userID, draftID string) error {
	const op = "approval.Discard"
	if userID == "" {
		return fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	if err := s.drafts.Invalidate(ctx, draftKey(userID, draftID)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstream, err)
	}
	return nil
}
