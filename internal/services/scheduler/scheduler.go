// Package scheduler периодически находит записи о доступе, срок которых
// истёк без события биллинга, и ставит для них задания сверки.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// EntitlementRepository источник просроченных записей.
type EntitlementRepository interface {
	ListExpiredEntitlements(ctx context.Context, before time.Time, limit int) ([]models.EntitlementRecord, error)
}

// Publisher очередь заданий сверки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService обход просроченных записей.
type SchedulerService struct {
	repo      EntitlementRepository
	publisher Publisher
	interval  time.Duration
	batch     int
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo EntitlementRepository, publisher Publisher, interval time.Duration, batch int, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		log:       log,
		now:       time.Now,
	}
}

// Run выполняет обход сразу и затем каждые interval до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("expiry sweep disabled")
		return
	}
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SchedulerService) sweep(ctx context.Context) {
	n, err := s.SweepExpired(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", sl.Err(err))
		return
	}
	if n == 0 {
		s.log.Debug("no expired entitlements found")
		return
	}
	s.log.Info("expired entitlements queued for reconcile", slog.Int("count", n))
}

// SweepExpired ставит задание сверки на каждую просроченную запись и
// возвращает число поставленных заданий. Сбой публикации одной записи не
// прерывает обход.
func (s *SchedulerService) SweepExpired(ctx context.Context) (int, error) {
	const op = "scheduler.SweepExpired"

	records, err := s.repo.ListExpiredEntitlements(ctx, s.now(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	queued := 0
	for _, rec := range records {
		job := models.ReconcileJob{
			UserID:   rec.UserID,
			Platform: rec.Platform,
			Source:   "sweep",
			Event:    "expired",
		}
		if err := s.publisher.Publish(ctx, rabbitmq.ReconcileKey, job); err != nil {
			metrics.JobsProcessed.WithLabelValues("sweep", "publish_failed").Inc()
			s.log.Error("failed to publish reconcile job", slog.String("user_id", rec.UserID), sl.Err(err))
			continue
		}
		metrics.JobsProcessed.WithLabelValues("sweep", "queued").Inc()
		queued++
	}
	return queued, nil
}
