package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// HandleReconcileJob обрабатывает задание из очереди entitlements.reconcile:
// пересинхронизирует платформу из задания и выполняет проход связывания.
// Без платформы выполняется только проход связывания.
func (e *Engine) HandleReconcileJob(ctx context.Context, body []byte) error {
	const op = "subscription.Engine.HandleReconcileJob"
	var job models.ReconcileJob
	if err := json.Unmarshal(body, &job); err != nil {
		metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "dropped").Inc()
		return rabbitmq.Permanent(fmt.Errorf("%s: %w", op, err))
	}
	if job.UserID == "" {
		metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "dropped").Inc()
		return rabbitmq.Permanent(fmt.Errorf("%s: job has no user id", op))
	}
	log := e.log.With(
		slog.String("op", op),
		slog.String("user_id", job.UserID),
		slog.String("source", job.Source),
		slog.String("event", job.Event),
	)

	if job.Platform.Valid() {
		d, err := e.Refresh(ctx, job.UserID, job.Platform, "")
		if err != nil {
			metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "failed").Inc()
			return fmt.Errorf("%s: %w", op, err)
		}
		if d.Reason == ReasonUnavailable {
			metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "retry").Inc()
			return fmt.Errorf("%s: entitlement store unavailable", op)
		}
		log.Info("entitlements refreshed", slog.Bool("granted", d.Granted), slog.String("reason", string(d.Reason)))
		metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "ok").Inc()
		return nil
	}

	if err := e.Reconcile(ctx, job.UserID); err != nil {
		metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "failed").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("link pass completed")
	metrics.JobsProcessed.WithLabelValues(rabbitmq.ReconcileQueue, "ok").Inc()
	return nil
}
