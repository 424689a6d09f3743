// Package reconciler содержит воркер, который по событиям биллинга
// синхронизирует права пользователя и выполняет проход связывания, а также
// периодически ставит в очередь записи с истёкшим сроком.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/contractor-assistant/internal/services/scheduler"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
	"github.com/magabrotheeeer/contractor-assistant/internal/storage"
)

// App воркер сверки.
type App struct {
	engine    *subscription.Engine
	scheduler *schedulerservice.SchedulerService
	db        *storage.Storage
	conn      *amqp.Connection
	ch        *amqp.Channel
	workers   int
	logger    *slog.Logger
}

func waitForDB(ctx context.Context, db *storage.Storage) error {
	for range 10 {
		err := db.CheckDatabaseReady(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает воркер сверки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnRetries, cfg.ConnRetryWait)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.Queues())
	if err != nil {
		closeResources(nil, conn, nil, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, nil, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, db, logger)
		return nil, err
	}

	publisher := rabbitmq.NewPublisher(ch, cfg.Exchange)

	return &App{
		engine:    subscription.NewEngineFromConfig(cfg, db, logger),
		scheduler: schedulerservice.NewSchedulerService(db, publisher, cfg.SweepInterval, cfg.SweepBatch, logger),
		db:        db,
		conn:      conn,
		ch:        ch,
		workers:   cfg.Workers,
		logger:    logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, db *storage.Storage, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", sl.Err(err))
		}
	}
}

// Run обрабатывает очередь сверки до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ReconcileQueue, a.workers, a.logger, a.engine.HandleReconcileJob)
	if err != nil {
		a.logger.Error("failed to start reconcile consumer", sl.Err(err))
		closeResources(a.ch, a.conn, a.db, a.logger)
		return err
	}

	go a.scheduler.Run(ctx)

	<-ctx.Done()
	a.logger.Info("shutting down reconcile worker")
	closeResources(a.ch, a.conn, a.db, a.logger)
	return nil
}
