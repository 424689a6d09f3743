// Package sender содержит воркер отправки подтверждённых писем.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/contractor-assistant/internal/services/sender"
)

// App воркер отправки.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	workers       int
	logger        *slog.Logger
}

// New создает воркер. Без настроек SMTP запуск невозможен.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	mailer := smtp.NewMailer(cfg.SMTP, logger)
	if !mailer.Configured() {
		return nil, fmt.Errorf("sender.New: %w: smtp host is not set", apperr.ErrConfiguration)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnRetries, cfg.ConnRetryWait)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.Queues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewSenderService(logger, mailer),
		workers:       cfg.Workers,
		logger:        logger,
	}, nil
}

// Run обрабатывает очередь исходящих писем до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.OutgoingQueue, a.workers, a.logger, a.senderService.SendApproved)
	if err != nil {
		a.logger.Error("failed to start outgoing mail consumer", sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return nil
}
