// Package contractorapi собирает HTTP-приложение: проверку доступа,
// ассистентов с инструментами и приём вебхуков биллинга.
package contractorapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/contractor-assistant/internal/cache"
	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/jwt"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/llm"
	"github.com/magabrotheeeer/contractor-assistant/internal/migrations"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/approval"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/assistant"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
	"github.com/magabrotheeeer/contractor-assistant/internal/storage"
)

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New поднимает зависимости и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnRetries, cfg.ConnRetryWait)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.Queues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch, cfg.Exchange)

	engine := subscription.NewEngineFromConfig(cfg, db, logger)

	provider, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		// Без ключа модели приложение работает, но ассистенты отвечают 503.
		logger.Warn("llm provider is not configured", sl.Err(err))
		provider = llm.Unconfigured(err)
	}
	orchestrator, err := assistant.New(provider, assistant.NewExecutors(db).Map(), logger)
	if err != nil {
		closeAll(logger, ch, conn, db, cacheRedis)
		return nil, err
	}
	approvals := approval.New(cacheRedis, publisher, cfg.DraftTTL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:        logger,
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Engine:        engine,
		Orchestrator:  orchestrator,
		Approvals:     approvals,
		Publisher:     publisher,
		Health:        db,
		StripeSecret:  cfg.StripeWebhookSecret,
		RevenueCatKey: cfg.WebhookAuth,
		RateLimit:     cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		closeAll(a.logger, a.ch, a.conn, a.db, a.cache)
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeAll(a.logger, a.ch, a.conn, a.db, a.cache)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type closer interface {
	Close() error
}

func closeAll(logger *slog.Logger, resources ...closer) {
	for _, r := range resources {
		if err := r.Close(); err != nil {
			logger.Error("failed to close resource", sl.Err(err))
		}
	}
}
