package contractorapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/access/check"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/access/refresh"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/assistant/approve"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/assistant/chat"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/assistant/discard"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/billing/revenuecatwebhook"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/billing/stripewebhook"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/handlers/health"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
)

// AccessService проверка и обновление доступа.
type AccessService interface {
	check.Service
	refresh.Service
}

// ApprovalService черновики писем.
type ApprovalService interface {
	chat.Approvals
	approve.Service
	discard.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Logger        *slog.Logger
	Tokens        middlewarectx.TokenParser
	Engine        AccessService
	Orchestrator  chat.Service
	Approvals     ApprovalService
	Publisher     stripewebhook.Publisher
	Health        health.Checker
	StripeSecret  string
	RevenueCatKey string
	RateLimit     config.RateLimit
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Logger

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(middlewarectx.PlatformMiddleware)
			r.Use(middlewarectx.RateLimitMiddleware(middlewarectx.NewRateLimiter(d.RateLimit.RPS, d.RateLimit.Burst), logger))

			r.Get("/access", check.New(logger, d.Engine).ServeHTTP)
			r.Post("/access/refresh", refresh.New(logger, d.Engine).ServeHTTP)

			r.Post("/assistant/{persona}/chat", chat.New(logger, d.Orchestrator, d.Approvals).ServeHTTP)
			r.Post("/assistant/drafts/{id}/approve", approve.New(logger, d.Approvals).ServeHTTP)
			r.Delete("/assistant/drafts/{id}", discard.New(logger, d.Approvals).ServeHTTP)
		})

		// Вебхуки биллинга (без JWT, проверка подписи внутри)
		r.Post("/billing/stripe/webhook", stripewebhook.New(logger, d.Publisher, d.StripeSecret).ServeHTTP)
		r.Post("/billing/revenuecat/webhook", revenuecatwebhook.New(logger, d.Publisher, d.RevenueCatKey).ServeHTTP)
	})

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
