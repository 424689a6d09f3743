// Package stripewebhook принимает вебхуки Stripe о подписках.
//
// Обработчик только проверяет подпись и ставит задание сверки в очередь;
// записи о доступе меняет воркер.
package stripewebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/contractor-assistant/internal/billing/stripebilling"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

const maxBodyBytes = 64 << 10

// Publisher очередь заданий сверки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Handler обрабатывает POST /billing/stripe/webhook.
type Handler struct {
	log       *slog.Logger
	publisher Publisher
	secret    string
}

// New создает новый Handler с секретом подписи вебхуков.
func New(log *slog.Logger, publisher Publisher, secret string) *Handler {
	return &Handler{log: log, publisher: publisher, secret: secret}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} response.Response "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /billing/stripe/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.stripewebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reply := func(status int, body any) {
		metrics.WebhookRequests.WithLabelValues("stripe", strconv.Itoa(status)).Inc()
		render.Status(r, status)
		render.JSON(w, r, body)
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		reply(http.StatusBadRequest, response.Error("invalid request body"))
		return
	}

	event, err := stripebilling.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		log.Warn("stripe signature verification failed", sl.Err(err))
		reply(http.StatusBadRequest, response.Error("invalid signature"))
		return
	}
	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", string(event.Type)))

	userID, ok, err := stripebilling.UserFromEvent(event)
	if err != nil {
		log.Error("failed to decode stripe event", sl.Err(err))
		reply(http.StatusBadRequest, response.Error("invalid event payload"))
		return
	}
	if !ok {
		log.Info("stripe event ignored")
		reply(http.StatusOK, response.StatusOKWithData(map[string]any{"status": "ignored"}))
		return
	}

	job := models.ReconcileJob{UserID: userID, Platform: models.PlatformWeb, Source: "stripe", Event: string(event.Type)}
	if err := h.publisher.Publish(r.Context(), rabbitmq.ReconcileKey, job); err != nil {
		log.Error("failed to enqueue reconcile job", sl.Err(err))
		reply(http.StatusInternalServerError, response.Error("failed to enqueue event"))
		return
	}

	log.Info("reconcile job enqueued", slog.String("user_id", userID))
	reply(http.StatusOK, response.StatusOKWithData(map[string]any{"status": "queued"}))
}
