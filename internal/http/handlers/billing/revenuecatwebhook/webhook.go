// Package revenuecatwebhook принимает вебхуки RevenueCat.
//
// Обработчик проверяет заголовок Authorization, определяет платформу по
// магазину и ставит задание сверки в очередь.
package revenuecatwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/contractor-assistant/internal/billing/revenuecat"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/metrics"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// Publisher очередь заданий сверки.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Handler обрабатывает POST /billing/revenuecat/webhook.
type Handler struct {
	log        *slog.Logger
	publisher  Publisher
	authHeader string
}

// New создает новый Handler. authHeader ожидаемое значение заголовка
// Authorization, заданное в настройках вебхука RevenueCat.
func New(log *slog.Logger, publisher Publisher, authHeader string) *Handler {
	return &Handler{log: log, publisher: publisher, authHeader: authHeader}
}

// ServeHTTP godoc
// @Summary Вебхук RevenueCat
// @Tags Billing
// @Accept  json
// @Produce  json
// @Success 200 {object} response.Response "Событие принято"
// @Failure 401 {object} response.ErrorResponse "Неверная авторизация"
// @Router /billing/revenuecat/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.revenuecatwebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reply := func(status int, body any) {
		metrics.WebhookRequests.WithLabelValues("revenuecat", strconv.Itoa(status)).Inc()
		render.Status(r, status)
		render.JSON(w, r, body)
	}

	got := r.Header.Get("Authorization")
	if h.authHeader == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.authHeader)) != 1 {
		log.Warn("revenuecat webhook authorization failed")
		reply(http.StatusUnauthorized, response.Error("unauthorized"))
		return
	}

	var ev revenuecat.WebhookEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&ev); err != nil {
		log.Error("failed to decode webhook body", sl.Err(err))
		reply(http.StatusBadRequest, response.Error("invalid request body"))
		return
	}
	log = log.With(slog.String("event_id", ev.Event.ID), slog.String("event_type", ev.Event.Type))

	userID := ev.UserID()
	if userID == "" {
		log.Info("revenuecat event without user ignored")
		reply(http.StatusOK, response.StatusOKWithData(map[string]any{"status": "ignored"}))
		return
	}

	job := models.ReconcileJob{
		UserID:   userID,
		Platform: revenuecat.PlatformForStore(ev.Event.Store),
		Source:   "revenuecat",
		Event:    ev.Event.Type,
	}
	if err := h.publisher.Publish(r.Context(), rabbitmq.ReconcileKey, job); err != nil {
		log.Error("failed to enqueue reconcile job", sl.Err(err))
		reply(http.StatusInternalServerError, response.Error("failed to enqueue event"))
		return
	}

	log.Info("reconcile job enqueued", slog.String("user_id", userID), slog.String("platform", string(job.Platform)))
	reply(http.StatusOK, response.StatusOKWithData(map[string]any{"status": "queued"}))
}
