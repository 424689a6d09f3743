// Package check реализует HTTP-обработчик проверки доступа к платным функциям.
//
// Handler берёт пользователя и платформу из контекста запроса и возвращает
// решение движка сверки подписок. Сбои источников наружу не передаются:
// ответ всегда содержит логическое значение.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
)

// Service описывает проверку доступа.
type Service interface {
	Decide(ctx context.Context, userID string, platform models.Platform) (subscription.Decision, error)
}

// Handler обрабатывает GET /access.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверить доступ
// @Description Возвращает, есть ли у пользователя активная подписка на любой платформе.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Param X-Client-Platform header string false "ios, android или web"
// @Success 200 {object} response.Response "Решение о доступе"
// @Failure 401 {object} response.ErrorResponse "Нет авторизации"
// @Router /access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

	userID := middlewarectx.UserIDFrom(r.Context())
	platform := middlewarectx.PlatformFrom(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)

	d, err := h.service.Decide(r.Context(), userID, platform)
	if err != nil {
		log.Error("access check rejected", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("access checked", slog.Bool("granted", d.Granted), slog.String("reason", string(d.Reason)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"granted":  d.Granted,
		"reason":   d.Reason,
		"platform": platform,
	}))
}
