// Package refresh реализует HTTP-обработчик восстановления покупок и
// пересинхронизации прав пользователя.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/validate"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
)

// Request тело запроса. Чек нужен только нативным клиентам.
type Request struct {
	Receipt string `json:"receipt,omitempty" validate:"omitempty,max=16384"`
}

// Service описывает обновление доступа.
type Service interface {
	Refresh(ctx context.Context, userID string, platform models.Platform, receipt string) (subscription.Decision, error)
}

// Handler обрабатывает POST /access/refresh.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validate.New()}
}

// ServeHTTP godoc
// @Summary Обновить доступ
// @Description Восстанавливает покупки по чеку (native) или пересинхронизирует веб-подписку, затем связывает платформы.
// @Tags Access
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param X-Client-Platform header string false "ios, android или web"
// @Param request body Request false "Чек магазина"
// @Success 200 {object} response.Response "Решение о доступе после обновления"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /access/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.refresh"

	userID := middlewarectx.UserIDFrom(r.Context())
	platform := middlewarectx.PlatformFrom(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)

	var req Request
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err))
		return
	}

	d, err := h.service.Refresh(r.Context(), userID, platform, req.Receipt)
	if err != nil {
		log.Error("refresh rejected", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("access refreshed", slog.Bool("granted", d.Granted), slog.String("reason", string(d.Reason)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"granted":  d.Granted,
		"reason":   d.Reason,
		"platform": platform,
	}))
}
