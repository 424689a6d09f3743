// Package approve реализует HTTP-обработчик подтверждения черновика письма.
package approve

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/validate"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/approval"
)

// Request необязательные правки черновика перед отправкой.
type Request struct {
	Subject string `json:"subject,omitempty" validate:"max=300"`
	Body    string `json:"body,omitempty" validate:"max=20000"`
}

// Service подтверждение черновиков.
type Service interface {
	Approve(ctx context.Context, userID, draftID string, edit approval.Edit) (*models.OutgoingMail, error)
}

// Handler обрабатывает POST /assistant/drafts/{id}/approve.
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
// @Summary Подтвердить черновик
// @Description Ставит подтверждённое письмо в очередь отправки. Черновик подтверждается один раз.
// @Tags Assistant
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID черновика"
// @Param request body Request false "Правки темы и текста"
// @Success 200 {object} response.Response "Письмо поставлено в очередь"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Черновик не найден или истёк"
// @Router /assistant/drafts/{id}/approve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assistant.approve"

	userID := middlewarectx.UserIDFrom(r.Context())
	draftID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
		slog.String("draft_id", draftID),
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

	mail, err := h.service.Approve(r.Context(), userID, draftID, approval.Edit{Subject: req.Subject, Body: req.Body})
	if err != nil {
		log.Error("failed to approve draft", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("draft approved")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"draft_id": mail.DraftID,
		"to":       mail.To,
		"status":   "queued",
	}))
}
