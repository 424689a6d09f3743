// Package chat реализует HTTP-обработчик одного цикла диалога с ассистентом.
//
// Handler принимает полный транскрипт диалога, запускает цикл с
// инструментами выбранной персоны и возвращает итоговый текст, результаты
// инструментов и черновик письма, ожидающий подтверждения. Черновик
// сохраняется до подтверждения; отправка идёт только через approve.
package chat

import (
	"context"
	"encoding/json"
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
	"github.com/magabrotheeeer/contractor-assistant/internal/services/assistant"
	"github.com/magabrotheeeer/contractor-assistant/internal/tools"
)

// Request транскрипт диалога: только реплики пользователя и ассистента.
type Request struct {
	Messages []models.Turn `json:"messages" validate:"required,min=1,max=100,dive"`
}

// Service цикл диалога.
type Service interface {
	RunTurn(ctx context.Context, userID string, persona tools.Persona, transcript []models.Turn) (*assistant.TurnResult, error)
}

// Approvals хранилище черновиков до подтверждения.
type Approvals interface {
	Hold(ctx context.Context, userID string, draft *models.PendingApproval) error
}

// Handler обрабатывает POST /assistant/{persona}/chat.
type Handler struct {
	log       *slog.Logger
	service   Service
	approvals Approvals
	validate  *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, approvals Approvals) *Handler {
	return &Handler{log: log, service: service, approvals: approvals, validate: validate.New()}
}

// ServeHTTP godoc
// @Summary Сообщение ассистенту
// @Description Выполняет один цикл диалога с персоной (estimating, projects, crm, finance).
// @Tags Assistant
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param persona path string true "Персона ассистента"
// @Param request body Request true "Транскрипт диалога"
// @Success 200 {object} response.Response "Ответ ассистента"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Неизвестная персона"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Языковая модель недоступна"
// @Router /assistant/{persona}/chat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assistant.chat"

	userID := middlewarectx.UserIDFrom(r.Context())
	persona := tools.Persona(chi.URLParam(r, "persona"))
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
		slog.String("persona", string(persona)),
	)

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
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

	res, err := h.service.RunTurn(r.Context(), userID, persona, req.Messages)
	if err != nil {
		log.Error("conversation turn failed", sl.Err(err), sl.Kind(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	if res.PendingApproval != nil {
		if err := h.approvals.Hold(r.Context(), userID, res.PendingApproval); err != nil {
			log.Error("failed to hold draft for approval", sl.Err(err))
			res.PendingApproval = nil
			res.Text += "\n\nI couldn't save the draft for approval. Please ask me to draft it again."
		}
	}

	log.Info("conversation turn completed",
		slog.Int("tool_calls", len(res.ToolResults)),
		slog.Bool("pending_approval", res.PendingApproval != nil))
	render.JSON(w, r, response.StatusOKWithData(res))
}
