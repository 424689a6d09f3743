// Package discard реализует HTTP-обработчик отказа от черновика письма.
package discard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/contractor-assistant/internal/http/middlewarectx"
	"github.com/magabrotheeeer/contractor-assistant/internal/http/response"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
)

// Service удаление черновиков.
type Service interface {
	Discard(ctx context.Context, userID, draftID string) error
}

// Handler обрабатывает DELETE /assistant/drafts/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отказаться от черновика
// @Tags Assistant
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID черновика"
// @Success 200 {object} response.Response "Черновик удалён"
// @Router /assistant/drafts/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assistant.discard"

	userID := middlewarectx.UserIDFrom(r.Context())
	draftID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("draft_id", draftID),
	)

	if err := h.service.Discard(r.Context(), userID, draftID); err != nil {
		log.Error("failed to discard draft", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"draft_id": draftID, "status": "discarded"}))
}
