package actions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tradebill/tradebill/internal/platform/httpx"
)

// Handler serves the work-queue board.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers action routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/actions", h.actionItems)
}

func (h *Handler) actionItems(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "owner_id is required")
		return
	}
	list, err := h.service.ActionItems(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("build action items", slog.Int64("owner_id", ownerID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
