package reporting

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/singleflight"

	"github.com/tradebill/tradebill/internal/platform/httpx"
)

// Handler serves the reporting dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	group   singleflight.Group
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes. The dashboard recomputes over the
// whole snapshot, so bursts are rate limited and deduplicated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Get("/reports/dashboard", h.dashboard)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "owner_id is required")
		return
	}
	ref := time.Now().UTC()
	if raw := r.URL.Query().Get("ref"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ref must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	key := strconv.FormatInt(ownerID, 10) + ":" + ref.Format("2006-01-02")
	value, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.service.Dashboard(r.Context(), ownerID, ref)
	})
	if err != nil {
		h.logger.Error("build dashboard", slog.Int64("owner_id", ownerID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, value)
}
