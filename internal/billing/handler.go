package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradebill/tradebill/internal/platform/httpx"
)

// Handler manages document endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents", h.listDocuments)
	r.Post("/documents", h.createDocument)
	r.Get("/documents/{id}", h.getDocument)
	r.Put("/documents/{id}", h.updateDraft)

	r.Post("/documents/{id}/send", h.transition(OpMarkSent))
	r.Post("/documents/{id}/follow-up", h.transition(OpRecordFollowUp))
	r.Post("/documents/{id}/sign", h.sign)
	r.Post("/documents/{id}/convert", h.transition(OpConvertToInvoice))
	r.Post("/documents/{id}/pay", h.transition(OpMarkPaid))
	r.Post("/documents/{id}/reject", h.transition(OpReject))
	r.Post("/documents/{id}/postpone", h.transition(OpPostpone))
	r.Post("/documents/{id}/work-stage", h.setWorkStage)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "owner_id is required")
		return
	}
	req := ListDocumentsRequest{OwnerID: ownerID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	docs, err := h.service.ListDocuments(r.Context(), req)
	if err != nil {
		h.logger.Error("list documents", slog.Int64("owner_id", ownerID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	doc, err := h.service.CreateDocument(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req UpdateDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	doc, err := h.service.UpdateDraft(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// transition builds a handler for the body-less lifecycle operations.
func (h *Handler) transition(op TransitionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.docID(w, r)
		if !ok {
			return
		}
		doc, err := h.service.ApplyTransition(r.Context(), id, op, TransitionArgs{Now: time.Now().UTC()})
		if err != nil {
			respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) sign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req SignRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}
	doc, err := h.service.ApplyTransition(r.Context(), id, OpSign, TransitionArgs{
		Now:          time.Now().UTC(),
		SignatureRef: req.SignatureRef,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) setWorkStage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req WorkStageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	doc, err := h.service.SetWorkStage(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return 0, false
	}
	return id, true
}
