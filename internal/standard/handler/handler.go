// Package handler exposes the ISO standard catalog over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"certregistry/internal/standard"
	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/httputil"
	"certregistry/pkg/requestcontext"
)

// maxImportSize caps uploaded catalog files at 1 MiB.
const maxImportSize = 1 << 20

// Handler wires catalog endpoints to the standard service.
type Handler struct {
	service *standard.Service
	logger  *slog.Logger
}

// New constructs a standard handler.
func New(service *standard.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the catalog endpoints. All of them are staff-only.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/standards", h.HandleCreate)
	r.Get("/standards", h.HandleList)
	r.Post("/standards/import", h.HandleImport)
	r.Get("/standards/{id}", h.HandleGet)
	r.Put("/standards/{id}", h.HandleUpdate)
	r.Delete("/standards/{id}", h.HandleDelete)
}

// StandardRequest is the HTTP body for creating or updating a standard.
type StandardRequest struct {
	Name            string `json:"name"`
	CertificateName string `json:"certificate_name"`
	Prefix          string `json:"prefix"`
}

// Validate implements the Validator interface for httputil.DecodeAndPrepare.
func (r *StandardRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}

// HandleCreate handles POST /standards requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StandardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.service.Create(ctx, &standard.Standard{
		Name:            req.Name,
		CertificateName: req.CertificateName,
		Prefix:          req.Prefix,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

// HandleList handles GET /standards requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"standards": out})
}

// HandleGet handles GET /standards/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleUpdate handles PUT /standards/{id} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[StandardRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	st, err := h.service.Update(ctx, &standard.Standard{
		ID:              id,
		Name:            req.Name,
		CertificateName: req.CertificateName,
		Prefix:          req.Prefix,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleDelete handles DELETE /standards/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImport handles POST /standards/import requests. The body is the raw
// CSV file: name, certificate_name, prefix.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.ImportCSV(ctx, http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		h.logger.ErrorContext(ctx, "catalog import failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
		return 0, false
	}
	return id, true
}
