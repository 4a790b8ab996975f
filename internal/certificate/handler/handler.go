// Package handler exposes certificate operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certregistry/internal/certificate"
	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/httputil"
	"certregistry/pkg/requestcontext"
)

// Service defines the certificate operations the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, c *certificate.Certificate, today time.Time) (*certificate.Certificate, error)
	Update(ctx context.Context, c *certificate.Certificate, today time.Time) (*certificate.Certificate, error)
	Get(ctx context.Context, id int64, today time.Time) (*certificate.Certificate, error)
	List(ctx context.Context, today time.Time) ([]*certificate.Certificate, error)
	Search(ctx context.Context, query string, today time.Time) ([]*certificate.Certificate, error)
	Delete(ctx context.Context, id int64) error
	RecomputeStatus(ctx context.Context, id int64, today time.Time) (certificate.Status, error)
	ScheduleInspectionCheck(ctx context.Context, id int64, today time.Time) (*certificate.InspectionCheckResult, error)
	UpdateInspections(ctx context.Context, id int64, first, second *certificate.InspectionStatus, today time.Time) (*certificate.Certificate, error)
	Revoke(ctx context.Context, id int64) (*certificate.Certificate, error)
	Reinstate(ctx context.Context, id int64, today time.Time) (*certificate.Certificate, error)
	NextNumber(ctx context.Context) (string, error)
	Statistics(ctx context.Context) (*certificate.Stats, error)
	AddAuditor(ctx context.Context, certificateID int64, fullName string) (*certificate.Auditor, error)
	ListAuditors(ctx context.Context, certificateID int64) ([]*certificate.Auditor, error)
	RemoveAuditor(ctx context.Context, certificateID, auditorID int64) error
	RefreshAllStatuses(ctx context.Context, today time.Time) (*certificate.SweepResult, error)
	FullNumber(ctx context.Context, c *certificate.Certificate) string
}

// Handler wires certificate endpoints to the certificate service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a certificate handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated verification endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates/search", h.HandleSearch)
	r.Get("/certificates/{id}", h.HandleGet)
}

// RegisterAdmin mounts the staff endpoints. The caller is responsible for
// wrapping them in authentication middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/certificates", h.HandleCreate)
	r.Get("/certificates", h.HandleList)
	r.Get("/certificates/next-number", h.HandleNextNumber)
	r.Get("/certificates/stats", h.HandleStats)
	r.Post("/certificates/refresh-statuses", h.HandleRefreshAll)

	r.Route("/certificates/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Post("/recompute", h.HandleRecompute)
		r.Post("/inspection-check", h.HandleInspectionCheck)
		r.Put("/inspections", h.HandleUpdateInspections)
		r.Post("/revoke", h.HandleRevoke)
		r.Post("/reinstate", h.HandleReinstate)
		r.Post("/auditors", h.HandleAddAuditor)
		r.Get("/auditors", h.HandleListAuditors)
		r.Delete("/auditors/{auditorID}", h.HandleRemoveAuditor)
	})
}

// HandleSearch handles GET /certificates/search?q= requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	certs, err := h.service.Search(ctx, query, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate search failed",
			"request_id", requestcontext.RequestID(ctx),
			"query", query,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: h.present(ctx, certs),
	})
}

// HandleGet handles GET /certificates/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Get(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.presentOne(ctx, c))
}

// HandleCreate handles POST /certificates requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, req.ToDomain(), requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate creation failed",
			"request_id", requestID,
			"number_part", req.NumberPart,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate created",
		"request_id", requestID,
		"certificate_id", c.ID,
		"number_part", c.NumberPart,
		"status", c.Status,
	)
	httputil.WriteJSON(w, http.StatusCreated, h.presentOne(ctx, c))
}

// HandleList handles GET /certificates requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	certs, err := h.service.List(ctx, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Certificates: h.present(ctx, certs),
		Total:        len(certs),
	})
}

// HandleUpdate handles PUT /certificates/{id} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c := req.ToDomain()
	c.ID = id
	updated, err := h.service.Update(ctx, c, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate update failed",
			"request_id", requestID,
			"certificate_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.presentOne(ctx, updated))
}

// HandleDelete handles DELETE /certificates/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "certificate deleted",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecompute handles POST /certificates/{id}/recompute requests.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	today := requestcontext.Now(ctx)
	status, err := h.service.RecomputeStatus(ctx, id, today)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{ID: id, Status: status, AsOf: today})
}

// HandleInspectionCheck handles POST /certificates/{id}/inspection-check requests.
func (h *Handler) HandleInspectionCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.service.ScheduleInspectionCheck(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleUpdateInspections handles PUT /certificates/{id}/inspections requests.
func (h *Handler) HandleUpdateInspections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[InspectionsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.UpdateInspections(ctx, id, req.First(), req.Second(), requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.presentOne(ctx, c))
}

// HandleRevoke handles POST /certificates/{id}/revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Revoke(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "certificate revoked",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", id,
		"admin_id", requestcontext.AdminID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, h.presentOne(ctx, c))
}

// HandleReinstate handles POST /certificates/{id}/reinstate requests.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Reinstate(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "certificate reinstated",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", id,
		"status", c.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, h.presentOne(ctx, c))
}

// HandleNextNumber handles GET /certificates/next-number requests.
func (h *Handler) HandleNextNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	part, err := h.service.NextNumber(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NextNumberResponse{NumberPart: part})
}

// HandleStats handles GET /certificates/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Statistics(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleRefreshAll handles POST /certificates/refresh-statuses requests.
func (h *Handler) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.RefreshAllStatuses(ctx, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleAddAuditor handles POST /certificates/{id}/auditors requests.
func (h *Handler) HandleAddAuditor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[AuditorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.AddAuditor(ctx, id, req.FullName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "auditor added",
		"request_id", requestID,
		"certificate_id", id,
		"audit_number", a.AuditNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// HandleListAuditors handles GET /certificates/{id}/auditors requests.
func (h *Handler) HandleListAuditors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	auditors, err := h.service.ListAuditors(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuditorsResponse{Auditors: auditors})
}

// HandleRemoveAuditor handles DELETE /certificates/{id}/auditors/{auditorID} requests.
func (h *Handler) HandleRemoveAuditor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	auditorID, ok := h.pathID(w, r, "auditorID")
	if !ok {
		return
	}

	if err := h.service.RemoveAuditor(ctx, id, auditorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
		return 0, false
	}
	return id, true
}

func (h *Handler) presentOne(ctx context.Context, c *certificate.Certificate) *CertificateResponse {
	return &CertificateResponse{
		Certificate: c,
		FullNumber:  h.service.FullNumber(ctx, c),
	}
}

func (h *Handler) present(ctx context.Context, certs []*certificate.Certificate) []*CertificateResponse {
	out := make([]*CertificateResponse, 0, len(certs))
	for _, c := range certs {
		out = append(out, h.presentOne(ctx, c))
	}
	return out
}
