// Package http assembles the registry's HTTP surface: the public
// verification endpoints, the JWT-protected staff API, and the operational
// endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certregistry/internal/admin"
	"certregistry/internal/artifact"
	"certregistry/internal/certificate"
	certhandler "certregistry/internal/certificate/handler"
	"certregistry/internal/notify"
	stdhandler "certregistry/internal/standard/handler"
	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/httputil"
	"certregistry/pkg/platform/middleware/metadata"
	"certregistry/pkg/platform/middleware/requestid"
	"certregistry/pkg/platform/middleware/requesttime"
	"certregistry/pkg/requestcontext"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts. Optional fields may be nil and
// their routes degrade accordingly.
type Deps struct {
	Certificates *certhandler.Handler
	Standards    *stdhandler.Handler
	Admin        *admin.Handler
	AdminAuth    *admin.Service
	Sweeper      *notify.Sweeper
	Certificate  *certificate.Service
	Artifacts    *artifact.Manager
	Redis        HealthChecker
	Logger       *slog.Logger
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware(d.Logger))

	// Public surface: verification and operational endpoints.
	r.Get("/healthz", handleHealth(d.Redis))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	d.Certificates.RegisterPublic(r)
	d.Admin.RegisterPublic(r)
	r.Get("/certificates/{id}/qr", handleQR(d))

	// Staff surface behind JWT auth.
	r.Route("/admin", func(r chi.Router) {
		r.Use(d.AdminAuth.Middleware)
		d.Certificates.RegisterAdmin(r)
		d.Standards.RegisterAdmin(r)
		r.Post("/notifications/run", handleNotificationsRun(d))
		r.Get("/notifications/due", handleNotificationsDue(d))
	})

	return r
}

func handleHealth(redis HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redis != nil {
			if err := redis.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"redis":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleQR streams the stored QR image for a certificate.
func handleQR(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid identifier"))
			return
		}

		c, err := d.Certificate.Get(ctx, id, requestcontext.Now(ctx))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if c.QRCodePath == "" || d.Artifacts == nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "QR code not generated"))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, d.Artifacts.QRPath(c.QRCodePath))
	}
}

func handleNotificationsRun(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		result, err := d.Sweeper.Run(ctx, requestcontext.Now(ctx))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		d.Logger.InfoContext(ctx, "reminder sweep triggered manually",
			"admin_id", requestcontext.AdminID(ctx),
			"sent", result.Sent,
		)
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

func handleNotificationsDue(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		due, err := d.Sweeper.NotificationsDueToday(ctx, requestcontext.Now(ctx))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"due":   due,
			"total": len(due),
		})
	}
}
