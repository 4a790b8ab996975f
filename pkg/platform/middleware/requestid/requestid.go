// Package requestid assigns a unique ID to every request for log correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"certregistry/pkg/requestcontext"
)

// Header carries the request ID back to the caller.
const Header = "X-Request-Id"

// Middleware reuses an inbound request ID when present, otherwise generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
