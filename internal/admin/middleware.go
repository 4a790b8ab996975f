package admin

import (
	"net/http"
	"strings"

	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/httputil"
	"certregistry/pkg/requestcontext"
)

// Middleware rejects requests without a valid bearer token and stores the
// authenticated staff username in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}

		username, err := s.Authenticate(token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := requestcontext.WithAdminID(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
