// Package metadata captures client IP and User-Agent for admin action logs.
package metadata

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"certregistry/pkg/requestcontext"
)

// Middleware stores client IP and User-Agent in the request context and logs
// the parsed browser family for admin endpoints.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ua := r.UserAgent()
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua)

			if logger != nil && ua != "" {
				parsed := useragent.New(ua)
				browser, version := parsed.Browser()
				logger.DebugContext(ctx, "request metadata",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", ip,
					"browser", browser,
					"browser_version", version,
					"os", parsed.OS(),
					"bot", parsed.Bot(),
				)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP prefers X-Forwarded-For set by the reverse proxy, falling back to
// the socket peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
