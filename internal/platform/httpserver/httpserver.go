package httpserver

import (
	"net/http"
	"time"
)

// New builds the registry's HTTP server. The write timeout leaves headroom
// for the admin endpoints that walk the whole registry (status refresh,
// notification runs) before responding.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
