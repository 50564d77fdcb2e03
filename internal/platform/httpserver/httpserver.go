package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Per-request deadlines come from router
// middleware; these are transport-level backstops.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
