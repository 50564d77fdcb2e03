package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the transport-level knobs.
type RouterConfig struct {
	AdminToken string
}

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/credentials", func(r chi.Router) {
		r.Post("/", h.handleIssueCredential)
		r.Post("/bulk", h.handleBulkIssue)
		r.Get("/{id}", h.handleGetCredential)
		r.Post("/{id}/revoke", h.handleRevokeCredential)
		r.Post("/{id}/share", h.handleShareCredential)
	})

	r.Get("/bulk/jobs/{id}", h.handleGetBulkJob)

	r.Get("/verify", h.handleVerifyToken)
	r.Get("/verify/{hash}", h.handleVerifyHash)

	r.Get("/share/{id}", h.handleResolveShare)

	r.Route("/issuers", func(r chi.Router) {
		r.Get("/{id}", h.handleGetIssuer)
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(cfg.AdminToken))
			r.Post("/", h.handleRegisterIssuer)
			r.Post("/{id}/revoke", h.handleRevokeIssuer)
		})
	})

	return r
}
