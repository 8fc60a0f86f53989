// Package httptransport assembles the HTTP surface: one chi router carrying
// the three registries, role administration, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veristry/internal/transport/http/middleware"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Identity       *IdentityHandler
	DataPermission *DataPermissionHandler
	Agreement      *AgreementHandler
	Admin          *AdminHandler
	Validator      middleware.CallerValidator
	Logger         *slog.Logger
	Health         func() error
}

// NewRouter builds the service router. All /v1 routes require a caller token;
// /healthz and /metrics stay open for probes and scrapers.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unhealthy"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.RequireCaller(deps.Validator, deps.Logger))
		v1.Use(middleware.ContentTypeJSON)

		deps.Identity.Register(v1)
		deps.DataPermission.Register(v1)
		deps.Agreement.Register(v1)
		deps.Admin.Register(v1)
	})

	return r
}
