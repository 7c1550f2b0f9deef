package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/erpnext"
	"github.com/batasku/periodgate/internal/observability"
	periodhttp "github.com/batasku/periodgate/internal/period/http"
	"github.com/batasku/periodgate/internal/proxy"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Upstream      *erpnext.Client
	Resolver      *authz.Resolver
	PeriodHandler *periodhttp.Handler
	ProxyHandler  *proxy.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router for the period closing service.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		if params.Upstream != nil {
			if err := params.Upstream.Ping(ctx); err != nil {
				params.Logger.WarnContext(ctx, "upstream health check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","upstream":"unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Everything below requires a valid upstream session.
	r.Group(func(r chi.Router) {
		r.Use(params.Resolver.RequireActor(params.Logger))
		if params.PeriodHandler != nil {
			params.PeriodHandler.MountRoutes(r)
		}
		if params.ProxyHandler != nil {
			params.ProxyHandler.MountRoutes(r)
		}
	})

	return r
}
