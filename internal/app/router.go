package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// Pinger reports backing store availability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	LedgerHandler *ledger.Handler
	APHandler     *ap.Handler
	ARHandler     *ar.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	Database      Pinger
}

// NewRouter constructs the chi.Router with ledger API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Database.Ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.APHandler != nil {
			params.APHandler.MountRoutes(r)
		}
		if params.ARHandler != nil {
			params.ARHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
