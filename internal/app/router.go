package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tradebill/tradebill/internal/actions"
	"github.com/tradebill/tradebill/internal/billing"
	"github.com/tradebill/tradebill/internal/observability"
	"github.com/tradebill/tradebill/internal/reporting"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	BillingHandler   *billing.Handler
	ReportingHandler *reporting.Handler
	ActionsHandler   *actions.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Tradebill defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		params.BillingHandler.MountRoutes(r)
		params.ReportingHandler.MountRoutes(r)
		params.ActionsHandler.MountRoutes(r)
	})

	return r
}
