package climate

import (
	"github.com/go-chi/chi/v5"

	"climate-server/internal/config"
	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/observability"
)

// RegisterFeature mounts the welcome page and the /api/v1.0 routes on r.
// metrics may be nil.
func RegisterFeature(r chi.Router, sessions repository.Sessioner, cfg config.Config, metrics *observability.Metrics) {
	opts := []repository.Option{repository.WithMetrics(metrics)}
	if !cfg.ReferenceDate.IsZero() {
		opts = append(opts, repository.WithReferenceDate(cfg.ReferenceDate))
	}
	climateRepository := repository.NewRepository(sessions, opts...)
	climateController := controller.NewClimateController(climateRepository, metrics)
	climateController.RegisterRoutes(r)
}
