package controller

import (
	"github.com/go-chi/chi/v5"

	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/observability"
)

const apiPrefix = "/api/v1.0"

type ClimateController interface {
	RegisterRoutes(r chi.Router)
}

type climateControllerImpl struct {
	repository repository.ClimateRepository
	metrics    *observability.Metrics
}

// NewClimateController wires handlers to repo. metrics may be nil.
func NewClimateController(repo repository.ClimateRepository, metrics *observability.Metrics) ClimateController {
	return &climateControllerImpl{repository: repo, metrics: metrics}
}

func (c *climateControllerImpl) RegisterRoutes(r chi.Router) {
	r.Get("/", c.handleWelcome)
	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/precipitation", c.handlePrecipitation)
		r.Get("/stations", c.handleStations)
		r.Get("/tobs", c.handleTobs)
		r.Get("/{start}", c.handleTemperatureRange)
		r.Get("/{start}/{end}", c.handleTemperatureRange)
	})
}
