package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/views"
	"climate-server/internal/utils"
)

const noTemperatureDataMessage = "No temperature data found for the given date range. Try another date range."

var welcomeData = views.WelcomeData{
	Title: "Climate App API for Honolulu, Hawaii",
	Routes: []views.Route{
		{Path: apiPrefix + "/precipitation"},
		{Path: apiPrefix + "/stations"},
		{Path: apiPrefix + "/tobs"},
		{Path: apiPrefix + "/<start>", Description: "YYYY-MM-DD"},
		{Path: apiPrefix + "/<start>/<end>", Description: "YYYY-MM-DD"},
	},
}

func (c *climateControllerImpl) handleWelcome(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := views.RenderWelcome(&buf, &welcomeData); err != nil {
		slog.Error("welcome template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("welcome: write response failed", "error", err)
	}
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	readings, err := c.repository.GetPrecipitation(r.Context())
	if err != nil {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	active, observations, err := c.repository.GetActiveStationTemperatures(r.Context())
	if errors.Is(err, repository.ErrNoObservations) {
		slog.Warn("tobs: no observations in store")
		utils.WriteError(w, http.StatusInternalServerError, "no temperature observations available")
		return
	}
	if err != nil {
		slog.Error("tobs: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}

	attrs := []any{"station", active.Station, "count", active.Count}
	if !active.Stats.Empty() {
		attrs = append(attrs, "min", *active.Stats.Min, "avg", *active.Stats.Avg, "max", *active.Stats.Max)
	}
	slog.DebugContext(r.Context(), "tobs: most active station", attrs...)

	utils.WriteJSON(w, http.StatusOK, observations)
}

func (c *climateControllerImpl) handleTemperatureRange(w http.ResponseWriter, r *http.Request) {
	dr, err := parseDateRange(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.repository.GetTemperatureStats(r.Context(), dr)
	if err != nil {
		slog.Error("temperature range: query failed", "start", dr.Start, "end", dr.End, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature statistics")
		return
	}

	if stats.Empty() {
		if c.metrics != nil {
			c.metrics.NoDataResponses.Inc()
		}
		utils.WriteText(w, http.StatusOK, noTemperatureDataMessage)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
