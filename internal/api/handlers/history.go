package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// HistoryHandler serves instrument and sector time series.
type HistoryHandler struct {
	instruments contracts.InstrumentHistory
	sectors     contracts.SectorHistory
	logger      *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(instruments contracts.InstrumentHistory, sectors contracts.SectorHistory, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		instruments: instruments,
		sectors:     sectors,
		logger:      log,
	}
}

// parseRange reads from/to query parameters, defaulting to the trailing 90
// days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' date format (expected YYYY-MM-DD)")
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' date format (expected YYYY-MM-DD)")
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("'to' precedes 'from'")
	}
	return from, to, nil
}

// GetInstrumentHistory returns an instrument's observations.
// GET /api/instruments/{symbol}/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *HistoryHandler) GetInstrumentHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	from, to, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := h.instruments.Range(r.Context(), symbol, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to query instrument history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve instrument history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":       symbol,
		"observations": observations,
	})
}

// GetSectorHistory returns a sector's observations.
// GET /api/sectors/{name}/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *HistoryHandler) GetSectorHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	from, to, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := h.sectors.Range(r.Context(), name, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("sector", name).Error("Failed to query sector history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sector history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sector":       name,
		"observations": observations,
	})
}

// GetSectorLatest returns a sector's most recent observation.
// GET /api/sectors/{name}/latest
func (h *HistoryHandler) GetSectorLatest(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	obs, err := h.sectors.Latest(r.Context(), name)
	if errors.Is(err, contracts.ErrNoObservations) {
		respondError(w, http.StatusNotFound, "No observations for sector")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("sector", name).Error("Failed to query latest sector observation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sector observation")
		return
	}

	respondJSON(w, http.StatusOK, obs)
}

// GetSectors returns the latest observation of every sector.
// GET /api/sectors
func (h *HistoryHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	observations, err := h.sectors.LatestAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to query latest sector observations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sectors")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sectors": observations,
	})
}
