package handlers

import (
	"net/http"
	"time"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/internal/scoring"
	"github.com/t2dlabs/pulse/internal/weights"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// PulseHandler serves the composite sentiment score.
type PulseHandler struct {
	sectors       contracts.SectorHistory
	redistributor *weights.Redistributor
	logger        *logger.Logger
}

// NewPulseHandler creates a new pulse handler.
func NewPulseHandler(sectors contracts.SectorHistory, redistributor *weights.Redistributor, log *logger.Logger) *PulseHandler {
	return &PulseHandler{
		sectors:       sectors,
		redistributor: redistributor,
		logger:        log,
	}
}

// PulseResponse is the composite score with its inputs.
type PulseResponse struct {
	Pulse   float64             `json:"pulse"`
	AsOf    time.Time           `json:"as_of"`
	Sectors map[string]*float64 `json:"sectors"`
	Weights map[string]float64  `json:"weights"`
}

// Get computes the pulse from the latest sector sentiments and the current
// weight vector.
// GET /api/pulse
func (h *PulseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := h.sectors.LatestAll(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query latest sector observations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sector observations")
		return
	}

	current, err := h.redistributor.Current(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load weights")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve weights")
		return
	}

	sentiments := make(map[string]*float64, len(latest))
	var asOf time.Time
	for _, obs := range latest {
		sentiments[obs.Sector] = obs.Sentiment
		if obs.Date.After(asOf) {
			asOf = obs.Date
		}
	}

	pulse, ok := scoring.Composite(current, sentiments)
	if !ok {
		respondError(w, http.StatusNotFound, contracts.ErrUndefinedSentiment.Error())
		return
	}

	respondJSON(w, http.StatusOK, PulseResponse{
		Pulse:   pulse,
		AsOf:    asOf,
		Sectors: sentiments,
		Weights: current,
	})
}
