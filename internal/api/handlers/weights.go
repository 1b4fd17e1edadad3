package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/t2dlabs/pulse/internal/contracts"
	"github.com/t2dlabs/pulse/internal/weights"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// WeightsHandler serves the sector weight vector and its single mutation
// entry point.
type WeightsHandler struct {
	redistributor *weights.Redistributor
	notifier      Notifier
	logger        *logger.Logger
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(redistributor *weights.Redistributor, notifier Notifier, log *logger.Logger) *WeightsHandler {
	return &WeightsHandler{
		redistributor: redistributor,
		notifier:      notifier,
		logger:        log,
	}
}

// Get returns the current weight vector.
// GET /api/weights
func (h *WeightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.redistributor.Current(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load weights")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve weights")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"weights": current,
	})
}

// EditRequest is the body of a weight edit.
type EditRequest struct {
	Weight float64 `json:"weight"`
}

// Put sets one sector's weight and redistributes the rest.
// PUT /api/weights/{sector}
func (h *WeightsHandler) Put(w http.ResponseWriter, r *http.Request) {
	sector := mux.Vars(r)["sector"]

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.redistributor.ApplyEdit(r.Context(), sector, req.Weight)
	if err != nil {
		var weightErr *contracts.WeightError
		if errors.As(err, &weightErr) {
			status := http.StatusBadRequest
			switch weightErr.Reason {
			case contracts.WeightUnknownSector:
				status = http.StatusNotFound
			case contracts.WeightInfeasible:
				status = http.StatusUnprocessableEntity
			}
			respondJSON(w, status, map[string]string{
				"error":  weightErr.Error(),
				"reason": string(weightErr.Reason),
			})
			return
		}

		h.logger.WithError(err).WithField("sector", sector).Error("Failed to apply weight edit")
		respondError(w, http.StatusInternalServerError, "Failed to apply weight edit")
		return
	}

	if h.notifier != nil {
		h.notifier.Publish(map[string]interface{}{
			"type":    "weights",
			"weights": updated,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"weights": updated,
	})
}
