package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/t2dlabs/pulse/internal/ingest"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// CollectHandler triggers ingestion runs over HTTP.
type CollectHandler struct {
	collector *ingest.Collector
	notifier  Notifier
	logger    *logger.Logger
}

// NewCollectHandler creates a new collect handler.
func NewCollectHandler(collector *ingest.Collector, notifier Notifier, log *logger.Logger) *CollectHandler {
	return &CollectHandler{
		collector: collector,
		notifier:  notifier,
		logger:    log,
	}
}

// CollectRequest optionally names the trading day to ingest.
type CollectRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, defaults to today
}

// Collect runs one ingestion pass and returns its report.
// POST /api/collect
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	h.logger.WithField("date", date.Format("2006-01-02")).Info("Ingestion run triggered over HTTP")

	report, err := h.collector.Run(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Ingestion run failed")
		respondError(w, http.StatusInternalServerError, "Ingestion run failed")
		return
	}

	if h.notifier != nil {
		h.notifier.Publish(map[string]interface{}{
			"type":   "ingestion",
			"report": report,
		})
	}

	respondJSON(w, http.StatusOK, report)
}
