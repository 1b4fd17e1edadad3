// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// Notifier publishes API-driven events to the websocket stream. A nil
// Notifier is valid and drops events.
type Notifier interface {
	Publish(event interface{})
}
