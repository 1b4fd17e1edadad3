package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/t2dlabs/pulse/internal/api/handlers"
	"github.com/t2dlabs/pulse/pkg/logger"
)

// NewRouter wires the endpoint handlers into the HTTP router.
func NewRouter(
	history *handlers.HistoryHandler,
	weights *handlers.WeightsHandler,
	pulse *handlers.PulseHandler,
	collect *handlers.CollectHandler,
	hub *Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/instruments/{symbol}/history", history.GetInstrumentHistory).Methods("GET")
	api.HandleFunc("/sectors", history.GetSectors).Methods("GET")
	api.HandleFunc("/sectors/{name}/history", history.GetSectorHistory).Methods("GET")
	api.HandleFunc("/sectors/{name}/latest", history.GetSectorLatest).Methods("GET")

	api.HandleFunc("/pulse", pulse.Get).Methods("GET")

	api.HandleFunc("/weights", weights.Get).Methods("GET")
	api.HandleFunc("/weights/{sector}", weights.Put).Methods("PUT")

	api.HandleFunc("/collect", collect.Collect).Methods("POST")

	api.Handle("/stream", hub).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "pulse-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
