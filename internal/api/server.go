package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dronenav/pkg/version"
)

// NewServer creates and configures the HTTP server.
// flights may be nil when the recorder is disabled. shutdown is invoked
// asynchronously by POST /api/shutdown. restart queues a mission restart and
// reports false when one is already pending; nil disables POST /api/restart.
func NewServer(addr string, tel *TelemetryHandler, stats *StatsHandler, flights *FlightHandler, shutdown func(), restart func() bool) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Telemetry Endpoints
	mux.HandleFunc("GET /api/telemetry", tel.handleTelemetry)
	mux.HandleFunc("GET /api/telemetry/stream", tel.handleStream)

	// 2b. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2c. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 2d. Logs Endpoints
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/tail", handleLogTail)

	// 2e. Flight Log Endpoints
	if flights != nil {
		mux.HandleFunc("GET /api/flights", flights.HandleList)
		mux.HandleFunc("GET /api/flights/{id}", flights.HandleGet)
		mux.HandleFunc("GET /api/flights/{id}/telemetry", flights.HandleTelemetry)
		mux.HandleFunc("GET /api/flights/{id}/track", flights.HandleTrack)
	}

	// 3. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 4. Restart Endpoint
	if restart != nil {
		mux.HandleFunc("POST /api/restart", func(w http.ResponseWriter, r *http.Request) {
			if !restart() {
				http.Error(w, "restart already pending", http.StatusConflict)
				return
			}
			slog.Info("Mission restart requested via API")
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("Restarting mission...")); err != nil {
				slog.Error("Failed to write restart response", "error", err)
			}
		})
	}

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
