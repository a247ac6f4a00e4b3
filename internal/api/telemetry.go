package api

import (
	"net/http"
	"sync"

	"dronenav/pkg/flight"
)

// TelemetryHandler serves the latest flight snapshot and streams every
// snapshot to websocket subscribers.
type TelemetryHandler struct {
	mu       sync.RWMutex
	snapshot flight.Snapshot
	hub      *hub
}

// NewTelemetryHandler returns a handler with no snapshot yet and no stream subscribers.
func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{hub: newHub()}
}

// Update implements mission.Sink. It never blocks on subscribers.
func (h *TelemetryHandler) Update(s flight.Snapshot) {
	h.mu.Lock()
	h.snapshot = s
	h.mu.Unlock()

	h.hub.broadcast(s)
}

// Latest returns the most recent snapshot.
func (h *TelemetryHandler) Latest() flight.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// Subscribers returns the number of connected stream clients.
func (h *TelemetryHandler) Subscribers() int {
	return h.hub.count()
}

// Dropped returns how many frames slow stream clients missed.
func (h *TelemetryHandler) Dropped() int64 {
	return h.hub.dropped.Load()
}

// Close disconnects all stream clients.
func (h *TelemetryHandler) Close() {
	h.hub.closeAll()
}

func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Latest())
}
