package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"dronenav/pkg/store"
)

const (
	defaultFlightLimit = 20
	trackCacheSize     = 32
)

// FlightHandler serves recorded flights from the flight log.
type FlightHandler struct {
	store store.FlightStore
	// tracks holds encoded GeoJSON of finished flights, which never change.
	tracks *lru.Cache[string, []byte]
}

// NewFlightHandler returns nil when there is no store, which disables the endpoints.
func NewFlightHandler(st store.FlightStore) *FlightHandler {
	if st == nil {
		return nil
	}
	tracks, _ := lru.New[string, []byte](trackCacheSize) // only fails for size <= 0
	return &FlightHandler{store: st, tracks: tracks}
}

// FlightDetail is a flight with its match attempts.
type FlightDetail struct {
	store.FlightRecord
	Attempts []store.AttemptRecord `json:"attempts"`
}

// HandleList returns the most recent flights.
// GET /api/flights?limit=N
func (h *FlightHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultFlightLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	flights, err := h.store.ListFlights(r.Context(), limit)
	if err != nil {
		slog.Error("FlightHandler: failed to list flights", "error", err)
		http.Error(w, "failed to list flights", http.StatusInternalServerError)
		return
	}
	if flights == nil {
		flights = []store.FlightRecord{}
	}
	writeJSON(w, flights)
}

// lookupFlight loads the flight named in the path, answering 404 or 500 itself
// when it returns nil.
func (h *FlightHandler) lookupFlight(w http.ResponseWriter, r *http.Request) *store.FlightRecord {
	id := r.PathValue("id")
	f, err := h.store.GetFlight(r.Context(), id)
	if err != nil {
		slog.Error("FlightHandler: failed to load flight", "id", id, "error", err)
		http.Error(w, "failed to load flight", http.StatusInternalServerError)
		return nil
	}
	if f == nil {
		http.NotFound(w, r)
	}
	return f
}

// HandleGet returns one flight and its attempts.
// GET /api/flights/{id}
func (h *FlightHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f := h.lookupFlight(w, r)
	if f == nil {
		return
	}

	attempts, err := h.store.GetAttempts(r.Context(), f.ID)
	if err != nil {
		slog.Error("FlightHandler: failed to load attempts", "id", f.ID, "error", err)
		http.Error(w, "failed to load attempts", http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []store.AttemptRecord{}
	}
	writeJSON(w, FlightDetail{FlightRecord: *f, Attempts: attempts})
}

// HandleTelemetry returns the sampled telemetry of one flight.
// GET /api/flights/{id}/telemetry
func (h *FlightHandler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	f := h.lookupFlight(w, r)
	if f == nil {
		return
	}

	rows, err := h.store.GetTelemetry(r.Context(), f.ID)
	if err != nil {
		slog.Error("FlightHandler: failed to load telemetry", "id", f.ID, "error", err)
		http.Error(w, "failed to load telemetry", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.TelemetryRecord{}
	}
	writeJSON(w, rows)
}

// HandleTrack returns the flown path and the attempt positions as GeoJSON.
// GET /api/flights/{id}/track
func (h *FlightHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	data, ok := h.tracks.Get(r.PathValue("id"))
	if !ok {
		f := h.lookupFlight(w, r)
		if f == nil {
			return
		}
		var err error
		data, err = h.encodeTrack(r.Context(), f)
		if err != nil {
			slog.Error("FlightHandler: failed to build track", "id", f.ID, "error", err)
			http.Error(w, "failed to build track", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write track response", "error", err)
	}
}

// encodeTrack builds the GeoJSON for f. Only flights already finished when f
// was read are cached: the recorder drains every row before it stamps the
// flight, so their rows can no longer change.
func (h *FlightHandler) encodeTrack(ctx context.Context, f *store.FlightRecord) ([]byte, error) {
	rows, err := h.store.GetTelemetry(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	attempts, err := h.store.GetAttempts(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	data, err := trackCollection(f.ID, rows, attempts).MarshalJSON()
	if err != nil {
		return nil, err
	}

	if f.FinishedAt != nil {
		h.tracks.Add(f.ID, data)
	}
	return data, nil
}

func trackCollection(id string, rows []store.TelemetryRecord, attempts []store.AttemptRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(rows) > 0 {
		line := make(orb.LineString, 0, len(rows))
		for _, row := range rows {
			line = append(line, orb.Point{row.Snapshot.Lon, row.Snapshot.Lat})
		}
		f := geojson.NewFeature(line)
		f.Properties["flight_id"] = id
		f.Properties["final_state"] = rows[len(rows)-1].Snapshot.State
		fc.Append(f)
	}

	for _, a := range attempts {
		f := geojson.NewFeature(orb.Point{a.Lon, a.Lat})
		f.Properties["sim_time"] = a.SimTime
		f.Properties["waypoint_index"] = a.Attempt.WaypointIndex
		f.Properties["state"] = a.Attempt.State
		f.Properties["success"] = a.Attempt.Result.Success
		f.Properties["confidence"] = a.Attempt.Result.Confidence
		fc.Append(f)
	}
	return fc
}
