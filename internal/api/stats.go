package api

import (
	"net/http"
	"runtime"
	"sort"
	"time"

	"dronenav/pkg/tracker"
)

// RecorderStats is implemented by the flight recorder.
type RecorderStats interface {
	FlightID() string
	Written() int64
	Dropped() int64
}

type StatsHandler struct {
	tracker  *tracker.Tracker
	tel      *TelemetryHandler
	recorder RecorderStats
	started  time.Time
}

// NewStatsHandler creates the stats endpoint. rec may be nil.
func NewStatsHandler(t *tracker.Tracker, tel *TelemetryHandler, rec RecorderStats) *StatsHandler {
	return &StatsHandler{
		tracker:  t,
		tel:      tel,
		recorder: rec,
		started:  time.Now(),
	}
}

type WaypointStatsDTO struct {
	Index int `json:"index"`
	tracker.WaypointStats
	SuccessRate int64 `json:"success_rate"`
}

type RuntimeStats struct {
	UptimeSec  float64 `json:"uptime_sec"`
	Goroutines int     `json:"goroutines"`
	HeapMB     uint64  `json:"heap_mb"`
	SysMB      uint64  `json:"sys_mb"`
	NumGC      uint32  `json:"num_gc"`
}

type StreamStats struct {
	Subscribers   int   `json:"subscribers"`
	DroppedFrames int64 `json:"dropped_frames"`
}

type RecorderStatsDTO struct {
	FlightID string `json:"flight_id"`
	Written  int64  `json:"written"`
	Dropped  int64  `json:"dropped"`
}

type StatsResponse struct {
	Waypoints []WaypointStatsDTO `json:"waypoints"`
	Runtime   RuntimeStats       `json:"runtime"`
	Stream    StreamStats        `json:"stream"`
	Recorder  *RecorderStatsDTO  `json:"recorder,omitempty"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Waypoints: make([]WaypointStatsDTO, 0, len(snapshot)),
		Runtime:   h.runtimeStats(),
	}

	for idx, stats := range snapshot {
		rate := int64(0)
		if stats.Attempts > 0 {
			rate = (stats.Successes * 100) / stats.Attempts
		}
		resp.Waypoints = append(resp.Waypoints, WaypointStatsDTO{
			Index:         idx,
			WaypointStats: stats,
			SuccessRate:   rate,
		})
	}
	sort.Slice(resp.Waypoints, func(i, j int) bool {
		return resp.Waypoints[i].Index < resp.Waypoints[j].Index
	})

	if h.tel != nil {
		resp.Stream = StreamStats{
			Subscribers:   h.tel.Subscribers(),
			DroppedFrames: h.tel.Dropped(),
		}
	}
	if h.recorder != nil {
		resp.Recorder = &RecorderStatsDTO{
			FlightID: h.recorder.FlightID(),
			Written:  h.recorder.Written(),
			Dropped:  h.recorder.Dropped(),
		}
	}

	writeJSON(w, resp)
}

func (h *StatsHandler) runtimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		UptimeSec:  time.Since(h.started).Seconds(),
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     bToMb(m.HeapAlloc),
		SysMB:      bToMb(m.Sys),
		NumGC:      m.NumGC,
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
