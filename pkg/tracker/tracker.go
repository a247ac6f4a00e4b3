// Package tracker keeps per-waypoint localization statistics.
package tracker

import (
	"math"
	"sync"
	"sync/atomic"
)

// Tracker counts localization attempts per route waypoint index.
type Tracker struct {
	mu    sync.RWMutex
	stats map[int]*waypointCounters
}

type waypointCounters struct {
	hoverAttempts  atomic.Int64
	searchAttempts atomic.Int64
	successes      atomic.Int64
	bestConfidence atomic.Uint64 // float64 bits
	lastConfidence atomic.Uint64 // float64 bits
}

// WaypointStats is a point-in-time copy of one waypoint's counters.
type WaypointStats struct {
	Attempts       int64   `json:"attempts"`
	HoverAttempts  int64   `json:"hover_attempts"`
	SearchAttempts int64   `json:"search_attempts"`
	Successes      int64   `json:"successes"`
	Failures       int64   `json:"failures"`
	BestConfidence float64 `json:"best_confidence"`
	LastConfidence float64 `json:"last_confidence"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[int]*waypointCounters),
	}
}

func (t *Tracker) get(wp int) *waypointCounters {
	t.mu.RLock()
	c, ok := t.stats[wp]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.stats[wp]; ok {
		return c
	}
	c = &waypointCounters{}
	t.stats[wp] = c
	return c
}

// Track records one attempt. searching distinguishes spiral-search attempts
// from the single attempt made while hovering.
func (t *Tracker) Track(wp int, searching, success bool, confidence float64) {
	c := t.get(wp)
	if searching {
		c.searchAttempts.Add(1)
	} else {
		c.hoverAttempts.Add(1)
	}
	if success {
		c.successes.Add(1)
	}

	c.lastConfidence.Store(math.Float64bits(confidence))
	for {
		old := c.bestConfidence.Load()
		if math.Float64frombits(old) >= confidence {
			break
		}
		if c.bestConfidence.CompareAndSwap(old, math.Float64bits(confidence)) {
			break
		}
	}
}

// Snapshot returns a copy of the current stats keyed by waypoint index.
func (t *Tracker) Snapshot() map[int]WaypointStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[int]WaypointStats, len(t.stats))
	for wp, c := range t.stats {
		hover := c.hoverAttempts.Load()
		search := c.searchAttempts.Load()
		ok := c.successes.Load()
		result[wp] = WaypointStats{
			Attempts:       hover + search,
			HoverAttempts:  hover,
			SearchAttempts: search,
			Successes:      ok,
			Failures:       hover + search - ok,
			BestConfidence: math.Float64frombits(c.bestConfidence.Load()),
			LastConfidence: math.Float64frombits(c.lastConfidence.Load()),
		}
	}
	return result
}
