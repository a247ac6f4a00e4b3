// Package probe runs named preflight checks before the flight starts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

// CheckFunc performs a check and returns nil when it passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single preflight check.
type Probe struct {
	Name  string
	Check CheckFunc
	// Critical failures abort the flight; the rest are logged as warnings.
	Critical bool
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Error == nil }

// Run executes probes in order and returns their results.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}
	return results
}

// AnalyzeResults logs a summary line per probe and returns the joined errors
// of the critical probes that failed.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error
	warnings := 0

	slog.Info("Preflight checks", "count", len(results))
	for _, r := range results {
		attrs := []any{"probe", r.Probe.Name, "took", r.Duration.Round(time.Millisecond)}
		switch {
		case r.Passed():
			slog.Info("Preflight PASS", attrs...)
		case r.Probe.Critical:
			slog.Error("Preflight FAIL", append(attrs, "error", r.Error)...)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			warnings++
			slog.Warn("Preflight WARN", append(attrs, "error", r.Error)...)
		}
	}

	if warnings > 0 {
		slog.Warn("Preflight finished with warnings", "warnings", warnings)
	}
	return errors.Join(criticalErrors...)
}
