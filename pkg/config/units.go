package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
}

// Meters per unit. A bare number is meters.
var distanceUnits = map[string]float64{
	"":   1,
	"m":  1,
	"km": 1000,
	"nm": 1852,
	"ft": 0.3048,
}

type quantity struct {
	value float64
	unit  string
}

var quantityRe = regexp.MustCompile(`(\d+(?:\.\d*)?|\.\d+)([a-zµ]*)`)

// scanQuantities splits "2d2h" into {2 d} {2 h}. The pairs must cover the
// whole input.
func scanQuantities(s string) ([]quantity, error) {
	locs := quantityRe.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 || locs[0][0] != 0 || locs[len(locs)-1][1] != len(s) {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}

	out := make([]quantity, 0, len(locs))
	end := 0
	for _, loc := range locs {
		if loc[0] != end {
			return nil, fmt.Errorf("invalid quantity %q", s)
		}
		end = loc[1]
		v, err := strconv.ParseFloat(s[loc[2]:loc[3]], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number in %q: %w", s, err)
		}
		out = append(out, quantity{value: v, unit: s[loc[4]:loc[5]]})
	}
	return out, nil
}

// Duration wraps time.Duration to support extended units (d, w) in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Seconds returns the duration in seconds.
func (d Duration) Seconds() float64 { return time.Duration(d).Seconds() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration accepts everything time.ParseDuration does plus d (day) and
// w (week), also in composites like "2d2h". Empty input is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if dur, err := time.ParseDuration(s); err == nil {
		return dur, nil
	}

	parts, err := scanQuantities(s)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, p := range parts {
		base, ok := durationUnits[p.unit]
		if !ok {
			return 0, fmt.Errorf("unknown duration unit %q in %q", p.unit, s)
		}
		total += time.Duration(p.value * float64(base))
	}
	return total, nil
}

// Distance represents a distance in meters.
type Distance float64

// Meters returns the distance as a plain float.
func (d Distance) Meters() float64 { return float64(d) }

// UnmarshalYAML implements yaml.Unmarshaler. Plain numbers are meters.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dist, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = Distance(dist)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Distance) MarshalYAML() (any, error) {
	return strconv.FormatFloat(float64(d), 'f', -1, 64) + "m", nil
}

// ParseDistance converts a single m, km, nm or ft quantity to meters.
func ParseDistance(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, nil
	}

	parts, err := scanQuantities(s)
	if err != nil {
		return 0, err
	}
	if len(parts) != 1 {
		return 0, fmt.Errorf("distance %q must be a single quantity", s)
	}
	mult, ok := distanceUnits[parts[0].unit]
	if !ok {
		return 0, fmt.Errorf("unknown distance unit %q in %q", parts[0].unit, s)
	}
	return parts[0].value * mult, nil
}
