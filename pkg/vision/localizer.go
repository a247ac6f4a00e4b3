package vision

import (
	"context"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config tunes feature extraction and the match decision.
type Config struct {
	// MaxFeatures caps the keypoints kept per image, strongest first.
	MaxFeatures int
	// MaxDimension bounds the longer image side before detection. 0 disables scaling.
	MaxDimension  int
	FASTThreshold int
	// RatioThreshold is the nearest/second-nearest acceptance ratio.
	RatioThreshold float64
	// ConfidenceBaseline is the accepted-match count that maps to confidence 1.0.
	ConfidenceBaseline float64
	// ConfidenceThreshold is the minimum confidence for a successful match.
	ConfidenceThreshold float64
}

// DefaultConfig returns the stock localizer settings.
func DefaultConfig() Config {
	return Config{
		MaxFeatures:         500,
		MaxDimension:        640,
		FASTThreshold:       20,
		RatioThreshold:      0.7,
		ConfidenceBaseline:  100,
		ConfidenceThreshold: 0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.MaxDimension < 0 {
		c.MaxDimension = d.MaxDimension
	}
	if c.FASTThreshold <= 0 {
		c.FASTThreshold = d.FASTThreshold
	}
	if c.RatioThreshold <= 0 {
		c.RatioThreshold = d.RatioThreshold
	}
	if c.ConfidenceBaseline <= 0 {
		c.ConfidenceBaseline = d.ConfidenceBaseline
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	return c
}

// Result is the outcome of one localization attempt.
type Result struct {
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Matches    int     `json:"matches"`
}

// Localizer scores live camera frames against precomputed reference features.
// The reference set is immutable after New, so MatchWaypoint is safe for concurrent use.
type Localizer struct {
	cfg  Config
	refs []*Features
}

// New extracts features for every reference image. Index i corresponds to the
// (i+1)-th route waypoint. Nil images produce an empty feature set.
func New(refs []image.Image, cfg Config) *Localizer {
	cfg = cfg.withDefaults()
	l := &Localizer{
		cfg:  cfg,
		refs: make([]*Features, len(refs)),
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, img := range refs {
		g.Go(func() error {
			l.refs[i] = extract(img, cfg)
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range l.refs {
		if f.Len() == 0 {
			slog.Warn("Reference image has no usable features", "index", i)
			continue
		}
		slog.Debug("Reference features extracted", "index", i, "count", f.Len())
	}
	return l
}

// Count returns the number of reference slots.
func (l *Localizer) Count() int {
	return len(l.refs)
}

// FeatureCount returns the descriptor count of reference i, or 0 when out of range.
func (l *Localizer) FeatureCount(i int) int {
	if i < 0 || i >= len(l.refs) {
		return 0
	}
	return l.refs[i].Len()
}

// Config returns the effective settings.
func (l *Localizer) Config() Config {
	return l.cfg
}

// MatchWaypoint compares live against reference i.
func (l *Localizer) MatchWaypoint(live image.Image, i int) Result {
	res, _ := l.MatchEvidence(live, i)
	return res
}

// Evidence is what a match decision was drawn from. It backs diagnostics and
// never travels with telemetry.
type Evidence struct {
	Ref    int
	Live   *Features
	Pairs  []Match
	Result Result
}

// MatchEvidence scores like MatchWaypoint and also returns the live features
// and accepted pairs. The evidence is nil when i names no reference.
func (l *Localizer) MatchEvidence(live image.Image, i int) (Result, *Evidence) {
	if i < 0 || i >= len(l.refs) {
		return Result{}, nil
	}
	ev := &Evidence{Ref: i}
	if l.refs[i].Len() == 0 {
		return Result{}, ev
	}
	ev.Live = extract(live, l.cfg)
	if ev.Live.Len() == 0 {
		return Result{}, ev
	}

	ev.Pairs = ratioMatch(l.refs[i].Descriptors, ev.Live.Descriptors, l.cfg.RatioThreshold)
	conf := float64(len(ev.Pairs)) / l.cfg.ConfidenceBaseline
	ev.Result = Result{
		Success:    conf >= l.cfg.ConfidenceThreshold,
		Confidence: conf,
		Matches:    len(ev.Pairs),
	}
	return ev.Result, ev
}
