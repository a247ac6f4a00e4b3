package mission

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dronenav/pkg/config"
	"dronenav/pkg/flight"
	"dronenav/pkg/groundmap"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SnapshotName is the reference file name for route waypoint i (i >= 1).
// The index is zero padded so lexical order matches route order. Anything
// but letters, digits, '-' and '_' in the waypoint name becomes '_', so the
// name never leaves the snapshot directory.
func SnapshotName(i int, name string) string {
	return fmt.Sprintf("waypoint_%03d_%s.png", i-1, unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_"))
}

// GenerateSnapshots renders one reference image per destination waypoint
// from the configured ground map into the snapshot directory, replacing any
// images already there. Frames use the camera footprint and size, so they
// match what the vehicle sees over the waypoint. All images are encoded
// before the directory is touched. It returns the written paths in route order.
func GenerateSnapshots(cfg *config.Config, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(cfg.Mission.MapImage); err != nil {
		return nil, fmt.Errorf("ground map required for snapshots: %w", err)
	}

	route, err := LoadRoute(cfg.Mission.RouteFile)
	if err != nil {
		return nil, err
	}
	gm, err := groundmap.Load(cfg.Mission.MapImage, cfg.Mission.MapMeta)
	if err != nil {
		return nil, err
	}
	if gm.BBox().Degenerate() {
		return nil, errors.New("ground map has no usable bounding box")
	}
	cam := groundmap.NewCamera(gm, cfg.Sim.CameraFootprint.Meters(), cfg.Sim.CameraSize)

	type snapshot struct {
		name string
		data []byte
	}
	snaps := make([]snapshot, 0, ExpectedReferences(route))
	for i := 1; i < len(route); i++ {
		wp := route[i]
		var buf bytes.Buffer
		if err := png.Encode(&buf, cam.Capture(flight.Snapshot{Lat: wp.Lat, Lon: wp.Lon})); err != nil {
			return nil, fmt.Errorf("failed to encode snapshot for %q: %w", wp.Name, err)
		}
		snaps = append(snaps, snapshot{name: SnapshotName(i, wp.Name), data: buf.Bytes()})
	}

	dir := cfg.Mission.SnapshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := clearImages(dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(snaps))
	for _, sn := range snaps {
		path := filepath.Join(dir, sn.name)
		if err := os.WriteFile(path, sn.data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write snapshot: %w", err)
		}
		logger.Info("Wrote reference snapshot", "file", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func clearImages(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read snapshot dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove old snapshot: %w", err)
			}
		}
	}
	return nil
}
