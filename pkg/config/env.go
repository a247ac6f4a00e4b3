package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Environment variables that override file settings.
const (
	EnvServerAddress   = "DRONENAV_SERVER_ADDRESS"
	EnvLogLevel        = "DRONENAV_LOG_LEVEL"
	EnvRouteFile       = "DRONENAV_ROUTE_FILE"
	EnvSnapshotDir     = "DRONENAV_SNAPSHOT_DIR"
	EnvMapImage        = "DRONENAV_MAP_IMAGE"
	EnvMapMeta         = "DRONENAV_MAP_META"
	EnvGeofence        = "DRONENAV_GEOFENCE"
	EnvDiagnosticsDir  = "DRONENAV_DIAGNOSTICS_DIR"
	EnvRecorderEnabled = "DRONENAV_RECORDER_ENABLED"
	EnvRecorderPath    = "DRONENAV_RECORDER_PATH"
)

// ApplyEnv overrides settings from DRONENAV_* environment variables.
func ApplyEnv(cfg *Config) {
	strs := map[string]*string{
		EnvServerAddress:  &cfg.Server.Address,
		EnvLogLevel:       &cfg.Log.Server.Level,
		EnvRouteFile:      &cfg.Mission.RouteFile,
		EnvSnapshotDir:    &cfg.Mission.SnapshotDir,
		EnvMapImage:       &cfg.Mission.MapImage,
		EnvMapMeta:        &cfg.Mission.MapMeta,
		EnvGeofence:       &cfg.Mission.Geofence,
		EnvDiagnosticsDir: &cfg.Vision.DiagnosticsDir,
		EnvRecorderPath:   &cfg.Recorder.Path,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(EnvRecorderEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("Ignoring invalid boolean in environment", "key", EnvRecorderEnabled, "value", v)
			return
		}
		cfg.Recorder.Enabled = b
	}
}
