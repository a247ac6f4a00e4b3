package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Sim      SimConfig      `yaml:"sim"`
	Flight   FlightConfig   `yaml:"flight"`
	Search   SearchConfig   `yaml:"search"`
	Vision   VisionConfig   `yaml:"vision"`
	Mission  MissionConfig  `yaml:"mission"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// SimConfig holds settings for the simulation loop and the simulated camera.
type SimConfig struct {
	TickRate float64  `yaml:"tick_rate"` // Hz
	MaxStep  Duration `yaml:"max_step"`
	// CameraFootprint is the ground width seen by the camera. Reference
	// snapshots are rendered with the same footprint and size.
	CameraFootprint Distance `yaml:"camera_footprint"`
	CameraSize      int      `yaml:"camera_size"` // pixels per side
	// ExitOnLanded stops the process once the vehicle has landed.
	ExitOnLanded bool `yaml:"exit_on_landed"`
}

// FlightConfig holds the vehicle performance envelope.
type FlightConfig struct {
	CruiseVelocity       float64  `yaml:"cruise_velocity"` // m/s
	SearchVelocity       float64  `yaml:"search_velocity"` // m/s
	AscentRate           float64  `yaml:"ascent_rate"`     // m/s
	DescentRate          float64  `yaml:"descent_rate"`    // m/s
	MinVelocity          float64  `yaml:"min_velocity"`    // m/s
	CruiseAltitude       Distance `yaml:"cruise_altitude"`
	BrakingDistance      Distance `yaml:"braking_distance"`
	ArrivalThreshold     Distance `yaml:"arrival_threshold"`
	TouchdownAltitude    Distance `yaml:"touchdown_altitude"`
	HoverDwell           Duration `yaml:"hover_dwell"`
	MatchDwell           Duration `yaml:"match_dwell"`
	BatteryDrain         float64  `yaml:"battery_drain"` // percent per second
	ReturnHomeAfterFinal bool     `yaml:"return_home_after_final"`
}

// SearchConfig holds the spiral search pattern settings.
type SearchConfig struct {
	InitialRadius Distance `yaml:"initial_radius"`
	RadiusGrowth  float64  `yaml:"radius_growth"` // m/s
	MaxRadius     Distance `yaml:"max_radius"`
	AngularRate   float64  `yaml:"angular_rate"` // deg/s
	MatchInterval Duration `yaml:"match_interval"`
	Segment       Duration `yaml:"segment"`
	Failsafe      Duration `yaml:"failsafe"`
}

// VisionConfig holds feature matching settings.
type VisionConfig struct {
	MaxFeatures         int     `yaml:"max_features"`
	MaxDimension        int     `yaml:"max_dimension"`
	FASTThreshold       int     `yaml:"fast_threshold"`
	RatioThreshold      float64 `yaml:"ratio_threshold"`
	ConfidenceBaseline  float64 `yaml:"confidence_baseline"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	DiagnosticsDir      string  `yaml:"diagnostics_dir"`
}

// MissionConfig holds the mission input files.
type MissionConfig struct {
	RouteFile   string `yaml:"route_file"`
	SnapshotDir string `yaml:"snapshot_dir"`
	MapImage    string `yaml:"map_image"`
	MapMeta     string `yaml:"map_meta"`
	// Geofence is an optional GeoJSON file of polygons every waypoint must lie in.
	Geofence string `yaml:"geofence"`
	// SkipStart begins the route at the second waypoint; the first is the launch point.
	SkipStart bool `yaml:"skip_start"`
}

// RecorderConfig holds the SQLite flight recorder settings.
type RecorderConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	SampleEvery int    `yaml:"sample_every"`
	Buffer      int    `yaml:"buffer"`
	// Retention prunes older flights at startup. Zero keeps everything.
	Retention Duration `yaml:"retention"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:       "./logs/dronenav.log",
				Level:      "INFO",
				MaxSizeMB:  20,
				MaxBackups: 3,
			},
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Sim: SimConfig{
			TickRate:        30,
			MaxStep:         Duration(100 * time.Millisecond),
			CameraFootprint: Distance(100),
			CameraSize:      500,
			ExitOnLanded:    true,
		},
		Flight: FlightConfig{
			CruiseVelocity:    15,
			SearchVelocity:    5,
			AscentRate:        5,
			DescentRate:       1.5,
			MinVelocity:       3,
			CruiseAltitude:    Distance(10),
			BrakingDistance:   Distance(30),
			ArrivalThreshold:  Distance(5),
			TouchdownAltitude: Distance(0.1),
			HoverDwell:        Duration(2 * time.Second),
			MatchDwell:        Duration(1 * time.Second),
			BatteryDrain:      0.01,
		},
		Search: SearchConfig{
			InitialRadius: Distance(5),
			RadiusGrowth:  1,
			MaxRadius:     Distance(20),
			AngularRate:   60,
			MatchInterval: Duration(500 * time.Millisecond),
			Segment:       Duration(5 * time.Second),
			Failsafe:      Duration(30 * time.Second),
		},
		Vision: VisionConfig{
			MaxFeatures:         500,
			MaxDimension:        640,
			FASTThreshold:       20,
			RatioThreshold:      0.7,
			ConfidenceBaseline:  100,
			ConfidenceThreshold: 0.25,
		},
		Mission: MissionConfig{
			RouteFile:   "route.json",
			SnapshotDir: "assets/waypoint_snapshots",
			MapImage:    "assets/drone_feed.png",
			MapMeta:     "map_meta.json",
			SkipStart:   true,
		},
		Recorder: RecorderConfig{
			Enabled:     false,
			Path:        "./data/flights.db",
			SampleEvery: 10,
			Buffer:      256,
			Retention:   Duration(30 * Day),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
// Environment overrides are applied last and never persisted.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	ApplyEnv(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPaths resolves $VAR and %VAR% references in file paths.
func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Log.Server.Path,
		&c.Mission.RouteFile,
		&c.Mission.SnapshotDir,
		&c.Mission.MapImage,
		&c.Mission.MapMeta,
		&c.Mission.Geofence,
		&c.Vision.DiagnosticsDir,
		&c.Recorder.Path,
	} {
		*p = ExpandPath(*p)
	}
}

var winEnvRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// ExpandPath expands Unix-style and Windows-style environment variables.
func ExpandPath(p string) string {
	p = winEnvRe.ReplaceAllStringFunc(p, func(m string) string {
		return os.Getenv(strings.Trim(m, "%"))
	})
	return os.ExpandEnv(p)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# dronenav Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)

`)
	data = append(header, data...)

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: TRACE, DEBUG, INFO, WARN, ERROR\n${1}level:"))

	reRatio := regexp.MustCompile(`(?m)^(\s+)ratio_threshold:`)
	data = reRatio.ReplaceAll(data, []byte("${1}# Nearest/second-nearest descriptor distance ratio\n${1}ratio_threshold:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
