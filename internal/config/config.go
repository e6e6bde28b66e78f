// Package config provides configuration management for the Xylax Motion
// agent. Configuration is loaded from an optional YAML file, then overridden
// by environment variables, with sensible defaults for everything.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort     = 8766
	DefaultLogLevel = "info"
	DefaultDataDir  = ".xylax-motion"

	EnvPort       = "XYLAX_PORT"
	EnvLogLevel   = "XYLAX_LOG_LEVEL"
	EnvDataDir    = "XYLAX_DATA_DIR"
	EnvConfigFile = "XYLAX_CONFIG"
	EnvAPIKey     = "XYLAX_API_KEY"
	EnvGenBaseURL = "XYLAX_GEN_BASE_URL"
	EnvHeadless   = "XYLAX_HEADLESS"

	DBFilename = "motion.db"

	// Timeline geometry shared with the browser front-end. The ruler maps
	// pixels to seconds at this scale, with a fixed track-label gutter.
	DefaultPixelsPerSecond = 60.0
	DefaultRulerGutterPx   = 48.0

	DefaultVideoTracks = 5
	DefaultAudioTracks = 3

	DefaultProbeTimeout     = 30 * time.Second
	DefaultGenPollInterval  = 10 * time.Second
	DefaultGenerateTimeout  = 10 * time.Minute
	DefaultPlaybackTickRate = 30 // playhead samples per second
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ThumbnailDir() string
	Headless() bool

	PixelsPerSecond() float64
	RulerGutterPx() float64
	VideoTrackCount() int
	AudioTrackCount() int
	PlaybackTickRate() int

	ProbeTimeout() time.Duration

	GenBaseURL() string
	GenAPIKey() string
	GenPollInterval() time.Duration
	GenerateTimeout() time.Duration
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	Port            int     `yaml:"port"`
	LogLevel        string  `yaml:"log_level"`
	DataDir         string  `yaml:"data_dir"`
	Headless        bool    `yaml:"headless"`
	PixelsPerSecond float64 `yaml:"pixels_per_second"`
	RulerGutterPx   float64 `yaml:"ruler_gutter_px"`
	VideoTracks     int     `yaml:"video_tracks"`
	AudioTracks     int     `yaml:"audio_tracks"`
	ProbeTimeoutS   int     `yaml:"probe_timeout_s"`
	Generation      struct {
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		PollIntervalS int    `yaml:"poll_interval_s"`
		TimeoutS      int    `yaml:"timeout_s"`
	} `yaml:"generation"`
}

// EnvConfig reads configuration from an optional YAML file plus environment
// variable overrides.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	pixelsPerSecond float64
	rulerGutterPx   float64
	videoTracks     int
	audioTracks     int
	tickRate        int

	probeTimeout time.Duration

	genBaseURL      string
	genAPIKey       string
	genPollInterval time.Duration
	generateTimeout time.Duration
}

// searchPaths returns the config file search order: ./motion.yaml, then
// ~/.config/xylax/motion.yaml.
func searchPaths() []string {
	paths := []string{"motion.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "xylax", "motion.yaml"))
	}
	return paths
}

func findConfigFile() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// New creates a new EnvConfig with defaults, YAML file values, and
// environment variable overrides, in that order of precedence.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		pixelsPerSecond: DefaultPixelsPerSecond,
		rulerGutterPx:   DefaultRulerGutterPx,
		videoTracks:     DefaultVideoTracks,
		audioTracks:     DefaultAudioTracks,
		tickRate:        DefaultPlaybackTickRate,
		probeTimeout:    DefaultProbeTimeout,
		genPollInterval: DefaultGenPollInterval,
		generateTimeout: DefaultGenerateTimeout,
	}

	if path := findConfigFile(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.genAPIKey = key
	}
	if base := os.Getenv(EnvGenBaseURL); base != "" {
		cfg.genBaseURL = base
	}
	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.Headless {
		c.headless = true
	}
	if fc.PixelsPerSecond > 0 {
		c.pixelsPerSecond = fc.PixelsPerSecond
	}
	if fc.RulerGutterPx > 0 {
		c.rulerGutterPx = fc.RulerGutterPx
	}
	if fc.VideoTracks > 0 {
		c.videoTracks = fc.VideoTracks
	}
	if fc.AudioTracks > 0 {
		c.audioTracks = fc.AudioTracks
	}
	if fc.ProbeTimeoutS > 0 {
		c.probeTimeout = time.Duration(fc.ProbeTimeoutS) * time.Second
	}
	if fc.Generation.BaseURL != "" {
		c.genBaseURL = fc.Generation.BaseURL
	}
	if fc.Generation.APIKey != "" {
		c.genAPIKey = fc.Generation.APIKey
	}
	if fc.Generation.PollIntervalS > 0 {
		c.genPollInterval = time.Duration(fc.Generation.PollIntervalS) * time.Second
	}
	if fc.Generation.TimeoutS > 0 {
		c.generateTimeout = time.Duration(fc.Generation.TimeoutS) * time.Second
	}

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the directory generated and uploaded media is stored in
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ThumbnailDir returns the directory probe thumbnails are written to
func (c *EnvConfig) ThumbnailDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) PixelsPerSecond() float64 {
	return c.pixelsPerSecond
}

func (c *EnvConfig) RulerGutterPx() float64 {
	return c.rulerGutterPx
}

func (c *EnvConfig) VideoTrackCount() int {
	return c.videoTracks
}

func (c *EnvConfig) AudioTrackCount() int {
	return c.audioTracks
}

func (c *EnvConfig) PlaybackTickRate() int {
	return c.tickRate
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

func (c *EnvConfig) GenBaseURL() string {
	return c.genBaseURL
}

func (c *EnvConfig) GenAPIKey() string {
	return c.genAPIKey
}

func (c *EnvConfig) GenPollInterval() time.Duration {
	return c.genPollInterval
}

func (c *EnvConfig) GenerateTimeout() time.Duration {
	return c.generateTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
