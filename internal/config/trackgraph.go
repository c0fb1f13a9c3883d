package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fiji/fiji-sub027/internal/features"
)

// DefaultConfigPath is the path to the canonical defaults file, relative to
// the repository root.
const DefaultConfigPath = "config/trackgraph.defaults.json"

// TrackGraphConfig is the on-disk configuration of a track-graph model and
// the tools around it. Every field is optional; the Get* methods supply the
// fallback when a field is absent.
type TrackGraphConfig struct {
	// Feature computation
	FeatureThreads *int     `json:"feature_threads,omitempty"` // 0 means one per CPU
	SpotAnalyzers  []string `json:"spot_analyzers,omitempty"`
	FrameInterval  *float64 `json:"frame_interval,omitempty"`
	PixelSize      *float64 `json:"pixel_size,omitempty"`

	// Tracks
	TrackNamePrefix      *string `json:"track_name_prefix,omitempty"`
	NewbornTracksVisible *bool   `json:"newborn_tracks_visible,omitempty"`

	// Initial filtering; spots below this quality are dropped after loading.
	InitialQualityThreshold *float64 `json:"initial_quality_threshold,omitempty"`

	// Surfaces
	JournalPath *string `json:"journal_path,omitempty"`
	Listen      *string `json:"listen,omitempty"` // HTTP address for /metrics and /api
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a config with every field unset.
func EmptyConfig() *TrackGraphConfig {
	return &TrackGraphConfig{}
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*TrackGraphConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FindDefaultConfig loads DefaultConfigPath from the working directory or
// one of its parents and returns the path it used. The error wraps
// fs.ErrNotExist when no candidate exists; a defaults file that exists but
// does not load is reported as is.
func FindDefaultConfig() (*TrackGraphConfig, string, error) {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return nil, "", fmt.Errorf("cannot find %s: %w", DefaultConfigPath, fs.ErrNotExist)
}

// MustLoadDefaultConfig is FindDefaultConfig for tests; it panics when the
// defaults file cannot be loaded.
func MustLoadDefaultConfig() *TrackGraphConfig {
	cfg, _, err := FindDefaultConfig()
	if err != nil {
		panic(err.Error() + " - run tests from repository root")
	}
	return cfg
}

// Validate checks that the configuration values are valid.
func (c *TrackGraphConfig) Validate() error {
	if c.FeatureThreads != nil && *c.FeatureThreads < 0 {
		return fmt.Errorf("feature_threads must be non-negative, got %d", *c.FeatureThreads)
	}
	if c.FrameInterval != nil && !(*c.FrameInterval > 0) {
		return fmt.Errorf("frame_interval must be positive, got %f", *c.FrameInterval)
	}
	if c.PixelSize != nil && !(*c.PixelSize > 0) {
		return fmt.Errorf("pixel_size must be positive, got %f", *c.PixelSize)
	}
	for _, name := range c.SpotAnalyzers {
		if _, err := features.ParseSpotAnalyzerKind(name); err != nil {
			return fmt.Errorf("spot_analyzers: %w", err)
		}
	}
	return nil
}

// GetFeatureThreads returns the worker count for spot features, resolving 0
// to the number of CPUs.
func (c *TrackGraphConfig) GetFeatureThreads() int {
	if c.FeatureThreads == nil || *c.FeatureThreads == 0 {
		return runtime.NumCPU()
	}
	return *c.FeatureThreads
}

// GetSpotAnalyzers returns the configured spot analyzer kinds. Names that
// fail to parse are skipped; Validate reports them.
func (c *TrackGraphConfig) GetSpotAnalyzers() []features.SpotAnalyzerKind {
	out := make([]features.SpotAnalyzerKind, 0, len(c.SpotAnalyzers))
	for _, name := range c.SpotAnalyzers {
		if k, err := features.ParseSpotAnalyzerKind(name); err == nil {
			out = append(out, k)
		}
	}
	return out
}

func (c *TrackGraphConfig) GetFrameInterval() float64 {
	if c.FrameInterval == nil {
		return 1
	}
	return *c.FrameInterval
}

func (c *TrackGraphConfig) GetPixelSize() float64 {
	if c.PixelSize == nil {
		return 1
	}
	return *c.PixelSize
}

// GetCalibration combines pixel size and frame interval.
func (c *TrackGraphConfig) GetCalibration() features.Calibration {
	return features.Calibration{PixelSize: c.GetPixelSize(), FrameInterval: c.GetFrameInterval()}
}

func (c *TrackGraphConfig) GetTrackNamePrefix() string {
	if c.TrackNamePrefix == nil {
		return "Track_"
	}
	return *c.TrackNamePrefix
}

func (c *TrackGraphConfig) GetNewbornTracksVisible() bool {
	if c.NewbornTracksVisible == nil {
		return true
	}
	return *c.NewbornTracksVisible
}

// GetInitialQualityThreshold returns the threshold and whether one is set.
func (c *TrackGraphConfig) GetInitialQualityThreshold() (float64, bool) {
	if c.InitialQualityThreshold == nil {
		return 0, false
	}
	return *c.InitialQualityThreshold, true
}

func (c *TrackGraphConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

func (c *TrackGraphConfig) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}
