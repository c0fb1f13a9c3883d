package model

import (
	"fmt"
	"runtime"

	"github.com/fiji/fiji-sub027/internal/config"
	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// Config holds the collaborators and policies of a Model.
type Config struct {
	// FeatureThreads bounds the per-frame spot feature fan-out. Values
	// below 1 mean one worker per CPU.
	FeatureThreads int

	SpotAnalyzers  []features.SpotAnalyzer
	TrackAnalyzers []features.TrackAnalyzer

	// FrameSource supplies pixel data to spot analyzers. It may be nil when
	// no spot analyzer needs images.
	FrameSource features.FrameSource

	// TrackNamePrefix is prepended to the counter of generated track names.
	TrackNamePrefix string

	// NewbornTracksVisible marks visible the tracks made only of spots
	// that did not exist at the previous repartition.
	NewbornTracksVisible bool

	// IDs allocates spot identities for NewSpot. Nil gets a fresh
	// allocator.
	IDs *spot.IDAllocator
}

// DefaultConfig returns a config with the built-in track analyzers, no spot
// analyzers and one feature worker per CPU.
func DefaultConfig() Config {
	return Config{
		FeatureThreads:       runtime.NumCPU(),
		TrackAnalyzers:       features.DefaultTrackAnalyzers(features.DefaultCalibration()),
		TrackNamePrefix:      "Track_",
		NewbornTracksVisible: true,
	}
}

// ConfigFromFile maps a loaded configuration file onto a Config. Spot
// analyzers are only built when frames is non-nil, since every built-in
// spot analyzer reads pixel data.
func ConfigFromFile(c *config.TrackGraphConfig, frames features.FrameSource) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	cal := c.GetCalibration()
	cfg := Config{
		FeatureThreads:       c.GetFeatureThreads(),
		TrackAnalyzers:       features.DefaultTrackAnalyzers(cal),
		FrameSource:          frames,
		TrackNamePrefix:      c.GetTrackNamePrefix(),
		NewbornTracksVisible: c.GetNewbornTracksVisible(),
	}
	if frames == nil {
		if kinds := c.GetSpotAnalyzers(); len(kinds) > 0 {
			diagf("no frame source: spot analyzers %v disabled", kinds)
		}
		return cfg, nil
	}
	analyzers, err := features.NewSpotAnalyzers(cal, c.GetSpotAnalyzers()...)
	if err != nil {
		return Config{}, err
	}
	cfg.SpotAnalyzers = analyzers
	return cfg, nil
}
