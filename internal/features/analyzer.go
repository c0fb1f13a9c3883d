package features

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/fiji/fiji-sub027/internal/spot"
)

// ErrNoFrameData is returned by spot calculators that need pixel data when
// the frame source has none for the frame.
var ErrNoFrameData = errors.New("no frame data")

// Calibration converts pixel and frame units into physical units.
type Calibration struct {
	PixelSize     float64 // position units per pixel
	FrameInterval float64 // time units per frame
}

// DefaultCalibration is the identity calibration.
func DefaultCalibration() Calibration {
	return Calibration{PixelSize: 1, FrameInterval: 1}
}

// FrameSource supplies the pixel data of a frame. Implementations must be
// safe for concurrent use; the model fetches different frames in parallel.
type FrameSource interface {
	Frame(frame int) (*mat.Dense, error)
}

// Frames is an in-memory FrameSource.
type Frames map[int]*mat.Dense

// Frame implements FrameSource.
func (f Frames) Frame(frame int) (*mat.Dense, error) {
	img, ok := f[frame]
	if !ok {
		return nil, fmt.Errorf("frame %d: %w", frame, ErrNoFrameData)
	}
	return img, nil
}

// SpotAnalyzer computes features for the spots of one frame. It only writes
// the features it owns and must not touch spots of other frames. Process may
// be called concurrently for different frames.
type SpotAnalyzer interface {
	Name() string
	Features() []spot.Feature
	Process(frame int, img *mat.Dense, spots []*spot.Spot) error
}

// TrackAnalyzer computes features for one track.
type TrackAnalyzer interface {
	Name() string
	Features() []TrackFeature
	Process(t Track, out *TrackFeatures) error
}

// SpotAnalyzerKind selects a built-in spot calculator by name in
// configuration files.
type SpotAnalyzerKind string

const (
	SpotAnalyzerNone      SpotAnalyzerKind = "none"
	SpotAnalyzerIntensity SpotAnalyzerKind = "intensity"
	SpotAnalyzerContrast  SpotAnalyzerKind = "contrast"
)

// ParseSpotAnalyzerKind accepts kind names case-insensitively.
func ParseSpotAnalyzerKind(s string) (SpotAnalyzerKind, error) {
	switch k := SpotAnalyzerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SpotAnalyzerNone, SpotAnalyzerIntensity, SpotAnalyzerContrast:
		return k, nil
	}
	return "", fmt.Errorf("unknown spot analyzer %q", s)
}

// NewSpotAnalyzers builds the calculators for the given kinds, in order.
// SpotAnalyzerNone contributes nothing.
func NewSpotAnalyzers(cal Calibration, kinds ...SpotAnalyzerKind) ([]SpotAnalyzer, error) {
	var out []SpotAnalyzer
	for _, k := range kinds {
		switch k {
		case SpotAnalyzerNone, "":
		case SpotAnalyzerIntensity:
			out = append(out, NewIntensityAnalyzer(cal))
		case SpotAnalyzerContrast:
			out = append(out, NewContrastAnalyzer(cal))
		default:
			return nil, fmt.Errorf("unknown spot analyzer %q", k)
		}
	}
	return out, nil
}

// DefaultTrackAnalyzers returns the built-in track calculators, which
// together fill every TrackFeature.
func DefaultTrackAnalyzers(cal Calibration) []TrackAnalyzer {
	return []TrackAnalyzer{
		NewBranchingAnalyzer(cal),
		NewSpeedAnalyzer(cal),
		NewLocationAnalyzer(),
	}
}
