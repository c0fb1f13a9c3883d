package features

import (
	"fmt"
	"math"

	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// TrackFeature is the ordinal of a per-track feature.
type TrackFeature int

const (
	NumberSpots TrackFeature = iota
	NumberGaps
	LongestGap
	NumberSplits
	NumberMerges
	NumberComplex
	TrackDuration
	TrackStart
	TrackStop
	TrackDisplacement
	TrackMeanSpeed
	TrackMaxSpeed
	TrackMinSpeed
	TrackMedianSpeed
	TrackStdSpeed
	TrackMeanX
	TrackMeanY
	TrackMeanZ
	TrackMeanQuality

	NumTrackFeatures
)

var trackFeatureNames = [NumTrackFeatures]string{
	NumberSpots:       "NUMBER_SPOTS",
	NumberGaps:        "NUMBER_GAPS",
	LongestGap:        "LONGEST_GAP",
	NumberSplits:      "NUMBER_SPLITS",
	NumberMerges:      "NUMBER_MERGES",
	NumberComplex:     "NUMBER_COMPLEX",
	TrackDuration:     "TRACK_DURATION",
	TrackStart:        "TRACK_START",
	TrackStop:         "TRACK_STOP",
	TrackDisplacement: "TRACK_DISPLACEMENT",
	TrackMeanSpeed:    "TRACK_MEAN_SPEED",
	TrackMaxSpeed:     "TRACK_MAX_SPEED",
	TrackMinSpeed:     "TRACK_MIN_SPEED",
	TrackMedianSpeed:  "TRACK_MEDIAN_SPEED",
	TrackStdSpeed:     "TRACK_STD_SPEED",
	TrackMeanX:        "TRACK_X_LOCATION",
	TrackMeanY:        "TRACK_Y_LOCATION",
	TrackMeanZ:        "TRACK_Z_LOCATION",
	TrackMeanQuality:  "TRACK_MEAN_QUALITY",
}

func (f TrackFeature) String() string {
	if f < 0 || f >= NumTrackFeatures {
		return fmt.Sprintf("TrackFeature(%d)", int(f))
	}
	return trackFeatureNames[f]
}

// ParseTrackFeature returns the feature with the given name.
func ParseTrackFeature(name string) (TrackFeature, error) {
	for i, n := range trackFeatureNames {
		if n == name {
			return TrackFeature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown track feature %q", name)
}

// TrackFeatures is the dense feature array of one track.
type TrackFeatures struct {
	values [NumTrackFeatures]float64
	set    uint64
}

// Put stores v for f. Out-of-range features are ignored.
func (t *TrackFeatures) Put(f TrackFeature, v float64) {
	if f < 0 || f >= NumTrackFeatures {
		return
	}
	t.values[f] = v
	t.set |= 1 << uint(f)
}

// Get returns the value of f and whether it has been computed.
func (t *TrackFeatures) Get(f TrackFeature) (float64, bool) {
	if !t.Has(f) {
		return math.NaN(), false
	}
	return t.values[f], true
}

// Has reports whether f has been computed.
func (t *TrackFeatures) Has(f TrackFeature) bool {
	if t == nil || f < 0 || f >= NumTrackFeatures {
		return false
	}
	return t.set&(1<<uint(f)) != 0
}

// Track is the read-only view of one connected component handed to track
// calculators. Spots and Edges are ordered by ID.
type Track struct {
	Index int
	Spots []*spot.Spot
	Edges []*graph.Edge[*spot.Spot]
}
