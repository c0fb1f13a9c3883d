package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpeedAnalyzer reports statistics of the per-edge speeds of a track. An
// edge's speed is its spatial length over the time between its endpoints.
// Edges joining two spots of the same frame are skipped. Tracks without a
// usable edge get no speed features.
type SpeedAnalyzer struct {
	cal Calibration
}

// NewSpeedAnalyzer returns a SpeedAnalyzer.
func NewSpeedAnalyzer(cal Calibration) *SpeedAnalyzer {
	return &SpeedAnalyzer{cal: cal}
}

func (a *SpeedAnalyzer) Name() string { return "speed" }

func (a *SpeedAnalyzer) Features() []TrackFeature {
	return []TrackFeature{TrackMeanSpeed, TrackMaxSpeed, TrackMinSpeed, TrackMedianSpeed, TrackStdSpeed}
}

// Process implements TrackAnalyzer.
func (a *SpeedAnalyzer) Process(t Track, out *TrackFeatures) error {
	interval := a.cal.FrameInterval
	if interval <= 0 || math.IsNaN(interval) {
		interval = 1
	}
	speeds := make([]float64, 0, len(t.Edges))
	for _, e := range t.Edges {
		dt := math.Abs(float64(e.Target().Frame()-e.Source().Frame())) * interval
		if dt == 0 {
			continue
		}
		speeds = append(speeds, e.Source().DistanceTo(e.Target())/dt)
	}
	if len(speeds) == 0 {
		return nil
	}
	sort.Float64s(speeds)
	out.Put(TrackMeanSpeed, stat.Mean(speeds, nil))
	out.Put(TrackMaxSpeed, floats.Max(speeds))
	out.Put(TrackMinSpeed, floats.Min(speeds))
	out.Put(TrackMedianSpeed, stat.Quantile(0.5, stat.Empirical, speeds, nil))
	if len(speeds) > 1 {
		out.Put(TrackStdSpeed, stat.StdDev(speeds, nil))
	} else {
		out.Put(TrackStdSpeed, 0)
	}
	return nil
}
