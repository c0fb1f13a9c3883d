package features

import (
	"gonum.org/v1/gonum/stat"

	"github.com/fiji/fiji-sub027/internal/spot"
)

// LocationAnalyzer reports the mean position and mean quality of a track.
type LocationAnalyzer struct{}

// NewLocationAnalyzer returns a LocationAnalyzer.
func NewLocationAnalyzer() *LocationAnalyzer { return &LocationAnalyzer{} }

func (a *LocationAnalyzer) Name() string { return "location" }

func (a *LocationAnalyzer) Features() []TrackFeature {
	return []TrackFeature{TrackMeanX, TrackMeanY, TrackMeanZ, TrackMeanQuality}
}

// Process implements TrackAnalyzer.
func (a *LocationAnalyzer) Process(t Track, out *TrackFeatures) error {
	n := len(t.Spots)
	if n == 0 {
		return nil
	}
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	var qs []float64
	for i, s := range t.Spots {
		xs[i], ys[i], zs[i] = s.Position()
		if q, ok := s.Feature(spot.Quality); ok {
			qs = append(qs, q)
		}
	}
	out.Put(TrackMeanX, stat.Mean(xs, nil))
	out.Put(TrackMeanY, stat.Mean(ys, nil))
	out.Put(TrackMeanZ, stat.Mean(zs, nil))
	if len(qs) > 0 {
		out.Put(TrackMeanQuality, stat.Mean(qs, nil))
	}
	return nil
}
