package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fiji/fiji-sub027/internal/spot"
)

// disk collects the pixel values whose centres lie within r pixels of
// (cx, cy). Columns are x and rows are y.
func disk(img *mat.Dense, cx, cy, rIn, rOut float64) []float64 {
	rows, cols := img.Dims()
	r2in, r2out := rIn*rIn, rOut*rOut
	y0 := max(0, int(math.Floor(cy-rOut)))
	y1 := min(rows-1, int(math.Ceil(cy+rOut)))
	x0 := max(0, int(math.Floor(cx-rOut)))
	x1 := min(cols-1, int(math.Ceil(cx+rOut)))

	var out []float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			d2 := dx*dx + dy*dy
			if d2 >= r2in && d2 <= r2out {
				out = append(out, img.At(y, x))
			}
		}
	}
	return out
}

func pixelGeometry(cal Calibration, s *spot.Spot) (cx, cy, r float64) {
	px := cal.PixelSize
	if px <= 0 {
		px = 1
	}
	x, y, _ := s.Position()
	radius, _ := s.Feature(spot.Radius)
	return x / px, y / px, radius / px
}

// IntensityAnalyzer computes intensity statistics over the disk covered by
// each spot.
type IntensityAnalyzer struct {
	cal Calibration
}

// NewIntensityAnalyzer returns an IntensityAnalyzer.
func NewIntensityAnalyzer(cal Calibration) *IntensityAnalyzer {
	return &IntensityAnalyzer{cal: cal}
}

func (a *IntensityAnalyzer) Name() string { return string(SpotAnalyzerIntensity) }

func (a *IntensityAnalyzer) Features() []spot.Feature {
	return []spot.Feature{
		spot.MeanIntensity, spot.MedianIntensity, spot.MinIntensity,
		spot.MaxIntensity, spot.TotalIntensity, spot.StandardDeviation,
	}
}

// Process implements SpotAnalyzer. Spots whose disk falls outside the image
// are left untouched.
func (a *IntensityAnalyzer) Process(frame int, img *mat.Dense, spots []*spot.Spot) error {
	if img == nil {
		return ErrNoFrameData
	}
	for _, s := range spots {
		cx, cy, r := pixelGeometry(a.cal, s)
		vals := disk(img, cx, cy, 0, r)
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		s.PutFeature(spot.MeanIntensity, stat.Mean(vals, nil))
		s.PutFeature(spot.MedianIntensity, stat.Quantile(0.5, stat.Empirical, vals, nil))
		s.PutFeature(spot.MinIntensity, vals[0])
		s.PutFeature(spot.MaxIntensity, vals[len(vals)-1])
		s.PutFeature(spot.TotalIntensity, floats.Sum(vals))
		if len(vals) > 1 {
			s.PutFeature(spot.StandardDeviation, stat.StdDev(vals, nil))
		} else {
			s.PutFeature(spot.StandardDeviation, 0)
		}
	}
	return nil
}

// ContrastAnalyzer compares each spot's disk with the ring around it, out
// to twice the radius.
type ContrastAnalyzer struct {
	cal Calibration
}

// NewContrastAnalyzer returns a ContrastAnalyzer.
func NewContrastAnalyzer(cal Calibration) *ContrastAnalyzer {
	return &ContrastAnalyzer{cal: cal}
}

func (a *ContrastAnalyzer) Name() string { return string(SpotAnalyzerContrast) }

func (a *ContrastAnalyzer) Features() []spot.Feature {
	return []spot.Feature{spot.Contrast, spot.SNR}
}

// Process implements SpotAnalyzer.
//
// Contrast is (in - out) / (in + out) on the mean intensities; SNR is
// (in - out) / sd(in).
func (a *ContrastAnalyzer) Process(frame int, img *mat.Dense, spots []*spot.Spot) error {
	if img == nil {
		return ErrNoFrameData
	}
	for _, s := range spots {
		cx, cy, r := pixelGeometry(a.cal, s)
		in := disk(img, cx, cy, 0, r)
		out := disk(img, cx, cy, math.Nextafter(r, math.Inf(1)), 2*r)
		if len(in) == 0 || len(out) == 0 {
			continue
		}
		meanIn, sdIn := stat.MeanStdDev(in, nil)
		meanOut := stat.Mean(out, nil)

		contrast := 0.0
		if sum := meanIn + meanOut; sum != 0 {
			contrast = (meanIn - meanOut) / sum
		}
		s.PutFeature(spot.Contrast, contrast)

		if len(in) > 1 && sdIn > 0 {
			s.PutFeature(spot.SNR, (meanIn-meanOut)/sdIn)
		} else {
			s.PutFeature(spot.SNR, 0)
		}
	}
	return nil
}
