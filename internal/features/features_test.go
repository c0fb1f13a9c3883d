package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/fiji/fiji-sub027/internal/graph"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// buildTrack links the given (frame, x) spots along consecutive pairs in
// links and returns the whole component as a Track.
func buildTrack(t *testing.T, pts [][2]float64, links [][2]int) Track {
	t.Helper()
	ids := spot.NewIDAllocator()
	g := graph.New[*spot.Spot]()
	c := spot.NewCollection()
	spots := make([]*spot.Spot, len(pts))
	for i, p := range pts {
		s := ids.NewSpot(p[1], 0, 0, 1, float64(i+1))
		c.Add(s, int(p[0]))
		require.NoError(t, g.AddVertex(s))
		spots[i] = s
	}
	for _, l := range links {
		_, err := g.AddEdge(spots[l[0]], spots[l[1]], 1)
		require.NoError(t, err)
	}
	p := g.Partition()
	require.Equal(t, 1, p.Len(), "fixture must be connected")
	return Track{Index: 0, Spots: p.Nodes(0), Edges: p.Edges(0)}
}

func get(t *testing.T, tf *TrackFeatures, f TrackFeature) float64 {
	t.Helper()
	v, ok := tf.Get(f)
	require.True(t, ok, "%v not set", f)
	return v
}

// ---------------------------------------------------------------------------
// TrackFeature / TrackFeatures
// ---------------------------------------------------------------------------

func TestTrackFeature_Names(t *testing.T) {
	for f := TrackFeature(0); f < NumTrackFeatures; f++ {
		name := f.String()
		assert.NotEmpty(t, name)
		got, err := ParseTrackFeature(name)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseTrackFeature("NOPE")
	assert.Error(t, err)
	assert.Equal(t, "TrackFeature(99)", TrackFeature(99).String())
}

func TestTrackFeatures_PutGet(t *testing.T) {
	var tf TrackFeatures
	assert.False(t, tf.Has(NumberSpots))
	v, ok := tf.Get(NumberSpots)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))

	tf.Put(NumberSpots, 0)
	assert.True(t, tf.Has(NumberSpots))
	assert.Equal(t, 0.0, get(t, &tf, NumberSpots))

	tf.Put(NumTrackFeatures, 1)
	assert.False(t, tf.Has(NumTrackFeatures))

	var nilTF *TrackFeatures
	assert.False(t, nilTF.Has(NumberSpots))
}

// ---------------------------------------------------------------------------
// Track analyzers
// ---------------------------------------------------------------------------

func TestBranchingAnalyzer(t *testing.T) {
	// 0@t0 -> 1@t1 splits into 2@t2 and 3@t4 (gap of 2 frames);
	// 2 and 4@t2 merge into 5@t3.
	tr := buildTrack(t,
		[][2]float64{{0, 0}, {1, 1}, {2, 2}, {4, 9}, {2, 5}, {3, 3}},
		[][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 5}, {4, 5}},
	)
	var tf TrackFeatures
	require.NoError(t, NewBranchingAnalyzer(Calibration{PixelSize: 1, FrameInterval: 0.5}).Process(tr, &tf))

	assert.Equal(t, 6.0, get(t, &tf, NumberSpots))
	assert.Equal(t, 1.0, get(t, &tf, NumberGaps))
	assert.Equal(t, 2.0, get(t, &tf, LongestGap))
	assert.Equal(t, 1.0, get(t, &tf, NumberSplits))
	assert.Equal(t, 1.0, get(t, &tf, NumberMerges))
	assert.Equal(t, 0.0, get(t, &tf, NumberComplex))
	assert.Equal(t, 0.0, get(t, &tf, TrackStart))
	assert.Equal(t, 2.0, get(t, &tf, TrackStop))
	assert.Equal(t, 2.0, get(t, &tf, TrackDuration))
	assert.Equal(t, 9.0, get(t, &tf, TrackDisplacement))
}

func TestBranchingAnalyzer_Singleton(t *testing.T) {
	tr := buildTrack(t, [][2]float64{{3, 1}}, nil)
	var tf TrackFeatures
	require.NoError(t, NewBranchingAnalyzer(DefaultCalibration()).Process(tr, &tf))
	assert.Equal(t, 1.0, get(t, &tf, NumberSpots))
	assert.Equal(t, 0.0, get(t, &tf, TrackDuration))
	assert.Equal(t, 3.0, get(t, &tf, TrackStart))
	assert.Equal(t, 0.0, get(t, &tf, TrackDisplacement))
}

func TestSpeedAnalyzer(t *testing.T) {
	// Steps of 1, 3 and 2 units per frame.
	tr := buildTrack(t,
		[][2]float64{{0, 0}, {1, 1}, {2, 4}, {3, 6}},
		[][2]int{{0, 1}, {1, 2}, {2, 3}},
	)
	var tf TrackFeatures
	require.NoError(t, NewSpeedAnalyzer(DefaultCalibration()).Process(tr, &tf))
	assert.InDelta(t, 2.0, get(t, &tf, TrackMeanSpeed), 1e-12)
	assert.Equal(t, 3.0, get(t, &tf, TrackMaxSpeed))
	assert.Equal(t, 1.0, get(t, &tf, TrackMinSpeed))
	assert.Equal(t, 2.0, get(t, &tf, TrackMedianSpeed))
	assert.InDelta(t, 1.0, get(t, &tf, TrackStdSpeed), 1e-12)

	single := buildTrack(t, [][2]float64{{0, 0}}, nil)
	var empty TrackFeatures
	require.NoError(t, NewSpeedAnalyzer(DefaultCalibration()).Process(single, &empty))
	assert.False(t, empty.Has(TrackMeanSpeed))
}

func TestLocationAnalyzer(t *testing.T) {
	tr := buildTrack(t,
		[][2]float64{{0, 1}, {1, 2}, {2, 6}},
		[][2]int{{0, 1}, {1, 2}},
	)
	var tf TrackFeatures
	require.NoError(t, NewLocationAnalyzer().Process(tr, &tf))
	assert.Equal(t, 3.0, get(t, &tf, TrackMeanX))
	assert.Equal(t, 0.0, get(t, &tf, TrackMeanY))
	assert.Equal(t, 2.0, get(t, &tf, TrackMeanQuality))
}

func TestDefaultTrackAnalyzers_CoverEveryFeature(t *testing.T) {
	covered := make(map[TrackFeature]bool)
	for _, a := range DefaultTrackAnalyzers(DefaultCalibration()) {
		for _, f := range a.Features() {
			assert.False(t, covered[f], "%v claimed twice", f)
			covered[f] = true
		}
	}
	for f := TrackFeature(0); f < NumTrackFeatures; f++ {
		assert.True(t, covered[f], "%v not computed by any default analyzer", f)
	}
}

// ---------------------------------------------------------------------------
// Spot analyzers
// ---------------------------------------------------------------------------

// plusImage is a 10x10 background of 1 with a plus-shaped blob centred on
// (5,5): 20 in the middle, 10 on the four neighbours.
func plusImage() *mat.Dense {
	img := mat.NewDense(10, 10, nil)
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			img.Set(r, c, 1)
		}
	}
	img.Set(5, 5, 20)
	img.Set(4, 5, 10)
	img.Set(6, 5, 10)
	img.Set(5, 4, 10)
	img.Set(5, 6, 10)
	return img
}

func TestIntensityAnalyzer(t *testing.T) {
	s := spot.NewIDAllocator().NewSpot(5, 5, 0, 1, 1)
	a := NewIntensityAnalyzer(DefaultCalibration())
	require.NoError(t, a.Process(0, plusImage(), []*spot.Spot{s}))

	want := map[spot.Feature]float64{
		spot.MeanIntensity:   12,
		spot.MedianIntensity: 10,
		spot.MinIntensity:    10,
		spot.MaxIntensity:    20,
		spot.TotalIntensity:  60,
	}
	for f, v := range want {
		got, ok := s.Feature(f)
		require.True(t, ok, "%s not set", f)
		assert.InDelta(t, v, got, 1e-12, "%s", f)
	}
	sd, _ := s.Feature(spot.StandardDeviation)
	assert.InDelta(t, math.Sqrt(20), sd, 1e-12)

	assert.True(t, errors.Is(a.Process(0, nil, []*spot.Spot{s}), ErrNoFrameData))
}

func TestIntensityAnalyzer_OutsideImage(t *testing.T) {
	s := spot.NewIDAllocator().NewSpot(50, 50, 0, 1, 1)
	require.NoError(t, NewIntensityAnalyzer(DefaultCalibration()).Process(0, plusImage(), []*spot.Spot{s}))
	_, ok := s.Feature(spot.MeanIntensity)
	assert.False(t, ok)
}

func TestContrastAnalyzer(t *testing.T) {
	s := spot.NewIDAllocator().NewSpot(5, 5, 0, 1, 1)
	require.NoError(t, NewContrastAnalyzer(DefaultCalibration()).Process(0, plusImage(), []*spot.Spot{s}))

	// Ring between radius 1 and 2 is pure background.
	c, ok := s.Feature(spot.Contrast)
	require.True(t, ok)
	assert.InDelta(t, 11.0/13.0, c, 1e-12)
	snr, _ := s.Feature(spot.SNR)
	assert.InDelta(t, 11/math.Sqrt(20), snr, 1e-12)
}

func TestNewSpotAnalyzers(t *testing.T) {
	as, err := NewSpotAnalyzers(DefaultCalibration(), SpotAnalyzerNone, SpotAnalyzerIntensity, SpotAnalyzerContrast)
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "intensity", as[0].Name())
	assert.Equal(t, "contrast", as[1].Name())

	_, err = NewSpotAnalyzers(DefaultCalibration(), "bogus")
	assert.Error(t, err)

	k, err := ParseSpotAnalyzerKind(" Intensity ")
	require.NoError(t, err)
	assert.Equal(t, SpotAnalyzerIntensity, k)
}

func TestFrames(t *testing.T) {
	fs := Frames{2: plusImage()}
	img, err := fs.Frame(2)
	require.NoError(t, err)
	assert.NotNil(t, img)
	_, err = fs.Frame(3)
	assert.ErrorIs(t, err, ErrNoFrameData)
}
