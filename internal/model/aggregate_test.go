package model

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/spot"
)

const frameSeen spot.Feature = "FRAME_SEEN"

// stubSpotAnalyzer records the frame each spot was processed in. It fails
// or panics on the configured frames.
type stubSpotAnalyzer struct {
	failFrame  int
	panicFrame int
	delay      time.Duration

	mu       sync.Mutex
	calls    map[int]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newStubSpotAnalyzer() *stubSpotAnalyzer {
	return &stubSpotAnalyzer{failFrame: -1, panicFrame: -1, calls: make(map[int]int)}
}

func (a *stubSpotAnalyzer) Name() string             { return "stub" }
func (a *stubSpotAnalyzer) Features() []spot.Feature { return []spot.Feature{frameSeen} }

func (a *stubSpotAnalyzer) Process(frame int, img *mat.Dense, spots []*spot.Spot) error {
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		p := a.peak.Load()
		if n <= p || a.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(a.delay)

	a.mu.Lock()
	a.calls[frame]++
	a.mu.Unlock()

	switch frame {
	case a.failFrame:
		return errors.New("calculator failed")
	case a.panicFrame:
		panic("calculator exploded")
	}
	for _, s := range spots {
		s.PutFeature(frameSeen, float64(frame))
	}
	return nil
}

func TestSpotFeatures_OneJobPerFrame(t *testing.T) {
	stub := newStubSpotAnalyzer()
	stub.delay = 5 * time.Millisecond
	cfg := DefaultConfig()
	cfg.FeatureThreads = 2
	cfg.SpotAnalyzers = []features.SpotAnalyzer{stub}
	m, _ := newTestModel(t, cfg)

	s := addSpots(t, m, 0, 0, 1, 2, 3, 4, 5, 6, 7, 7)
	for _, sp := range s {
		v, ok := sp.Feature(frameSeen)
		require.True(t, ok, "spot %v not computed", sp)
		assert.Equal(t, float64(sp.Frame()), v)
	}
	assert.Len(t, stub.calls, 8)
	for f, n := range stub.calls {
		assert.Equal(t, 1, n, "frame %d processed %d times", f, n)
	}
	assert.LessOrEqual(t, stub.peak.Load(), int32(2))
}

func TestSpotFeatures_OnlyDirtySpots(t *testing.T) {
	stub := newStubSpotAnalyzer()
	cfg := DefaultConfig()
	cfg.SpotAnalyzers = []features.SpotAnalyzer{stub}
	m, _ := newTestModel(t, cfg)
	s := addSpots(t, m, 0, 1)
	stub.calls = make(map[int]int)

	link(t, m, [2]*spot.Spot{s[0], s[1]})
	assert.Empty(t, stub.calls, "links alone must not recompute spot features")

	require.NoError(t, m.MoveSpotFrom(s[1], 1, 4))
	assert.Equal(t, map[int]int{4: 1}, stub.calls)
	v, _ := s[1].Feature(frameSeen)
	assert.Equal(t, 4.0, v)

	require.NoError(t, m.UpdateFeatures(s[0]))
	assert.Equal(t, map[int]int{0: 1, 4: 1}, stub.calls)
}

func TestSpotFeatures_FailureIsolatedPerFrame(t *testing.T) {
	stub := newStubSpotAnalyzer()
	stub.failFrame = 1
	stub.panicFrame = 2
	cfg := DefaultConfig()
	cfg.SpotAnalyzers = []features.SpotAnalyzer{stub}
	m, rec := newTestModel(t, cfg)

	m.BeginUpdate()
	s := make([]*spot.Spot, 4)
	for i := range s {
		s[i] = m.NewSpot(0, 0, 0, 1, 1)
		require.NoError(t, m.AddSpotTo(s[i], i))
	}
	err := m.EndUpdate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeatureComputation)
	ev := rec.last(t)
	assert.Len(t, ev.Errors, 2)
	assert.Len(t, ev.Spots, 4)

	_, ok := s[0].Feature(frameSeen)
	assert.True(t, ok)
	_, ok = s[1].Feature(frameSeen)
	assert.False(t, ok)
	_, ok = s[2].Feature(frameSeen)
	assert.False(t, ok)
	_, ok = s[3].Feature(frameSeen)
	assert.True(t, ok)

	// The next commit starts clean.
	assert.Equal(t, 0, m.Depth())
	require.NoError(t, m.UpdateFeatures(s[0]))
}

func TestSpotFeatures_MissingFrameData(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpotAnalyzers = []features.SpotAnalyzer{features.NewIntensityAnalyzer(features.DefaultCalibration())}
	cfg.FrameSource = features.Frames{0: mat.NewDense(4, 4, nil)}
	m, _ := newTestModel(t, cfg)

	s := m.NewSpot(1, 1, 0, 1, 1)
	require.NoError(t, m.AddSpotTo(s, 0))
	_, ok := s.Feature(spot.MeanIntensity)
	assert.True(t, ok)

	err := m.AddSpotTo(m.NewSpot(1, 1, 0, 1, 1), 1)
	assert.ErrorIs(t, err, features.ErrNoFrameData)
	assert.ErrorIs(t, err, ErrFeatureComputation)
}

type panickyTrackAnalyzer struct{}

func (panickyTrackAnalyzer) Name() string { return "panicky" }
func (panickyTrackAnalyzer) Features() []features.TrackFeature {
	return []features.TrackFeature{features.TrackMeanX}
}
func (panickyTrackAnalyzer) Process(t features.Track, out *features.TrackFeatures) error {
	out.Put(features.TrackMeanX, 1)
	if len(t.Spots) > 1 {
		panic("too many spots")
	}
	return nil
}

func TestTrackFeatures_FailureIsolatedPerTrack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrackAnalyzers = []features.TrackAnalyzer{panickyTrackAnalyzer{}, features.NewBranchingAnalyzer(features.DefaultCalibration())}
	m, rec := newTestModel(t, cfg)

	s := addSpots(t, m, 0, 1, 5)
	m.BeginUpdate()
	_, err := m.AddEdge(s[0], s[1], 1)
	require.NoError(t, err)
	err = m.EndUpdate()
	assert.ErrorIs(t, err, ErrFeatureComputation)
	assert.Len(t, rec.last(t).Errors, 1)

	table := m.TrackFeatureTable()
	require.Len(t, table, m.NTracks(false))
	pair, _ := m.TrackIndexOf(s[0])
	single, _ := m.TrackIndexOf(s[2])

	assert.False(t, table[pair].Has(features.TrackMeanX), "failed analyzer output must be discarded")
	assert.True(t, table[pair].Has(features.NumberSpots))
	assert.True(t, table[single].Has(features.TrackMeanX))
}

// ---------------------------------------------------------------------------
// Track features follow spot edits without spot analyzers
// ---------------------------------------------------------------------------

func TestTrackFeatures_RecomputedAfterMove(t *testing.T) {
	m, _ := newTestModel(t, DefaultConfig())
	s := addSpots(t, m, 0, 1)
	link(t, m, [2]*spot.Spot{s[0], s[1]})

	v, ok := m.TrackFeature(0, features.TrackDuration)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	require.NoError(t, m.MoveSpotFrom(s[1], 1, 5))
	require.Equal(t, 1, m.NTracks(false))
	v, ok = m.TrackFeature(0, features.TrackDuration)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestTrackFeatures_RecomputedAfterUpdateFeatures(t *testing.T) {
	m, _ := newTestModel(t, DefaultConfig())
	s := addSpots(t, m, 0, 1)
	link(t, m, [2]*spot.Spot{s[0], s[1]})

	v, ok := m.TrackFeature(0, features.TrackMeanX)
	require.True(t, ok)
	assert.Equal(t, 0.5, v)

	s[1].PutFeature(spot.PositionX, 100)
	require.NoError(t, m.UpdateFeatures(s[1]))
	v, ok = m.TrackFeature(0, features.TrackMeanX)
	require.True(t, ok)
	assert.Equal(t, 50.0, v)
}
