package model

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/monitoring"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// computeSpotFeatures runs the spot analyzers over spots, one job per frame
// on at most FeatureThreads workers, and waits for every job. A failing
// frame does not stop the others; its error is returned.
func (m *Model) computeSpotFeatures(spots []*spot.Spot) []error {
	byFrame := make(map[int][]*spot.Spot)
	for _, s := range spots {
		byFrame[s.Frame()] = append(byFrame[s.Frame()], s)
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	results := make([]error, len(frames))
	var g errgroup.Group
	g.SetLimit(m.cfg.FeatureThreads)
	for i, frame := range frames {
		g.Go(func() error {
			results[i] = m.computeFrame(frame, byFrame[frame])
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err == nil {
			continue
		}
		monitoring.FeatureFailures.WithLabelValues("frame").Inc()
		opsf("spot features: %v", err)
		errs = append(errs, err)
	}
	return errs
}

func (m *Model) computeFrame(frame int, spots []*spot.Spot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame %d: panic: %v", frame, r)
		}
	}()
	var img *mat.Dense
	if m.cfg.FrameSource != nil {
		if img, err = m.cfg.FrameSource.Frame(frame); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}
	for _, a := range m.cfg.SpotAnalyzers {
		if err := a.Process(frame, img, spots); err != nil {
			return fmt.Errorf("frame %d: %s: %w", frame, a.Name(), err)
		}
	}
	return nil
}

// computeTrackFeatures replaces the track feature table with one entry per
// current track. A track whose analyzer fails keeps the features of the
// analyzers that succeeded.
func (m *Model) computeTrackFeatures() []error {
	n := m.partition.Len()
	table := make([]features.TrackFeatures, n)
	var errs []error
	for i := 0; i < n; i++ {
		t := features.Track{Index: i, Spots: m.partition.Nodes(i), Edges: m.partition.Edges(i)}
		for _, a := range m.cfg.TrackAnalyzers {
			scratch := table[i]
			if err := runTrackAnalyzer(a, t, &scratch); err != nil {
				monitoring.FeatureFailures.WithLabelValues("track").Inc()
				opsf("track features: track %d: %s: %v", i, a.Name(), err)
				errs = append(errs, fmt.Errorf("track %d: %s: %w", i, a.Name(), err))
				continue
			}
			table[i] = scratch
		}
	}
	m.trackFeatures = table
	return errs
}

func runTrackAnalyzer(a features.TrackAnalyzer, t features.Track, out *features.TrackFeatures) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.Process(t, out)
}
