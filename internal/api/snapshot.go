package api

import (
	"math"
	"sort"
	"time"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// SpotView is the JSON form of a spot.
type SpotView struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name,omitempty"`
	Frame    int                `json:"frame"`
	Features map[string]float64 `json:"features"`
}

// EdgeView is the JSON form of an edge.
type EdgeView struct {
	Source int64   `json:"source"`
	Target int64   `json:"target"`
	Weight float64 `json:"weight"`
}

// TrackSummary is one row of the track table.
type TrackSummary struct {
	Index    int                `json:"index"`
	Name     string             `json:"name"`
	Visible  bool               `json:"visible"`
	NSpots   int                `json:"n_spots"`
	NEdges   int                `json:"n_edges"`
	Features map[string]float64 `json:"features"`
}

// TrackDetail is a track with its spots and edges.
type TrackDetail struct {
	TrackSummary
	Spots []SpotView `json:"spots"`
	Edges []EdgeView `json:"edges"`
}

// ModelSummary describes the whole model.
type ModelSummary struct {
	ModelID  string    `json:"model_id"`
	TakenAt  time.Time `json:"taken_at"`
	NSpots   int       `json:"n_spots"`
	NEdges   int       `json:"n_edges"`
	NTracks  int       `json:"n_tracks"`
	NVisible int       `json:"n_visible"`
	Frames   []int     `json:"frames"`
}

// Snapshot is an immutable copy of the model state served by the API. The
// model is not safe for concurrent use, so handlers never touch it.
type Snapshot struct {
	Summary ModelSummary
	Tracks  []TrackDetail
	byFrame map[int][]SpotView
}

// TakeSnapshot copies the state of m. It must run on the goroutine that
// owns m.
func TakeSnapshot(m *model.Model) *Snapshot {
	spots := m.Spots()
	s := &Snapshot{
		Summary: ModelSummary{
			ModelID:  m.ID().String(),
			TakenAt:  time.Now().UTC(),
			NSpots:   m.NSpots(),
			NEdges:   m.NEdges(),
			NTracks:  m.NTracks(false),
			NVisible: m.NTracks(true),
			Frames:   spots.Frames(),
		},
		byFrame: make(map[int][]SpotView, spots.NFrames()),
	}

	spots.Iterate(func(frame int, sp *spot.Spot) bool {
		s.byFrame[frame] = append(s.byFrame[frame], spotView(sp, frame))
		return true
	})

	for _, i := range m.TrackIDs(false) {
		d := TrackDetail{
			TrackSummary: TrackSummary{
				Index:    i,
				Name:     m.TrackName(i),
				Visible:  m.IsTrackVisible(i),
				Features: make(map[string]float64),
			},
			Edges: []EdgeView{},
		}
		for f := features.TrackFeature(0); f < features.NumTrackFeatures; f++ {
			if v, ok := m.TrackFeature(i, f); ok && finite(v) {
				d.Features[f.String()] = v
			}
		}
		for _, sp := range m.TrackSpots(i) {
			frame, _ := spots.FrameOf(sp)
			d.Spots = append(d.Spots, spotView(sp, frame))
		}
		for _, e := range m.TrackEdges(i) {
			d.Edges = append(d.Edges, EdgeView{Source: e.Source().ID(), Target: e.Target().ID(), Weight: e.Weight()})
		}
		sort.Slice(d.Edges, func(a, b int) bool {
			if d.Edges[a].Source != d.Edges[b].Source {
				return d.Edges[a].Source < d.Edges[b].Source
			}
			return d.Edges[a].Target < d.Edges[b].Target
		})
		d.NSpots, d.NEdges = len(d.Spots), len(d.Edges)
		s.Tracks = append(s.Tracks, d)
	}
	return s
}

// TrackTable returns the summaries, optionally only the visible tracks.
func (s *Snapshot) TrackTable(visibleOnly bool) []TrackSummary {
	out := make([]TrackSummary, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		if !visibleOnly || t.Visible {
			out = append(out, t.TrackSummary)
		}
	}
	return out
}

// Track returns track i.
func (s *Snapshot) Track(i int) (TrackDetail, bool) {
	if i < 0 || i >= len(s.Tracks) {
		return TrackDetail{}, false
	}
	return s.Tracks[i], true
}

// Spots returns the spots of one frame, or of every frame when all is set.
func (s *Snapshot) Spots(frame int, all bool) []SpotView {
	if !all {
		return append([]SpotView{}, s.byFrame[frame]...)
	}
	out := make([]SpotView, 0, s.Summary.NSpots)
	for _, f := range s.Summary.Frames {
		out = append(out, s.byFrame[f]...)
	}
	return out
}

func spotView(sp *spot.Spot, frame int) SpotView {
	v := SpotView{ID: sp.ID(), Name: sp.Name, Frame: frame, Features: make(map[string]float64)}
	for f, x := range sp.Features() {
		if finite(x) {
			v.Features[string(f)] = x
		}
	}
	return v
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
