package scene

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/spot"
)

// ErrEmptyFrame is returned for a frame image with no pixels.
var ErrEmptyFrame = errors.New("frame image is empty")

var reserved = map[spot.Feature]bool{
	spot.PositionX: true,
	spot.PositionY: true,
	spot.PositionZ: true,
	spot.Radius:    true,
	spot.Quality:   true,
}

// FrameSource converts the scene images to matrices, rows along y. It
// returns nil when the scene carries no images.
func (s *Scene) FrameSource() (features.Frames, error) {
	if len(s.Frames) == 0 {
		return nil, nil
	}
	out := make(features.Frames, len(s.Frames))
	for t, rows := range s.Frames {
		if len(rows) == 0 || len(rows[0]) == 0 {
			return nil, fmt.Errorf("%w: frame %d", ErrEmptyFrame, t)
		}
		nr, nc := len(rows), len(rows[0])
		data := make([]float64, 0, nr*nc)
		for r, row := range rows {
			if len(row) != nc {
				return nil, fmt.Errorf("%w: frame %d row %d", ErrRaggedFrame, t, r)
			}
			data = append(data, row...)
		}
		out[t] = mat.NewDense(nr, nc, data)
	}
	return out, nil
}

// Build replaces the content of m with the scene, spots first then links,
// and returns the model spot for every scene id. Feature failures reported
// by the model are returned alongside a usable mapping.
func (s *Scene) Build(m *model.Model) (map[int64]*spot.Spot, error) {
	byID := make(map[int64]*spot.Spot, len(s.Spots))
	c := spot.NewCollection()
	for _, r := range s.Spots {
		sp := m.NewSpot(r.X, r.Y, r.Z, r.Radius, r.Quality)
		sp.Name = r.Name
		for name, v := range r.Features {
			sp.PutFeature(spot.Feature(name), v)
		}
		c.Add(sp, r.Frame)
		byID[r.ID] = sp
	}

	links := make([]model.Link, 0, len(s.Links))
	for i, l := range s.Links {
		src, ok1 := byID[l.Source]
		dst, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: link %d (%d-%d)", ErrUnknownSpot, i, l.Source, l.Target)
		}
		links = append(links, model.Link{Source: src, Target: dst, Weight: l.GetWeight()})
	}

	var errs []error
	if err := m.SetSpots(c); err != nil {
		if !errors.Is(err, model.ErrFeatureComputation) {
			return nil, fmt.Errorf("failed to set spots: %w", err)
		}
		errs = append(errs, err)
	}
	if err := m.SetGraph(links); err != nil {
		if !errors.Is(err, model.ErrFeatureComputation) {
			return nil, fmt.Errorf("failed to set links: %w", err)
		}
		errs = append(errs, err)
	}
	return byID, errors.Join(errs...)
}

// FromModel captures the spots and links of m. Scene ids are the model spot
// ids. Images are not captured.
func FromModel(m *model.Model) *Scene {
	s := &Scene{}
	m.Spots().Iterate(func(frame int, sp *spot.Spot) bool {
		x, y, z := sp.Position()
		r := SpotRecord{ID: sp.ID(), Name: sp.Name, Frame: frame, X: x, Y: y, Z: z}
		r.Radius, _ = sp.Feature(spot.Radius)
		r.Quality, _ = sp.Feature(spot.Quality)
		for f, v := range sp.Features() {
			if reserved[f] {
				continue
			}
			if r.Features == nil {
				r.Features = make(map[string]float64)
			}
			r.Features[string(f)] = v
		}
		s.Spots = append(s.Spots, r)
		return true
	})

	edges := m.EdgeSet()
	for _, e := range edges {
		w := e.Weight()
		s.Links = append(s.Links, LinkRecord{Source: e.Source().ID(), Target: e.Target().ID(), Weight: &w})
	}
	sort.Slice(s.Links, func(i, j int) bool {
		if s.Links[i].Source != s.Links[j].Source {
			return s.Links[i].Source < s.Links[j].Source
		}
		return s.Links[i].Target < s.Links[j].Target
	})
	return s
}
