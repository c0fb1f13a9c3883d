// Package scene reads and writes spot/link scenes as JSON or YAML and
// loads them into a track-graph model.
package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxFileSize bounds the scene files Load accepts.
const MaxFileSize = 64 << 20

// Format is a scene encoding.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("unsupported scene file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
}

var (
	ErrDuplicateSpot = errors.New("duplicate spot id")
	ErrUnknownSpot   = errors.New("link references unknown spot")
	ErrSelfLink      = errors.New("link from a spot to itself")
	ErrRaggedFrame   = errors.New("frame rows have different lengths")
)

// Scene is the file form of a model: spots keyed by a file-local id, links
// between those ids, and optional per-frame images for the spot analyzers.
type Scene struct {
	Spots  []SpotRecord        `json:"spots" yaml:"spots"`
	Links  []LinkRecord        `json:"links,omitempty" yaml:"links,omitempty"`
	Frames map[int][][]float64 `json:"frames,omitempty" yaml:"frames,omitempty"`
}

// SpotRecord is one spot. Features holds every feature besides position,
// radius and quality.
type SpotRecord struct {
	ID       int64              `json:"id" yaml:"id"`
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Frame    int                `json:"frame" yaml:"frame"`
	X        float64            `json:"x" yaml:"x"`
	Y        float64            `json:"y" yaml:"y"`
	Z        float64            `json:"z,omitempty" yaml:"z,omitempty"`
	Radius   float64            `json:"radius" yaml:"radius"`
	Quality  float64            `json:"quality" yaml:"quality"`
	Features map[string]float64 `json:"features,omitempty" yaml:"features,omitempty"`
}

// LinkRecord is one link. A missing weight means 1.
type LinkRecord struct {
	Source int64    `json:"source" yaml:"source"`
	Target int64    `json:"target" yaml:"target"`
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// GetWeight returns the link weight, 1 when unset.
func (l LinkRecord) GetWeight() float64 {
	if l.Weight == nil {
		return 1
	}
	return *l.Weight
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("scene file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer f.Close()
	s, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads a scene and validates it.
func Decode(r io.Reader, format Format) (*Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Scene
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&s)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %v scene: %w", format, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes s in the given format.
func Encode(w io.Writer, s *Scene, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %v", format)
}

// Validate checks spot ids, link endpoints and frame shapes.
func (s *Scene) Validate() error {
	ids := make(map[int64]bool, len(s.Spots))
	for _, sp := range s.Spots {
		if ids[sp.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateSpot, sp.ID)
		}
		ids[sp.ID] = true
	}
	for i, l := range s.Links {
		if !ids[l.Source] || !ids[l.Target] {
			return fmt.Errorf("%w: link %d (%d-%d)", ErrUnknownSpot, i, l.Source, l.Target)
		}
		if l.Source == l.Target {
			return fmt.Errorf("%w: link %d (spot %d)", ErrSelfLink, i, l.Source)
		}
	}
	frames := make([]int, 0, len(s.Frames))
	for t := range s.Frames {
		frames = append(frames, t)
	}
	sort.Ints(frames)
	for _, t := range frames {
		rows := s.Frames[t]
		for r := 1; r < len(rows); r++ {
			if len(rows[r]) != len(rows[0]) {
				return fmt.Errorf("%w: frame %d row %d", ErrRaggedFrame, t, r)
			}
		}
	}
	return nil
}
