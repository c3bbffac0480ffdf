package domain

import (
	"errors"
	"fmt"
)

// Selection is the user's choice for one file: which variables to regrid,
// the target bounding box, and the slab of any non-spatial dimension.
// Dimensions missing from Indices are read at index 0.
type Selection struct {
	Variables []string       `json:"variables" yaml:"variables"`
	LatMin    float64        `json:"lat_min" yaml:"lat_min"`
	LatMax    float64        `json:"lat_max" yaml:"lat_max"`
	LonMin    float64        `json:"lon_min" yaml:"lon_min"`
	LonMax    float64        `json:"lon_max" yaml:"lon_max"`
	Indices   map[string]int `json:"indices,omitempty" yaml:"indices,omitempty"`
}

// Box returns the selection's bounding box.
func (s *Selection) Box() BoundingBox {
	return BoundingBox{LatMin: s.LatMin, LatMax: s.LatMax, LonMin: s.LonMin, LonMax: s.LonMax}
}

// IsEmpty reports whether nothing was selected.
func (s *Selection) IsEmpty() bool {
	return s == nil || len(s.Variables) == 0
}

// Validate checks the box and the slab indices.
func (s *Selection) Validate() error {
	if s.IsEmpty() {
		return ErrNoSelection
	}
	if err := s.Box().Validate(); err != nil {
		return err
	}
	for dim, idx := range s.Indices {
		if idx < 0 {
			return fmt.Errorf("index for dimension %s must be non-negative, got %d", dim, idx)
		}
	}
	seen := make(map[string]struct{}, len(s.Variables))
	for _, v := range s.Variables {
		if v == "" {
			return errors.New("variable names must not be empty")
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("variable %s selected twice", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// SelectionFor builds a selection covering the given extent.
func SelectionFor(e Extent, variables ...string) *Selection {
	return &Selection{
		Variables: variables,
		LatMin:    e.LatMin,
		LatMax:    e.LatMax,
		LonMin:    e.LonMin,
		LonMax:    e.LonMax,
	}
}

// OutputArtifact is one encoded result table.
type OutputArtifact struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Variable string `json:"variable"`
	Content  []byte `json:"-"`
}
