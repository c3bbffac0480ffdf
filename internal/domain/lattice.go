package domain

import (
	"fmt"
	"math"
)

const (
	// GridSpacing is the default lattice step in degrees.
	GridSpacing = 0.125
	// GridEpsilon pads the upper bound so the box maximum survives float
	// step accumulation.
	GridEpsilon = 1e-4
	// MaxLatticePoints caps a single regrid.
	MaxLatticePoints = 4_000_000
)

// Lattice is the regular target mesh of one regrid run.
type Lattice struct {
	Lats []float64
	Lons []float64
}

// Len returns the number of lattice points.
func (l *Lattice) Len() int {
	return len(l.Lats) * len(l.Lons)
}

// At returns the k-th point in latitude-major order.
func (l *Lattice) At(k int) (lat, lon float64) {
	n := len(l.Lons)
	return l.Lats[k/n], l.Lons[k%n]
}

// BuildLattice constructs the Cartesian product of latitude and longitude
// sequences from the box minimum to its maximum (inclusive) at spacing.
func BuildLattice(box BoundingBox, spacing float64) (*Lattice, error) {
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil, fmt.Errorf("grid spacing must be positive, got %v", spacing)
	}
	if box.LatMin > box.LatMax || box.LonMin > box.LonMax {
		return nil, fmt.Errorf("invalid lattice bounds %+v", box)
	}

	l := &Lattice{
		Lats: arange(box.LatMin, box.LatMax+GridEpsilon, spacing),
		Lons: arange(box.LonMin, box.LonMax+GridEpsilon, spacing),
	}
	if l.Len() > MaxLatticePoints {
		return nil, fmt.Errorf("lattice of %d×%d points exceeds the limit of %d", len(l.Lats), len(l.Lons), MaxLatticePoints)
	}
	return l, nil
}

// arange returns start, start+step, ... strictly below stop.
func arange(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
