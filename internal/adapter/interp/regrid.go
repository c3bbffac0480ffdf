package interp

import (
	"math"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// Result is the regridded value set, aligned with the lattice order.
type Result struct {
	Values        []float64
	Triangles     int
	LinearFilled  int
	NearestFilled int
}

// Regrid estimates a value at every lattice point: linear interpolation
// inside the convex hull of src, nearest source value everywhere else. Every
// returned value is defined.
func Regrid(src []domain.ScatterPoint, lattice *domain.Lattice) (*Result, error) {
	linear, err := NewLinear(src)
	if err != nil {
		return nil, err
	}

	res := &Result{Values: make([]float64, lattice.Len()), Triangles: linear.Triangles()}
	var gaps []int
	for k := range res.Values {
		lat, lon := lattice.At(k)
		v, ok := linear.At(lat, lon)
		if ok && !math.IsNaN(v) {
			res.Values[k] = v
			res.LinearFilled++
			continue
		}
		gaps = append(gaps, k)
	}

	if len(gaps) == 0 {
		return res, nil
	}
	nearest := NewNearest(src)
	for _, k := range gaps {
		lat, lon := lattice.At(k)
		res.Values[k] = nearest.At(lat, lon)
		res.NearestFilled++
	}
	return res, nil
}
