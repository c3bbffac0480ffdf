package domain

import (
	"fmt"
	"math"
)

// sliceTolerance absorbs float noise when comparing coordinate labels
// against requested bounds.
const sliceTolerance = 1e-9

// ScatterPoint is one observed sample.
type ScatterPoint struct {
	Lat   float64
	Lon   float64
	Value float64
}

// GriddedField is a scalar variable sampled on a latitude/longitude mesh.
type GriddedField struct {
	Name   string
	Lat    []float64 // Monotonic, ascending or descending.
	Lon    []float64 // Monotonic.
	Values []float64 // Row-major [lat][lon]; NaN marks a missing value.
}

// Validate checks axis monotonicity and the value count.
func (f *GriddedField) Validate() error {
	if len(f.Lat) == 0 || len(f.Lon) == 0 {
		return fmt.Errorf("field %s has an empty coordinate axis", f.Name)
	}
	if len(f.Values) != len(f.Lat)*len(f.Lon) {
		return fmt.Errorf("field %s has %d values, expected %d×%d", f.Name, len(f.Values), len(f.Lat), len(f.Lon))
	}
	if !monotonic(f.Lat) {
		return fmt.Errorf("field %s: latitude axis must be strictly monotonic", f.Name)
	}
	if !monotonic(f.Lon) {
		return fmt.Errorf("field %s: longitude axis must be strictly monotonic", f.Name)
	}
	return nil
}

// At returns the value at latitude row i, longitude column j.
func (f *GriddedField) At(i, j int) float64 {
	return f.Values[i*len(f.Lon)+j]
}

// Subset is the clipped, missing-free sample set of one field together with
// the bounding box expressed in the source axis' longitude convention.
type Subset struct {
	Points []ScatterPoint
	Box    BoundingBox
}

// Extract slices the field to box and drops missing values. The latitude
// bounds are swapped for a descending axis so the slice is expressed in the
// axis' own direction; the same geographic rows are selected either way.
func (f *GriddedField) Extract(box BoundingBox) (*Subset, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	latStart, latStop := box.LatMin, box.LatMax
	if IsDescending(f.Lat) {
		latStart, latStop = latStop, latStart
	}
	rows := sliceAxis(f.Lat, latStart, latStop)

	axisBox := box.ForAxis(DetectLonConvention(f.Lon))
	cols := selectLon(f.Lon, axisBox.LonMin, axisBox.LonMax)

	points := make([]ScatterPoint, 0, len(rows)*len(cols))
	for _, i := range rows {
		for _, j := range cols {
			v := f.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			points = append(points, ScatterPoint{Lat: f.Lat[i], Lon: f.Lon[j], Value: v})
		}
	}
	if len(points) == 0 {
		return nil, ErrEmptySubset
	}

	return &Subset{Points: points, Box: axisBox}, nil
}

// sliceAxis returns the indices of axis between start and stop inclusive,
// both given in the axis' direction (start <= stop ascending, start >= stop
// descending).
func sliceAxis(axis []float64, start, stop float64) []int {
	desc := IsDescending(axis)
	idx := make([]int, 0, len(axis))
	for i, v := range axis {
		if desc {
			if v <= start+sliceTolerance && v >= stop-sliceTolerance {
				idx = append(idx, i)
			}
			continue
		}
		if v >= start-sliceTolerance && v <= stop+sliceTolerance {
			idx = append(idx, i)
		}
	}
	return idx
}

// selectLon returns the longitude indices inside [lo, hi], or outside the
// gap (hi, lo) when the range crosses the seam of the axis' convention.
func selectLon(axis []float64, lo, hi float64) []int {
	idx := make([]int, 0, len(axis))
	for j, v := range axis {
		var in bool
		if lo <= hi {
			in = v >= lo-sliceTolerance && v <= hi+sliceTolerance
		} else {
			in = v >= lo-sliceTolerance || v <= hi+sliceTolerance
		}
		if in {
			idx = append(idx, j)
		}
	}
	return idx
}

func monotonic(axis []float64) bool {
	if len(axis) < 2 {
		return true
	}
	desc := IsDescending(axis)
	for i := 1; i < len(axis); i++ {
		if desc && !(axis[i] < axis[i-1]) {
			return false
		}
		if !desc && !(axis[i] > axis[i-1]) {
			return false
		}
	}
	return true
}
