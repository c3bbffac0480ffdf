// Package domain holds the geographic model and the pure regridding steps:
// extent normalization, subsetting, longitude wrapping, lattice construction
// and result tables.
package domain

import (
	"errors"
	"fmt"
	"math"
)

// BoundingBox is a geographic extent in degrees.
type BoundingBox struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
}

// Validate checks ordering and latitude range.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.LatMin, b.LatMax, b.LonMin, b.LonMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("bounding box values must be finite")
		}
	}
	if b.LatMin > b.LatMax {
		return fmt.Errorf("lat_min (%.3f) must not exceed lat_max (%.3f)", b.LatMin, b.LatMax)
	}
	if b.LonMin > b.LonMax {
		return fmt.Errorf("lon_min (%.3f) must not exceed lon_max (%.3f)", b.LonMin, b.LonMax)
	}
	if b.LatMin < -90 || b.LatMax > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

// crossesSeam reports whether the longitude range wraps past the end of its
// convention (lon_min > lon_max).
func (b BoundingBox) crossesSeam() bool {
	return b.LonMin > b.LonMax
}

// Extent is the native coordinate extent of a dataset.
type Extent struct {
	LatMin        float64 `json:"lat_min"`
	LatMax        float64 `json:"lat_max"`
	LonMin        float64 `json:"lon_min"`
	LonMax        float64 `json:"lon_max"`
	LatDescending bool    `json:"lat_descending"`
}

// Box returns the extent as a bounding box, the default selection for a file.
func (e Extent) Box() BoundingBox {
	return BoundingBox{LatMin: e.LatMin, LatMax: e.LatMax, LonMin: e.LonMin, LonMax: e.LonMax}
}

// IsDescending reports whether a monotonic axis runs from high to low values.
// Direction is taken from the first and last elements only.
func IsDescending(axis []float64) bool {
	return len(axis) > 1 && axis[0] > axis[len(axis)-1]
}

// NativeExtent resolves the latitude axis direction and returns canonical
// min/max pairs for both axes. Longitude extrema are a plain min/max.
func NativeExtent(lat, lon []float64) (Extent, error) {
	if len(lat) == 0 || len(lon) == 0 {
		return Extent{}, errors.New("coordinate axes must not be empty")
	}

	e := Extent{LatDescending: IsDescending(lat)}
	if e.LatDescending {
		e.LatMin, e.LatMax = lat[len(lat)-1], lat[0]
	} else {
		e.LatMin, e.LatMax = lat[0], lat[len(lat)-1]
	}

	e.LonMin, e.LonMax = math.Inf(1), math.Inf(-1)
	for _, v := range lon {
		if math.IsNaN(v) {
			continue
		}
		e.LonMin = math.Min(e.LonMin, v)
		e.LonMax = math.Max(e.LonMax, v)
	}
	if math.IsInf(e.LonMin, 1) {
		return Extent{}, errors.New("longitude axis has no finite values")
	}
	return e, nil
}

// LonConvention is the numeric range a longitude axis is expressed in.
type LonConvention int

const (
	// LonSigned is the -180..180 convention.
	LonSigned LonConvention = iota
	// Lon360 is the 0..360 convention.
	Lon360
)

// DetectLonConvention classifies a longitude axis.
func DetectLonConvention(lons []float64) LonConvention {
	if len(lons) == 0 {
		return LonSigned
	}
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range lons {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if minVal >= 0 && maxVal > 180 {
		return Lon360
	}
	return LonSigned
}

// Wrap360 maps a longitude into [0, 360).
func Wrap360(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}

// Wrap180 maps a longitude into (-180, 180].
func Wrap180(lon float64) float64 {
	lon = Wrap360(lon)
	if lon > 180 {
		lon -= 360
	}
	return lon
}

// ForAxis re-expresses the longitude bounds in the convention of a source
// axis so that slicing compares like with like. The result may cross the
// seam of that convention (LonMin > LonMax).
func (b BoundingBox) ForAxis(conv LonConvention) BoundingBox {
	full := b.LonMax-b.LonMin >= 360
	switch conv {
	case Lon360:
		if full {
			b.LonMin, b.LonMax = 0, 360
		} else if b.LonMin < 0 || b.LonMax < 0 || b.LonMax > 360 {
			b.LonMin, b.LonMax = Wrap360(b.LonMin), Wrap360(b.LonMax)
		}
	case LonSigned:
		if full {
			b.LonMin, b.LonMax = -180, 180
		} else if b.LonMin > 180 || b.LonMax > 180 || b.LonMin < -180 {
			b.LonMin, b.LonMax = Wrap180(b.LonMin), Wrap180(b.LonMax)
		}
	}
	return b
}

// NormalizeLongitudes puts source points and the bounding box into one
// longitude convention. When any point lies beyond 180° (or the box crosses
// the seam of the signed convention) everything is wrapped into [0, 360).
// A box that then crosses 0°/360° is unwrapped past 360 so lattice and
// points share a continuous domain.
func NormalizeLongitudes(points []ScatterPoint, box BoundingBox) ([]ScatterPoint, BoundingBox) {
	above := false
	for _, p := range points {
		if p.Lon > 180 {
			above = true
			break
		}
	}
	if !above && !box.crossesSeam() {
		return points, box
	}

	out := make([]ScatterPoint, len(points))
	for i, p := range points {
		p.Lon = Wrap360(p.Lon)
		out[i] = p
	}

	span := box.LonMax - box.LonMin
	box.LonMin = Wrap360(box.LonMin)
	if span >= 360 {
		box.LonMax = box.LonMin + 360
	} else {
		box.LonMax = Wrap360(box.LonMax)
		if box.LonMax < box.LonMin {
			box.LonMax += 360
		}
	}

	if box.LonMax > 360 {
		for i := range out {
			if out[i].Lon < box.LonMin {
				out[i].Lon += 360
			}
		}
	}
	return out, box
}
