package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// plane samples v = 2*lat + lon on a regular mesh.
func plane(lats, lons []float64) []domain.ScatterPoint {
	pts := make([]domain.ScatterPoint, 0, len(lats)*len(lons))
	for _, la := range lats {
		for _, lo := range lons {
			pts = append(pts, domain.ScatterPoint{Lat: la, Lon: lo, Value: 2*la + lo})
		}
	}
	return pts
}

func TestLinear_ReproducesPlane(t *testing.T) {
	lin, err := NewLinear(plane([]float64{0, 1, 2}, []float64{10, 11, 12}))
	require.NoError(t, err)
	assert.Positive(t, lin.Triangles())

	for _, q := range [][2]float64{{0.5, 10.5}, {1.25, 11.75}, {2, 12}, {0, 10}, {1.9, 10.1}} {
		v, ok := lin.At(q[0], q[1])
		require.True(t, ok, "point %v should be inside the hull", q)
		assert.InDelta(t, 2*q[0]+q[1], v, 1e-9)
	}
}

func TestLinear_ExactAtVertices(t *testing.T) {
	src := []domain.ScatterPoint{
		{Lat: 0, Lon: 0, Value: 3.5},
		{Lat: 0, Lon: 1, Value: -1},
		{Lat: 1, Lon: 0, Value: 7},
		{Lat: 1, Lon: 1, Value: 0.25},
	}
	lin, err := NewLinear(src)
	require.NoError(t, err)

	for _, p := range src {
		v, ok := lin.At(p.Lat, p.Lon)
		require.True(t, ok)
		assert.InDelta(t, p.Value, v, 1e-12)
	}
}

func TestLinear_OutsideHull(t *testing.T) {
	lin, err := NewLinear(plane([]float64{0, 1}, []float64{0, 1}))
	require.NoError(t, err)

	v, ok := lin.At(5, 5)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))
}

func TestNewLinear_Degenerate(t *testing.T) {
	_, err := NewLinear([]domain.ScatterPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}})
	assert.ErrorIs(t, err, domain.ErrDegenerateSource)

	collinear := []domain.ScatterPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}
	_, err = NewLinear(collinear)
	assert.ErrorIs(t, err, domain.ErrDegenerateSource)
}

func TestNearest(t *testing.T) {
	n := NewNearest([]domain.ScatterPoint{
		{Lat: 0, Lon: 0, Value: 1},
		{Lat: 0, Lon: 10, Value: 2},
		{Lat: 10, Lon: 0, Value: 3},
	})

	assert.Equal(t, 1.0, n.At(-5, -5))
	assert.Equal(t, 2.0, n.At(1, 9))
	assert.Equal(t, 3.0, n.At(20, 1))

	var empty *Nearest
	assert.True(t, math.IsNaN(empty.At(0, 0)))
}

func TestRegrid_FillsOutsideHullWithNearest(t *testing.T) {
	src := plane([]float64{0, 1}, []float64{0, 1})
	lattice := &domain.Lattice{Lats: []float64{0, 0.5, 1, 1.5}, Lons: []float64{0, 0.5, 1, 1.5}}

	res, err := Regrid(src, lattice)
	require.NoError(t, err)

	require.Len(t, res.Values, 16)
	assert.Equal(t, 2, res.Triangles)
	assert.Equal(t, 9, res.LinearFilled)
	assert.Equal(t, 7, res.NearestFilled)
	for _, v := range res.Values {
		assert.False(t, math.IsNaN(v))
	}

	// (0.5, 0.5) interpolated, (1.5, 1.5) takes the (1, 1) corner.
	assert.InDelta(t, 1.5, res.Values[1*4+1], 1e-9)
	assert.Equal(t, 3.0, res.Values[3*4+3])
	// (1.5, 0) is nearest to (1, 0).
	assert.Equal(t, 2.0, res.Values[3*4+0])
}

func TestRegrid_Degenerate(t *testing.T) {
	_, err := Regrid([]domain.ScatterPoint{{Lat: 0, Lon: 0, Value: 1}}, &domain.Lattice{Lats: []float64{0}, Lons: []float64{0}})
	assert.ErrorIs(t, err, domain.ErrDegenerateSource)
}
