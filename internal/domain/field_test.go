package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeExtent_DescendingLatitude(t *testing.T) {
	e, err := NativeExtent([]float64{90, 45, 0, -45, -90}, []float64{0, 90, 180, 270})
	require.NoError(t, err)

	assert.True(t, e.LatDescending)
	assert.Equal(t, -90.0, e.LatMin)
	assert.Equal(t, 90.0, e.LatMax)
	assert.Equal(t, 0.0, e.LonMin)
	assert.Equal(t, 270.0, e.LonMax)
}

func TestNativeExtent_Ascending(t *testing.T) {
	e, err := NativeExtent([]float64{-10, 0, 10}, []float64{-20, -10})
	require.NoError(t, err)

	assert.False(t, e.LatDescending)
	assert.Equal(t, BoundingBox{LatMin: -10, LatMax: 10, LonMin: -20, LonMax: -10}, e.Box())
}

func TestNativeExtent_EmptyAxis(t *testing.T) {
	_, err := NativeExtent(nil, []float64{1})
	assert.Error(t, err)
}

func grid(lat, lon []float64, fn func(lat, lon float64) float64) *GriddedField {
	f := &GriddedField{Name: "sst", Lat: lat, Lon: lon, Values: make([]float64, 0, len(lat)*len(lon))}
	for _, la := range lat {
		for _, lo := range lon {
			f.Values = append(f.Values, fn(la, lo))
		}
	}
	return f
}

func TestExtract_DescendingLatitudeSelectsSameRows(t *testing.T) {
	lon := []float64{0, 1, 2}
	value := func(la, lo float64) float64 { return la*10 + lo }
	asc := grid([]float64{-2, -1, 0, 1, 2}, lon, value)
	desc := grid([]float64{2, 1, 0, -1, -2}, lon, value)

	box := BoundingBox{LatMin: -1, LatMax: 1, LonMin: 0, LonMax: 2}
	a, err := asc.Extract(box)
	require.NoError(t, err)
	d, err := desc.Extract(box)
	require.NoError(t, err)

	assert.Len(t, a.Points, 9)
	assert.ElementsMatch(t, a.Points, d.Points)
	for _, p := range d.Points {
		assert.GreaterOrEqual(t, p.Lat, -1.0)
		assert.LessOrEqual(t, p.Lat, 1.0)
	}
}

func TestExtract_DropsMissingValues(t *testing.T) {
	f := grid([]float64{0, 1}, []float64{0, 1}, func(la, lo float64) float64 {
		if la == 1 && lo == 1 {
			return math.NaN()
		}
		return 1
	})
	sub, err := f.Extract(BoundingBox{LatMin: 0, LatMax: 1, LonMin: 0, LonMax: 1})
	require.NoError(t, err)
	assert.Len(t, sub.Points, 3)
}

func TestExtract_EmptySubset(t *testing.T) {
	f := grid([]float64{0, 1}, []float64{0, 1}, func(float64, float64) float64 { return 1 })
	_, err := f.Extract(BoundingBox{LatMin: 10, LatMax: 20, LonMin: 0, LonMax: 1})
	assert.True(t, errors.Is(err, ErrEmptySubset))

	allMissing := grid([]float64{0, 1}, []float64{0, 1}, func(float64, float64) float64 { return math.NaN() })
	_, err = allMissing.Extract(BoundingBox{LatMin: 0, LatMax: 1, LonMin: 0, LonMax: 1})
	assert.ErrorIs(t, err, ErrEmptySubset)
}

func TestExtract_SignedBoxOnLon360Axis(t *testing.T) {
	f := grid([]float64{0, 1}, []float64{150, 180, 200, 210, 300}, func(float64, float64) float64 { return 1 })

	sub, err := f.Extract(BoundingBox{LatMin: 0, LatMax: 1, LonMin: -170, LonMax: -150})
	require.NoError(t, err)

	assert.Equal(t, 190.0, sub.Box.LonMin)
	assert.Equal(t, 210.0, sub.Box.LonMax)
	lons := map[float64]bool{}
	for _, p := range sub.Points {
		lons[p.Lon] = true
	}
	assert.Equal(t, map[float64]bool{200: true, 210: true}, lons)
}

func TestExtract_BoxCrossingSeamOnLon360Axis(t *testing.T) {
	f := grid([]float64{0, 1}, []float64{0, 10, 180, 350, 355}, func(float64, float64) float64 { return 1 })

	sub, err := f.Extract(BoundingBox{LatMin: 0, LatMax: 1, LonMin: -10, LonMax: 10})
	require.NoError(t, err)

	lons := map[float64]bool{}
	for _, p := range sub.Points {
		lons[p.Lon] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 10: true, 350: true, 355: true}, lons)
}

func TestGriddedField_ValidateRejectsNonMonotonic(t *testing.T) {
	f := &GriddedField{Name: "x", Lat: []float64{0, 2, 1}, Lon: []float64{0}, Values: []float64{1, 2, 3}}
	assert.Error(t, f.Validate())

	f = &GriddedField{Name: "x", Lat: []float64{0, 1}, Lon: []float64{0}, Values: []float64{1}}
	assert.Error(t, f.Validate())
}

func TestNormalizeLongitudes_PointsAbove180(t *testing.T) {
	points := []ScatterPoint{{Lat: 0, Lon: 200, Value: 1}, {Lat: 0, Lon: 190, Value: 2}}
	box := BoundingBox{LatMin: 0, LatMax: 1, LonMin: -170, LonMax: -150}

	out, nb := NormalizeLongitudes(points, box)

	assert.Equal(t, 190.0, nb.LonMin)
	assert.Equal(t, 210.0, nb.LonMax)
	assert.Equal(t, 200.0, out[0].Lon)
	assert.Equal(t, 190.0, out[1].Lon)
}

func TestNormalizeLongitudes_NoopForSignedData(t *testing.T) {
	points := []ScatterPoint{{Lat: 0, Lon: -20, Value: 1}, {Lat: 0, Lon: 20, Value: 2}}
	box := BoundingBox{LatMin: 0, LatMax: 1, LonMin: -30, LonMax: 30}

	out, nb := NormalizeLongitudes(points, box)
	assert.Equal(t, points, out)
	assert.Equal(t, box, nb)
}

func TestNormalizeLongitudes_UnwrapsAcrossZero(t *testing.T) {
	points := []ScatterPoint{{Lat: 0, Lon: 355, Value: 1}, {Lat: 0, Lon: 5, Value: 2}}
	box := BoundingBox{LatMin: 0, LatMax: 1, LonMin: 350, LonMax: 10}

	out, nb := NormalizeLongitudes(points, box)

	assert.Equal(t, 350.0, nb.LonMin)
	assert.Equal(t, 370.0, nb.LonMax)
	assert.Equal(t, 355.0, out[0].Lon)
	assert.Equal(t, 365.0, out[1].Lon)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, 190.0, Wrap360(-170))
	assert.Equal(t, 0.0, Wrap360(360))
	assert.Equal(t, -170.0, Wrap180(190))
	assert.Equal(t, 180.0, Wrap180(180))
}

func TestDetectLonConvention(t *testing.T) {
	assert.Equal(t, Lon360, DetectLonConvention([]float64{0, 90, 359}))
	assert.Equal(t, LonSigned, DetectLonConvention([]float64{-180, 0, 179}))
	assert.Equal(t, LonSigned, DetectLonConvention([]float64{0, 90, 180}))
}
