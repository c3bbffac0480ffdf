package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// TableHeader is the column header of every result table.
var TableHeader = []string{"lat", "lon", "value"}

// Row is one regridded sample.
type Row struct {
	Lat   float64
	Lon   float64
	Value float64
}

// ResultTable holds the rows of one (file, variable) regrid, ordered north
// to south and west to east.
type ResultTable struct {
	Variable string
	Rows     []Row
}

// NewResultTable pairs lattice points with their values, rounds the
// coordinates to three decimals and sorts by latitude descending then
// longitude ascending. Longitudes unwrapped past 360 are reported in [0, 360].
func NewResultTable(variable string, lattice *Lattice, values []float64) (*ResultTable, error) {
	if len(values) != lattice.Len() {
		return nil, fmt.Errorf("got %d values for %d lattice points", len(values), lattice.Len())
	}

	rows := make([]Row, len(values))
	for k, v := range values {
		lat, lon := lattice.At(k)
		if lon > 360 {
			lon -= 360
		}
		rows[k] = Row{Lat: round3(lat), Lon: round3(lon), Value: v}
	}
	SortRows(rows)

	return &ResultTable{Variable: variable, Rows: rows}, nil
}

// SortRows orders rows by latitude descending, then longitude ascending.
func SortRows(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Lat, a.Lat); c != 0 {
			return c
		}
		return cmp.Compare(a.Lon, b.Lon)
	})
}

// Shape returns the number of distinct latitudes and longitudes of a sorted
// table built from a full lattice.
func (t *ResultTable) Shape() (nLat, nLon int) {
	if len(t.Rows) == 0 {
		return 0, 0
	}
	first := t.Rows[0].Lat
	for _, r := range t.Rows {
		if r.Lat != first {
			break
		}
		nLon++
	}
	return len(t.Rows) / nLon, nLon
}

// round3 rounds half to even at three decimals.
func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}
