package interp

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// sample is a source point stored in the k-d tree.
type sample struct {
	Lat, Lon, Value float64
}

// Compare implements kdtree.Comparable.
func (p sample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(sample)
	switch d {
	case 0:
		return p.Lat - q.Lat
	case 1:
		return p.Lon - q.Lon
	default:
		panic("illegal dimension")
	}
}

// Dims implements kdtree.Comparable.
func (p sample) Dims() int { return 2 }

// Distance returns the squared planar distance in degrees.
func (p sample) Distance(c kdtree.Comparable) float64 {
	q := c.(sample)
	dlat := p.Lat - q.Lat
	dlon := p.Lon - q.Lon
	return dlat*dlat + dlon*dlon
}

type samples []sample

func (p samples) Index(i int) kdtree.Comparable         { return p[i] }
func (p samples) Len() int                              { return len(p) }
func (p samples) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p samples) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(samplePlane{samples: p, Dim: d}, kdtree.MedianOfRandoms(samplePlane{samples: p, Dim: d}, 100))
}

// samplePlane sorts samples along one dimension for kdtree partitioning.
type samplePlane struct {
	samples
	kdtree.Dim
}

func (p samplePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.samples[i].Lat < p.samples[j].Lat
	case 1:
		return p.samples[i].Lon < p.samples[j].Lon
	default:
		panic("illegal dimension")
	}
}

func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	return samplePlane{samples: p.samples[start:end], Dim: p.Dim}
}

func (p samplePlane) Swap(i, j int) {
	p.samples[i], p.samples[j] = p.samples[j], p.samples[i]
}

// Nearest answers nearest-source-point queries.
type Nearest struct {
	tree *kdtree.Tree
}

// NewNearest indexes src. It returns nil for an empty input.
func NewNearest(src []domain.ScatterPoint) *Nearest {
	if len(src) == 0 {
		return nil
	}
	pts := make(samples, len(src))
	for i, p := range src {
		pts[i] = sample{Lat: p.Lat, Lon: p.Lon, Value: p.Value}
	}
	return &Nearest{tree: kdtree.New(pts, false)}
}

// At returns the value of the closest source point to (lat, lon).
func (n *Nearest) At(lat, lon float64) float64 {
	if n == nil {
		return math.NaN()
	}
	got, _ := n.tree.Nearest(sample{Lat: lat, Lon: lon})
	if got == nil {
		return math.NaN()
	}
	return got.(sample).Value
}
