// Package interp regrids scattered samples onto a lattice: piecewise-linear
// interpolation over a Delaunay triangulation, then nearest-neighbour fill
// for lattice points outside the convex hull.
package interp

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// barycentricEpsilon accepts points lying on a triangle edge.
const barycentricEpsilon = 1e-10

// Linear is a piecewise-linear interpolant over the Delaunay triangulation
// of the source points, in the (lon, lat) plane.
type Linear struct {
	points    []delaunay.Point
	values    []float64
	triangles []int
	index     *triangleIndex
}

// NewLinear triangulates src. Fewer than three points or collinear input
// yield domain.ErrDegenerateSource.
func NewLinear(src []domain.ScatterPoint) (*Linear, error) {
	if len(src) < 3 {
		return nil, fmt.Errorf("%w: got %d points", domain.ErrDegenerateSource, len(src))
	}

	pts := make([]delaunay.Point, len(src))
	vals := make([]float64, len(src))
	for i, p := range src {
		pts[i] = delaunay.Point{X: p.Lon, Y: p.Lat}
		vals[i] = p.Value
	}

	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDegenerateSource, err)
	}
	if len(tri.Triangles) == 0 {
		return nil, domain.ErrDegenerateSource
	}

	l := &Linear{points: pts, values: vals, triangles: tri.Triangles}
	l.index = newTriangleIndex(l.points, l.triangles)
	return l, nil
}

// At interpolates at (lat, lon). ok is false outside the convex hull.
func (l *Linear) At(lat, lon float64) (v float64, ok bool) {
	for _, t := range l.index.candidates(lon, lat) {
		ia, ib, ic := l.triangles[3*t], l.triangles[3*t+1], l.triangles[3*t+2]
		w1, w2, w3, inside := barycentric(l.points[ia], l.points[ib], l.points[ic], lon, lat)
		if !inside {
			continue
		}
		return w1*l.values[ia] + w2*l.values[ib] + w3*l.values[ic], true
	}
	return math.NaN(), false
}

// Triangles returns the number of triangles.
func (l *Linear) Triangles() int {
	return len(l.triangles) / 3
}

// barycentric returns the weights of (x, y) against triangle abc and whether
// the point lies inside it (edges included).
func barycentric(a, b, c delaunay.Point, x, y float64) (w1, w2, w3 float64, inside bool) {
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if det == 0 {
		return 0, 0, 0, false
	}
	w1 = ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / det
	w2 = ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / det
	w3 = 1 - w1 - w2
	inside = w1 >= -barycentricEpsilon && w2 >= -barycentricEpsilon && w3 >= -barycentricEpsilon
	return w1, w2, w3, inside
}

// triangleIndex buckets triangles by bounding box on a uniform grid so a
// point lookup only tests the triangles overlapping its cell.
type triangleIndex struct {
	minX, minY   float64
	cellW, cellH float64
	nx, ny       int
	cells        [][]int
}

func newTriangleIndex(points []delaunay.Point, triangles []int) *triangleIndex {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	n := len(triangles) / 3
	side := int(math.Ceil(math.Sqrt(float64(n))))
	if side < 1 {
		side = 1
	}
	idx := &triangleIndex{
		minX: minX, minY: minY,
		nx: side, ny: side,
		cellW: (maxX - minX) / float64(side),
		cellH: (maxY - minY) / float64(side),
		cells: make([][]int, side*side),
	}
	if idx.cellW == 0 {
		idx.cellW = 1
	}
	if idx.cellH == 0 {
		idx.cellH = 1
	}

	for t := 0; t < n; t++ {
		a, b, c := points[triangles[3*t]], points[triangles[3*t+1]], points[triangles[3*t+2]]
		x0, y0 := idx.cell(math.Min(a.X, math.Min(b.X, c.X)), math.Min(a.Y, math.Min(b.Y, c.Y)))
		x1, y1 := idx.cell(math.Max(a.X, math.Max(b.X, c.X)), math.Max(a.Y, math.Max(b.Y, c.Y)))
		for cy := y0; cy <= y1; cy++ {
			for cx := x0; cx <= x1; cx++ {
				k := cy*idx.nx + cx
				idx.cells[k] = append(idx.cells[k], t)
			}
		}
	}
	return idx
}

// cell clamps (x, y) to a grid cell.
func (idx *triangleIndex) cell(x, y float64) (int, int) {
	cx := int(math.Floor((x - idx.minX) / idx.cellW))
	cy := int(math.Floor((y - idx.minY) / idx.cellH))
	return clamp(cx, 0, idx.nx-1), clamp(cy, 0, idx.ny-1)
}

func (idx *triangleIndex) candidates(x, y float64) []int {
	if math.IsNaN(x) || math.IsNaN(y) {
		return nil
	}
	// Cell assignment is monotonic, so a point inside a triangle always falls
	// in one of the cells its bounding box was registered in.
	cx, cy := idx.cell(x, y)
	return idx.cells[cy*idx.nx+cx]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
