// Package topoplot interpolates scattered scalar measurements, such as EEG
// electrode readings, onto dense regular grids for rendering as topographic
// plots.
//
// A typical call fits an enclosing geometry around the sample positions,
// synthesizes extra samples on an enlarged boundary to stabilize the edges,
// interpolates the augmented sample set on a regular grid, and masks the grid
// to the enclosing geometry:
//
//	result, err := topoplot.InterpolateGrid(ctx, positions, values,
//		topoplot.WithInterpolator(&topoplot.CloughTocher{}),
//		topoplot.WithResolution(256, 256),
//	)
package topoplot

import (
	"fmt"
	"math"
	"slices"

	"github.com/twpayne/go-topoplot/delaunay"
)

// A Point is a position in the plane.
type Point = delaunay.Point

// A Grid is a matrix of values sampled on a regular grid. Values are stored in
// row-major order: row r corresponds to Ys[r] and column c corresponds to
// Xs[c].
type Grid struct {
	Xs     []float64
	Ys     []float64
	Values []float64
}

// NewGrid returns a new Grid over xs and ys with all values set to fill.
func NewGrid(xs, ys []float64, fill float64) *Grid {
	values := make([]float64, len(xs)*len(ys))
	if fill != 0 {
		for i := range values {
			values[i] = fill
		}
	}
	return &Grid{
		Xs:     xs,
		Ys:     ys,
		Values: values,
	}
}

// At returns the value at column c and row r.
func (g *Grid) At(c, r int) float64 {
	return g.Values[r*len(g.Xs)+c]
}

// Set sets the value at column c and row r.
func (g *Grid) Set(c, r int, value float64) {
	g.Values[r*len(g.Xs)+c] = value
}

// Row returns row r. The returned slice aliases g's values.
func (g *Grid) Row(r int) []float64 {
	w := len(g.Xs)
	return g.Values[r*w : (r+1)*w : (r+1)*w]
}

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (int, int) {
	return len(g.Xs), len(g.Ys)
}

// X returns the x coordinate of column c.
func (g *Grid) X(c int) float64 {
	return g.Xs[c]
}

// Y returns the y coordinate of row r.
func (g *Grid) Y(r int) float64 {
	return g.Ys[r]
}

// Z returns the value at column c and row r.
func (g *Grid) Z(c, r int) float64 {
	return g.At(c, r)
}

// Range returns the minimum and maximum finite values in g. ok is false if g
// has no finite values.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi, lo <= hi
}

// Interpolate returns the value of g at (x, y) using bilinear interpolation
// between the four surrounding grid values. It returns NaN outside g.
func (g *Grid) Interpolate(x, y float64) float64 {
	c0, dx, ok := gridCell(g.Xs, x)
	if !ok {
		return math.NaN()
	}
	r0, dy, ok := gridCell(g.Ys, y)
	if !ok {
		return math.NaN()
	}
	c1 := min(c0+1, len(g.Xs)-1)
	r1 := min(r0+1, len(g.Ys)-1)
	return 0 +
		g.At(c0, r0)*(1-dx)*(1-dy) +
		g.At(c1, r0)*dx*(1-dy) +
		g.At(c0, r1)*(1-dx)*dy +
		g.At(c1, r1)*dx*dy
}

// String returns a short description of g.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", len(g.Xs), len(g.Ys))
}

// gridCell returns the index of the cell of increasing coords containing v and
// v's fractional position within it.
func gridCell(coords []float64, v float64) (int, float64, bool) {
	n := len(coords)
	if n == 0 || v < coords[0] || v > coords[n-1] || math.IsNaN(v) {
		return 0, 0, false
	}
	if n == 1 {
		return 0, 0, true
	}
	i, _ := slices.BinarySearch(coords, v)
	i = min(max(i-1, 0), n-2)
	return i, (v - coords[i]) / (coords[i+1] - coords[i]), true
}

func checkShape(positions []Point, values []float64) error {
	if len(positions) != len(values) {
		return fmt.Errorf("%w: %d positions, %d values", ErrShapeMismatch, len(positions), len(values))
	}
	return nil
}
