package topoplot

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/twpayne/go-topoplot/delaunay"
)

// A NullInterpolator returns a grid of zeros.
type NullInterpolator struct{}

func (NullInterpolator) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	return NewGrid(xs, ys, 0), nil
}

// A DelaunayMesh interpolates linearly within the triangles of the Delaunay
// triangulation of the sample positions.
//
// Where four or more positions are cocircular the triangulation keeps the
// diagonal created first; for the corners of the unit square
// given in the order (0, 0), (1, 0), (0, 1), (1, 1) this is the diagonal from
// (1, 0) to (0, 1).
type DelaunayMesh struct {
	// FillValue is the value outside the convex hull. nil means NaN.
	FillValue *float64
	// Clamp, if true, evaluates points outside the convex hull at the nearest
	// point on the hull instead of using FillValue.
	Clamp        bool
	Triangulator Triangulator
}

// A Mesh is a triangle mesh with a value at each vertex.
type Mesh struct {
	Triangulation *delaunay.Triangulation
	Values        []float64
	fill          float64
	clamp         bool
}

func (m *DelaunayMesh) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	return buildAndEvaluate(ctx, m, xs, ys, positions, values, mask, true)
}

func (m *DelaunayMesh) Build(positions []Point, values []float64) (Interpolant, error) {
	return m.Mesh(positions, values)
}

// Mesh returns the triangle mesh of positions and values.
func (m *DelaunayMesh) Mesh(positions []Point, values []float64) (*Mesh, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	t, err := triangulate(m.Triangulator, positions)
	if err != nil {
		return nil, err
	}
	return &Mesh{
		Triangulation: t,
		Values:        values,
		fill:          fillValue(m.FillValue),
		clamp:         m.Clamp,
	}, nil
}

func (m *DelaunayMesh) WithTriangulator(triangulator Triangulator) Interpolator {
	clone := *m
	clone.Triangulator = triangulator
	return &clone
}

// At returns the linearly interpolated value at (x, y).
func (m *Mesh) At(x, y float64) float64 {
	p := Point{X: x, Y: y}
	i, b, ok := m.Triangulation.Locate(p, -1)
	if !ok {
		if !m.clamp {
			return m.fill
		}
		a, c, s := m.Triangulation.ClosestHullPoint(p)
		return (1-s)*m.Values[a] + s*m.Values[c]
	}
	tri := m.Triangulation.Triangles[i]
	return b[0]*m.Values[tri[0]] + b[1]*m.Values[tri[1]] + b[2]*m.Values[tri[2]]
}

// Contours always returns ErrUnsupportedOperation: contours must be extracted
// from a grid produced by Resample.
func (m *Mesh) Contours(levels []float64) ([]orb.LineString, error) {
	return nil, fmt.Errorf("mesh contours: %w: resample the mesh onto a grid first", ErrUnsupportedOperation)
}

// Resample evaluates m on the grid xs × ys.
func (m *Mesh) Resample(ctx context.Context, xs, ys []float64, mask Geometry) (*Grid, error) {
	return EvaluateInterpolant(ctx, m, xs, ys, mask, true)
}

