package topoplot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/twpayne/go-topoplot/delaunay"
)

// An Interpolator interpolates scattered samples onto a regular grid.
//
// Interpolate returns a grid with len(ys) rows and len(xs) columns. If mask
// is not nil then cells whose centers lie outside mask are not evaluated and
// are NaN.
type Interpolator interface {
	Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error)
}

// An Interpolant is a surface built from samples. Implementations must be
// safe for concurrent use.
type Interpolant interface {
	At(x, y float64) float64
}

// An InterpolantFunc is a function that implements Interpolant.
type InterpolantFunc func(x, y float64) float64

func (f InterpolantFunc) At(x, y float64) float64 {
	return f(x, y)
}

// A Builder builds a reusable Interpolant from samples.
type Builder interface {
	Build(positions []Point, values []float64) (Interpolant, error)
}

// A Triangulator returns Delaunay triangulations of positions.
type Triangulator interface {
	Triangulate(positions []Point) (*delaunay.Triangulation, error)
}

// A TriangulatorFunc is a function that implements Triangulator.
type TriangulatorFunc func(positions []Point) (*delaunay.Triangulation, error)

func (f TriangulatorFunc) Triangulate(positions []Point) (*delaunay.Triangulation, error) {
	return f(positions)
}

// A TriangulationUser is an Interpolator that triangulates its positions and
// can use a shared Triangulator.
type TriangulationUser interface {
	Interpolator
	WithTriangulator(triangulator Triangulator) Interpolator
}

// EvaluateInterpolant evaluates interpolant at every cell of the grid xs × ys
// that lies inside mask. If parallel is true then blocks of rows are
// evaluated concurrently.
func EvaluateInterpolant(ctx context.Context, interpolant Interpolant, xs, ys []float64, mask Geometry, parallel bool) (*Grid, error) {
	grid := NewGrid(xs, ys, math.NaN())
	evaluateRows := func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			y := ys[r]
			row := grid.Row(r)
			for c, x := range xs {
				if mask != nil && !mask.Contains(Point{X: x, Y: y}) {
					continue
				}
				row[c] = interpolant.At(x, y)
			}
		}
	}

	if !parallel {
		for r := range ys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			evaluateRows(r, r+1)
		}
		return grid, nil
	}

	workers := runtime.GOMAXPROCS(0)
	rowsPerBlock := max(1, len(ys)/(4*workers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r0 := 0; r0 < len(ys); r0 += rowsPerBlock {
		r1 := min(r0+rowsPerBlock, len(ys))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			evaluateRows(r0, r1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}

// buildAndEvaluate builds an interpolant with builder and evaluates it.
func buildAndEvaluate(ctx context.Context, builder Builder, xs, ys []float64, positions []Point, values []float64, mask Geometry, parallel bool) (*Grid, error) {
	interpolant, err := builder.Build(positions, values)
	if err != nil {
		return nil, err
	}
	return EvaluateInterpolant(ctx, interpolant, xs, ys, mask, parallel)
}

// triangulate triangulates positions with triangulator, or directly if
// triangulator is nil, and maps triangulation errors onto this package's
// errors.
func triangulate(triangulator Triangulator, positions []Point) (*delaunay.Triangulation, error) {
	var t *delaunay.Triangulation
	var err error
	if triangulator != nil {
		t, err = triangulator.Triangulate(positions)
	} else {
		t, err = delaunay.Triangulate(positions)
	}
	switch {
	case errors.Is(err, delaunay.ErrTooFewPoints):
		return nil, fmt.Errorf("%w: %w", ErrInsufficientSamples, err)
	case errors.Is(err, delaunay.ErrDuplicatePoint), errors.Is(err, delaunay.ErrCollinear):
		return nil, fmt.Errorf("%w: %w", ErrDegenerateInput, err)
	case err != nil:
		return nil, err
	default:
		return t, nil
	}
}

// An InterpolatorFactory returns a new Interpolator with default parameters.
type InterpolatorFactory func() Interpolator

var interpolatorRegistry = struct {
	sync.RWMutex
	factories map[string]InterpolatorFactory
}{
	factories: map[string]InterpolatorFactory{
		"null":             func() Interpolator { return NullInterpolator{} },
		"delaunay":         func() Interpolator { return &DelaunayMesh{} },
		"cloughtocher":     func() Interpolator { return &CloughTocher{} },
		"scattered":        func() Interpolator { return &Scattered{} },
		"spline":           func() Interpolator { return NewSplineSurface() },
		"naturalneighbour": func() Interpolator { return NewNaturalNeighbour() },
	},
}

// RegisterInterpolator registers factory under name, replacing any existing
// registration.
func RegisterInterpolator(name string, factory InterpolatorFactory) {
	interpolatorRegistry.Lock()
	defer interpolatorRegistry.Unlock()
	interpolatorRegistry.factories[name] = factory
}

// LookupInterpolator returns a new Interpolator registered under name.
func LookupInterpolator(name string) (Interpolator, error) {
	interpolatorRegistry.RLock()
	factory, ok := interpolatorRegistry.factories[name]
	interpolatorRegistry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownInterpolator)
	}
	return factory(), nil
}

// InterpolatorNames returns the sorted names of all registered interpolators.
func InterpolatorNames() []string {
	interpolatorRegistry.RLock()
	defer interpolatorRegistry.RUnlock()
	return slices.Sorted(maps.Keys(interpolatorRegistry.factories))
}

func interpolatorName(interpolator Interpolator) string {
	switch interpolator.(type) {
	case NullInterpolator, *NullInterpolator:
		return "null"
	case *DelaunayMesh:
		return "delaunay"
	case *CloughTocher:
		return "cloughtocher"
	case *Scattered:
		return "scattered"
	case *SplineSurface:
		return "spline"
	case *NaturalNeighbour:
		return "naturalneighbour"
	default:
		return "other"
	}
}

// Fill returns a pointer to v, for use as a fill value.
func Fill(v float64) *float64 {
	return &v
}

func fillValue(fill *float64) float64 {
	if fill == nil {
		return math.NaN()
	}
	return *fill
}
