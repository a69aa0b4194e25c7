package topoplot_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/twpayne/go-topoplot"
)

// randomSamples returns n random positions in the unit square, plus its
// corners, and the values of f at them.
func randomSamples(n int, f func(x, y float64) float64) ([]topoplot.Point, []float64) {
	r := rand.New(rand.NewPCG(1, 2))
	positions := slices.Clone(squarePositions)
	for range n {
		positions = append(positions, topoplot.Point{X: r.Float64(), Y: r.Float64()})
	}
	values := make([]float64, len(positions))
	for i, p := range positions {
		values[i] = f(p.X, p.Y)
	}
	return positions, values
}

func smooth(x, y float64) float64 {
	return math.Sin(3*x) + math.Cos(2*y)
}

func linear(x, y float64) float64 {
	return 2*x - 3*y + 1
}

func TestBuildersExactAtVertexes(t *testing.T) {
	positions, values := randomSamples(40, smooth)
	for _, tc := range []struct {
		name    string
		builder topoplot.Builder
	}{
		{name: "delaunay", builder: &topoplot.DelaunayMesh{}},
		{name: "cloughtocher", builder: &topoplot.CloughTocher{}},
		{name: "cloughtocher_rescale", builder: &topoplot.CloughTocher{Rescale: true}},
		{name: "shepard", builder: &topoplot.Scattered{Method: topoplot.Shepard{Power: 2}}},
		{name: "thinplate", builder: &topoplot.Scattered{Method: topoplot.ThinPlate{}}},
		{name: "multiquadratic", builder: &topoplot.Scattered{Method: topoplot.Multiquadratic{Epsilon: 5}}},
		{name: "inversemultiquadratic", builder: &topoplot.Scattered{Method: topoplot.InverseMultiquadratic{Epsilon: 5}}},
		{name: "gaussian", builder: &topoplot.Scattered{Method: topoplot.Gaussian{Epsilon: 10}}},
		{name: "naturalneighbour", builder: topoplot.NewNaturalNeighbour()},
		{name: "sibson0", builder: &topoplot.NaturalNeighbour{Method: topoplot.Sibson{Order: 0}}},
		{name: "laplace", builder: &topoplot.NaturalNeighbour{Method: topoplot.Laplace{}}},
		{name: "farin", builder: &topoplot.NaturalNeighbour{Method: topoplot.Farin{}}},
		{name: "triangle", builder: &topoplot.NaturalNeighbour{Method: topoplot.Triangle{}}},
		{name: "nearest", builder: &topoplot.NaturalNeighbour{Method: topoplot.Nearest{}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			interpolant, err := tc.builder.Build(positions, values)
			assert.NoError(t, err)
			for i, p := range positions {
				actual := interpolant.At(p.X, p.Y)
				assert.True(t, math.Abs(actual-values[i]) < 1e-6, "position %d: expected %g, got %g", i, values[i], actual)
			}
		})
	}
}

func TestBuildersReproduceLinear(t *testing.T) {
	positions, values := randomSamples(40, linear)
	queries := make([]topoplot.Point, 0, 25)
	for _, x := range topoplot.LinRange(0.1, 0.9, 5) {
		for _, y := range topoplot.LinRange(0.1, 0.9, 5) {
			queries = append(queries, topoplot.Point{X: x, Y: y})
		}
	}
	for _, tc := range []struct {
		name    string
		builder topoplot.Builder
		tol     float64
	}{
		{name: "delaunay", builder: &topoplot.DelaunayMesh{}, tol: 1e-12},
		{name: "cloughtocher", builder: &topoplot.CloughTocher{}, tol: 1e-3},
		{name: "thinplate", builder: &topoplot.Scattered{}, tol: 1e-8},
		{name: "sibson1", builder: topoplot.NewNaturalNeighbour(), tol: 1e-8},
		{name: "sibson1_iterative", builder: &topoplot.NaturalNeighbour{DerivativeMethod: topoplot.DerivativeIterative}, tol: 1e-8},
		{name: "sibson0", builder: &topoplot.NaturalNeighbour{Method: topoplot.Sibson{Order: 0}}, tol: 1e-8},
		{name: "laplace", builder: &topoplot.NaturalNeighbour{Method: topoplot.Laplace{}}, tol: 1e-8},
		{name: "farin", builder: &topoplot.NaturalNeighbour{Method: topoplot.Farin{}}, tol: 1e-8},
		{name: "triangle", builder: &topoplot.NaturalNeighbour{Method: topoplot.Triangle{}}, tol: 1e-12},
	} {
		t.Run(tc.name, func(t *testing.T) {
			interpolant, err := tc.builder.Build(positions, values)
			assert.NoError(t, err)
			for _, q := range queries {
				expected := linear(q.X, q.Y)
				actual := interpolant.At(q.X, q.Y)
				assert.True(t, math.Abs(actual-expected) < tc.tol, "(%g, %g): expected %g, got %g", q.X, q.Y, expected, actual)
			}
		})
	}
}

func TestDelaunayMeshScenarioA(t *testing.T) {
	grid, err := (&topoplot.DelaunayMesh{}).Interpolate(t.Context(), []float64{0, 1}, []float64{0, 1}, squarePositions, []float64{0, 0, 1, 1}, nil)
	assert.NoError(t, err)
	assert.True(t, cmp.Equal([]float64{0, 0, 1, 1}, grid.Values, cmpopts.EquateApprox(0, 1e-12)), cmp.Diff([]float64{0, 0, 1, 1}, grid.Values))

	// The diagonal runs from (1, 0) to (0, 1), so the center is the mean of
	// those two corners.
	mesh, err := (&topoplot.DelaunayMesh{}).Mesh(squarePositions, []float64{0, 1, 2, 0})
	assert.NoError(t, err)
	assert.Equal(t, 1.5, mesh.At(0.5, 0.5))
}

func TestDelaunayMeshOutsideHull(t *testing.T) {
	values := []float64{0, 0, 1, 1}
	for _, tc := range []struct {
		name     string
		mesh     *topoplot.DelaunayMesh
		p        topoplot.Point
		expected float64
	}{
		{name: "nan", mesh: &topoplot.DelaunayMesh{}, p: topoplot.Point{X: 0.5, Y: -1}, expected: math.NaN()},
		{name: "fill", mesh: &topoplot.DelaunayMesh{FillValue: topoplot.Fill(-1)}, p: topoplot.Point{X: 0.5, Y: -1}, expected: -1},
		{name: "clamp_below", mesh: &topoplot.DelaunayMesh{Clamp: true}, p: topoplot.Point{X: 0.5, Y: -1}, expected: 0},
		{name: "clamp_right", mesh: &topoplot.DelaunayMesh{Clamp: true}, p: topoplot.Point{X: 2, Y: 0.5}, expected: 0.5},
		{name: "clamp_corner", mesh: &topoplot.DelaunayMesh{Clamp: true}, p: topoplot.Point{X: 3, Y: 3}, expected: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mesh, err := tc.mesh.Mesh(squarePositions, values)
			assert.NoError(t, err)
			actual := mesh.At(tc.p.X, tc.p.Y)
			if math.IsNaN(tc.expected) {
				assert.True(t, math.IsNaN(actual))
			} else {
				assert.True(t, math.Abs(actual-tc.expected) < 1e-12)
			}
		})
	}
}

func TestMeshContours(t *testing.T) {
	mesh, err := (&topoplot.DelaunayMesh{}).Mesh(squarePositions, []float64{0, 0, 1, 1})
	assert.NoError(t, err)
	_, err = mesh.Contours([]float64{0.5})
	assert.IsError(t, err, topoplot.ErrUnsupportedOperation)

	xs := topoplot.LinRange(0, 1, 5)
	grid, err := mesh.Resample(t.Context(), xs, xs, nil)
	assert.NoError(t, err)
	for r, y := range xs {
		for c := range xs {
			assert.True(t, math.Abs(grid.At(c, r)-y) < 1e-12)
		}
	}
}

func TestNaturalNeighbourCoordinates(t *testing.T) {
	positions := append(slices.Clone(squarePositions), topoplot.Point{X: 0.5, Y: 0.5})
	for _, tc := range []struct {
		name     string
		method   topoplot.NNMethod
		values   []float64
		expected float64
	}{
		{name: "sibson_center", method: topoplot.Sibson{Order: 0}, values: []float64{0, 0, 0, 0, 1}, expected: 0.5},
		{name: "sibson_corner", method: topoplot.Sibson{Order: 0}, values: []float64{1, 0, 0, 0, 0}, expected: 0.25},
		{name: "sibson_far_corner", method: topoplot.Sibson{Order: 0}, values: []float64{0, 1, 0, 0, 0}, expected: 0},
		{name: "laplace_center", method: topoplot.Laplace{}, values: []float64{0, 0, 0, 0, 1}, expected: 0.5},
		{name: "laplace_corner", method: topoplot.Laplace{}, values: []float64{0, 0, 1, 0, 0}, expected: 0.25},
		{name: "sibson_y", method: topoplot.Sibson{Order: 0}, values: []float64{0, 0, 1, 1, 0.5}, expected: 0.5},
		{name: "nearest", method: topoplot.Nearest{}, values: []float64{0, 1, 2, 3, 4}, expected: 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			interpolant, err := (&topoplot.NaturalNeighbour{Method: tc.method}).Build(positions, tc.values)
			assert.NoError(t, err)
			actual := interpolant.At(0.25, 0.5)
			assert.True(t, math.Abs(actual-tc.expected) < 1e-12, "expected %g, got %g", tc.expected, actual)
		})
	}
}

func TestNaturalNeighbourOutsideHull(t *testing.T) {
	values := []float64{0, 0, 1, 1}

	interpolant, err := topoplot.NewNaturalNeighbour().Build(squarePositions, values)
	assert.NoError(t, err)
	assert.True(t, math.Abs(interpolant.At(2, 0.25)-0.25) < 1e-12)

	interpolant, err = (&topoplot.NaturalNeighbour{FillValue: topoplot.Fill(-1)}).Build(squarePositions, values)
	assert.NoError(t, err)
	assert.Equal(t, -1, interpolant.At(2, 0.25))
}

func TestCloughTocherConvergence(t *testing.T) {
	positions := append(slices.Clone(squarePositions), topoplot.Point{X: 0.5, Y: 0.5})
	values := []float64{0, 0, 1, 1, 0.5}

	_, err := (&topoplot.CloughTocher{MaxIter: 1}).Build(positions, values)
	assert.IsError(t, err, topoplot.ErrConvergence)
	var convergenceError *topoplot.ConvergenceError
	assert.True(t, errors.As(err, &convergenceError))
	assert.Equal(t, 1, convergenceError.Iterations)
	assert.True(t, convergenceError.Residual > 0)

	_, err = (&topoplot.CloughTocher{MaxIter: 1}).Build(positions, []float64{2, 2, 2, 2, 2})
	assert.NoError(t, err)

	interpolant, err := (&topoplot.CloughTocher{FillValue: topoplot.Fill(-1)}).Build(positions, values)
	assert.NoError(t, err)
	assert.Equal(t, -1, interpolant.At(-1, -1))
}

func TestSplineSurface(t *testing.T) {
	var positions []topoplot.Point
	var values []float64
	for _, x := range []float64{0, 0.5, 1} {
		for _, y := range []float64{0, 1. / 3, 2. / 3, 1} {
			positions = append(positions, topoplot.Point{X: x, Y: y})
			values = append(values, linear(x, y))
		}
	}
	interpolant, err := topoplot.NewSplineSurface().Build(positions, values)
	assert.NoError(t, err)
	for _, q := range []topoplot.Point{{X: 0.25, Y: 0.25}, {X: 0.8, Y: 0.1}, {X: 0.5, Y: 0.5}} {
		assert.True(t, math.Abs(interpolant.At(q.X, q.Y)-linear(q.X, q.Y)) < 1e-6)
	}
	// Queries outside the data are clamped.
	assert.True(t, math.Abs(interpolant.At(2, 0.5)-linear(1, 0.5)) < 1e-6)
}

func TestSplineSurfaceScenarioD(t *testing.T) {
	spline := &topoplot.SplineSurface{KX: 2, KY: 2}
	_, err := spline.Build(trianglePositions, []float64{1, 2, 3})
	assert.IsError(t, err, topoplot.ErrInsufficientSamples)

	_, err = spline.Interpolate(t.Context(), []float64{0, 1}, []float64{0, 1}, trianglePositions, []float64{1, 2, 3}, nil)
	assert.IsError(t, err, topoplot.ErrInsufficientSamples)
}

func TestBuildErrors(t *testing.T) {
	collinear := []topoplot.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	duplicate := []topoplot.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}}
	manyPositions := make([]topoplot.Point, topoplot.MaxDenseSamples+1)
	for i := range manyPositions {
		manyPositions[i] = topoplot.Point{X: float64(i % 100), Y: float64(i / 100)}
	}
	for _, tc := range []struct {
		name        string
		builder     topoplot.Builder
		positions   []topoplot.Point
		values      []float64
		expectedErr error
	}{
		{
			name:        "shape_mismatch",
			builder:     &topoplot.DelaunayMesh{},
			positions:   squarePositions,
			values:      []float64{1},
			expectedErr: topoplot.ErrShapeMismatch,
		},
		{
			name:        "too_few",
			builder:     &topoplot.CloughTocher{},
			positions:   squarePositions[:2],
			values:      []float64{1, 2},
			expectedErr: topoplot.ErrInsufficientSamples,
		},
		{
			name:        "collinear",
			builder:     topoplot.NewNaturalNeighbour(),
			positions:   collinear,
			values:      []float64{1, 2, 3, 4},
			expectedErr: topoplot.ErrDegenerateInput,
		},
		{
			name:        "duplicate",
			builder:     &topoplot.DelaunayMesh{},
			positions:   duplicate,
			values:      []float64{1, 2, 3, 4},
			expectedErr: topoplot.ErrDegenerateInput,
		},
		{
			name:        "too_many",
			builder:     &topoplot.Scattered{},
			positions:   manyPositions,
			values:      make([]float64, len(manyPositions)),
			expectedErr: topoplot.ErrTooManySamples,
		},
		{
			name:        "rbf_too_few",
			builder:     &topoplot.Scattered{Method: topoplot.ThinPlate{}},
			positions:   squarePositions[:2],
			values:      []float64{1, 2},
			expectedErr: topoplot.ErrInsufficientSamples,
		},
		{
			name:        "spline_degree",
			builder:     &topoplot.SplineSurface{KX: 6},
			positions:   squarePositions,
			values:      []float64{1, 2, 3, 4},
			expectedErr: errors.ErrUnsupported,
		},
		{
			name:        "sibson_order",
			builder:     &topoplot.NaturalNeighbour{Method: topoplot.Sibson{Order: 2}},
			positions:   squarePositions,
			values:      []float64{1, 2, 3, 4},
			expectedErr: errors.ErrUnsupported,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build(tc.positions, tc.values)
			assert.IsError(t, err, tc.expectedErr)
		})
	}
}

func TestNullInterpolator(t *testing.T) {
	xs := []float64{0, 1, 2}
	grid, err := topoplot.NullInterpolator{}.Interpolate(t.Context(), xs, xs[:2], squarePositions, []float64{1, 2, 3, 4}, nil)
	assert.NoError(t, err)
	assert.Equal(t, make([]float64, 6), grid.Values)
}

func TestEvaluateInterpolant(t *testing.T) {
	interpolant := topoplot.InterpolantFunc(smooth)
	xs := topoplot.LinRange(-1, 1, 37)
	ys := topoplot.LinRange(-1, 1, 23)
	mask := topoplot.Circle{Radius: 1}

	sequential, err := topoplot.EvaluateInterpolant(t.Context(), interpolant, xs, ys, mask, false)
	assert.NoError(t, err)
	parallel, err := topoplot.EvaluateInterpolant(t.Context(), interpolant, xs, ys, mask, true)
	assert.NoError(t, err)
	assert.True(t, cmp.Equal(sequential.Values, parallel.Values, cmpopts.EquateNaNs()))

	for r, y := range ys {
		for c, x := range xs {
			if mask.Contains(topoplot.Point{X: x, Y: y}) {
				assert.Equal(t, smooth(x, y), parallel.At(c, r))
			} else {
				assert.True(t, math.IsNaN(parallel.At(c, r)))
			}
		}
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	for _, concurrent := range []bool{false, true} {
		_, err := topoplot.EvaluateInterpolant(ctx, interpolant, xs, ys, nil, concurrent)
		assert.IsError(t, err, context.Canceled)
	}
}

func TestInterpolatorRegistry(t *testing.T) {
	names := topoplot.InterpolatorNames()
	for _, name := range []string{"cloughtocher", "delaunay", "naturalneighbour", "null", "scattered", "spline"} {
		assert.SliceContains(t, names, name)
	}
	assert.True(t, slices.IsSorted(names))

	interpolator, err := topoplot.LookupInterpolator("spline")
	assert.NoError(t, err)
	assert.Equal(t, topoplot.Interpolator(topoplot.NewSplineSurface()), interpolator)

	_, err = topoplot.LookupInterpolator("kriging")
	assert.IsError(t, err, topoplot.ErrUnknownInterpolator)

	topoplot.RegisterInterpolator("constant", func() topoplot.Interpolator {
		return constantInterpolator(42)
	})
	interpolator, err = topoplot.LookupInterpolator("constant")
	assert.NoError(t, err)
	grid, err := interpolator.Interpolate(t.Context(), []float64{0}, []float64{0}, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, []float64{42}, grid.Values)
}

// A constantInterpolator is a third-party Interpolator that only implements
// Interpolate.
type constantInterpolator float64

func (c constantInterpolator) Interpolate(ctx context.Context, xs, ys []float64, positions []topoplot.Point, values []float64, mask topoplot.Geometry) (*topoplot.Grid, error) {
	return topoplot.NewGrid(xs, ys, float64(c)), nil
}

func BenchmarkNaturalNeighbour(b *testing.B) {
	positions, values := randomSamples(64, smooth)
	xs := topoplot.LinRange(0, 1, 64)
	for b.Loop() {
		_, err := topoplot.NewNaturalNeighbour().Interpolate(b.Context(), xs, xs, positions, values, nil)
		assert.NoError(b, err)
	}
}

func BenchmarkCloughTocher(b *testing.B) {
	positions, values := randomSamples(64, smooth)
	xs := topoplot.LinRange(0, 1, 64)
	for b.Loop() {
		_, err := (&topoplot.CloughTocher{}).Interpolate(b.Context(), xs, xs, positions, values, nil)
		assert.NoError(b, err)
	}
}
