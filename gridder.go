package topoplot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/maypok86/otter/v2"
	"gonum.org/v1/gonum/floats"
)

// A MaskSource selects the geometry that a Gridder masks its grid to.
type MaskSource int

const (
	// MaskBounding masks to the bounding geometry: the enclosing geometry of
	// the original positions scaled by the enlargement factor, or the
	// explicit bounding geometry if one is set.
	MaskBounding MaskSource = iota
	// MaskInner masks to the extrapolation's inner geometry.
	MaskInner
	// MaskOuter masks to the extrapolation's outer geometry.
	MaskOuter
)

// A Result is the result of gridding samples.
type Result struct {
	Grid *Grid
	// Geometry is the geometry the grid was masked to.
	Geometry Geometry
	// Extrapolation contains the extra samples and geometries used.
	Extrapolation *ExtrapolationResult
}

// A Gridder extrapolates, interpolates, and masks scattered samples onto a
// regular grid. It is safe for concurrent use.
type Gridder struct {
	interpolator       Interpolator
	extrapolator       Extrapolator
	boundingKind       GeometryKind
	boundingGeometry   Geometry
	enlarge            float64
	width              int
	height             int
	outsideValue       float64
	maskSource         MaskSource
	triangulationCache *TriangulationCache
	maskCacheSize      int
	maskCache          *otter.Cache[maskKey, []bool]
}

// An Option sets an option on a Gridder.
type Option func(*Gridder)

type maskKey struct {
	geometry Geometry
	width    int
	height   int
}

// NewGridder returns a new Gridder with the given options.
func NewGridder(options ...Option) (*Gridder, error) {
	g := &Gridder{
		interpolator:  &CloughTocher{},
		extrapolator:  &GeomExtrapolation{},
		boundingKind:  KindCircle,
		enlarge:       1.2,
		width:         512,
		height:        512,
		outsideValue:  math.NaN(),
		maskSource:    MaskBounding,
		maskCacheSize: 16,
	}
	for _, option := range options {
		option(g)
	}

	if g.interpolator == nil {
		return nil, errors.New("gridder: nil interpolator")
	}
	if g.width < 1 || g.height < 1 {
		return nil, fmt.Errorf("gridder: %dx%d: invalid resolution", g.width, g.height)
	}
	if !(g.enlarge > 0) || math.IsInf(g.enlarge, 0) {
		return nil, fmt.Errorf("gridder: %g: invalid enlargement factor", g.enlarge)
	}
	if g.extrapolator == nil {
		g.extrapolator = NullExtrapolation{Geometry: g.boundingKind}
	}

	if g.triangulationCache == nil {
		var err error
		g.triangulationCache, err = NewTriangulationCache(8)
		if err != nil {
			return nil, err
		}
	}
	if user, ok := g.interpolator.(TriangulationUser); ok {
		g.interpolator = user.WithTriangulator(g.triangulationCache)
	}

	var err error
	g.maskCache, err = otter.New(&otter.Options[maskKey, []bool]{
		MaximumSize: max(g.maskCacheSize, 1),
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// WithBoundingGeometry sets an explicit geometry to mask to, instead of
// fitting one around the positions.
func WithBoundingGeometry(geometry Geometry) Option {
	return func(g *Gridder) {
		g.boundingGeometry = geometry
	}
}

// WithBoundingKind sets the kind of the bounding geometry.
func WithBoundingKind(kind GeometryKind) Option {
	return func(g *Gridder) {
		g.boundingKind = kind
	}
}

// WithEnlarge sets the scale factor of the bounding geometry relative to the
// tight enclosing geometry.
func WithEnlarge(enlarge float64) Option {
	return func(g *Gridder) {
		g.enlarge = enlarge
	}
}

// WithExtrapolator sets the extrapolator. nil disables extrapolation.
func WithExtrapolator(extrapolator Extrapolator) Option {
	return func(g *Gridder) {
		g.extrapolator = extrapolator
	}
}

func WithInterpolator(interpolator Interpolator) Option {
	return func(g *Gridder) {
		g.interpolator = interpolator
	}
}

func WithMaskCacheSize(maskCacheSize int) Option {
	return func(g *Gridder) {
		g.maskCacheSize = maskCacheSize
	}
}

func WithMaskSource(maskSource MaskSource) Option {
	return func(g *Gridder) {
		g.maskSource = maskSource
	}
}

// WithOutsideValue sets the value of cells outside the mask.
func WithOutsideValue(outsideValue float64) Option {
	return func(g *Gridder) {
		g.outsideValue = outsideValue
	}
}

// WithResolution sets the number of columns and rows.
func WithResolution(width, height int) Option {
	return func(g *Gridder) {
		g.width = width
		g.height = height
	}
}

// WithTriangulationCache sets the triangulation cache shared by interpolators
// that triangulate their positions.
func WithTriangulationCache(triangulationCache *TriangulationCache) Option {
	return func(g *Gridder) {
		g.triangulationCache = triangulationCache
	}
}

// Grid extrapolates positions and values, interpolates them onto a grid
// spanning the bounds of the mask geometry, and sets cells outside the mask
// geometry to the outside value.
func (g *Gridder) Grid(ctx context.Context, positions []Point, values []float64) (*Result, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}

	extrapolation, err := g.extrapolator.Extrapolate(positions, values)
	if err != nil {
		return nil, err
	}

	var geometry Geometry
	switch {
	case g.maskSource == MaskInner:
		geometry = extrapolation.Inner
	case g.maskSource == MaskOuter:
		geometry = extrapolation.Outer
	case g.boundingGeometry != nil:
		geometry = g.boundingGeometry
	default:
		geometry, err = EnclosingGeometry(g.boundingKind, positions, g.enlarge)
		if err != nil {
			return nil, err
		}
	}

	bounds := geometry.Bounds()
	xs := LinRange(bounds.Origin.X, bounds.Origin.X+bounds.Width, g.width)
	ys := LinRange(bounds.Origin.Y, bounds.Origin.Y+bounds.Height, g.height)
	augmentedPositions, augmentedValues := extrapolation.Augment(positions, values)

	start := time.Now()
	grid, err := g.interpolator.Interpolate(ctx, xs, ys, augmentedPositions, augmentedValues, geometry)
	if err != nil {
		return nil, err
	}
	interpolationDuration.WithLabelValues(interpolatorName(g.interpolator)).Observe(time.Since(start).Seconds())
	if width, height := grid.Dims(); width != g.width || height != g.height {
		return nil, fmt.Errorf("%w: interpolator returned %dx%d grid, want %dx%d", ErrShapeMismatch, width, height, g.width, g.height)
	}

	mask, err := g.mask(ctx, geometry, xs, ys)
	if err != nil {
		return nil, err
	}
	for i, inside := range mask {
		if !inside {
			grid.Values[i] = g.outsideValue
		}
	}

	return &Result{
		Grid:          grid,
		Geometry:      geometry,
		Extrapolation: extrapolation,
	}, nil
}

// mask returns whether the center of each cell of the grid xs × ys is inside
// geometry, in row-major order. The returned slice must not be modified.
func (g *Gridder) mask(ctx context.Context, geometry Geometry, xs, ys []float64) ([]bool, error) {
	key := maskKey{
		geometry: geometry,
		width:    len(xs),
		height:   len(ys),
	}
	loaded := false
	mask, err := g.maskCache.Get(ctx, key, otter.LoaderFunc[maskKey, []bool](func(ctx context.Context, key maskKey) ([]bool, error) {
		loaded = true
		mask := make([]bool, 0, len(xs)*len(ys))
		for _, y := range ys {
			for _, x := range xs {
				mask = append(mask, key.geometry.Contains(Point{X: x, Y: y}))
			}
		}
		return mask, nil
	}))
	if err != nil {
		return nil, err
	}
	if loaded {
		maskCacheMisses.Inc()
	} else {
		maskCacheHits.Inc()
	}
	return mask, nil
}

// InterpolateGrid grids positions and values with a new Gridder with the given
// options.
func InterpolateGrid(ctx context.Context, positions []Point, values []float64, options ...Option) (*Result, error) {
	gridder, err := NewGridder(options...)
	if err != nil {
		return nil, err
	}
	return gridder.Grid(ctx, positions, values)
}

// LinRange returns n evenly spaced values from lo to hi inclusive. If n is 1
// it returns the midpoint.
func LinRange(lo, hi float64, n int) []float64 {
	switch {
	case n < 1:
		return nil
	case n == 1:
		return []float64{(lo + hi) / 2}
	default:
		values := floats.Span(make([]float64, n), lo, hi)
		values[n-1] = hi
		return values
	}
}
