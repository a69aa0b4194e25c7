package topoplot

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// A GeometryKind is a kind of enclosing geometry.
type GeometryKind int

const (
	KindCircle GeometryKind = iota + 1
	KindRect
)

// ParseGeometryKind parses a geometry kind name.
func ParseGeometryKind(s string) (GeometryKind, error) {
	switch strings.ToLower(s) {
	case "circle":
		return KindCircle, nil
	case "rect", "rectangle":
		return KindRect, nil
	default:
		return 0, fmt.Errorf("%s: unknown geometry kind", s)
	}
}

func (k GeometryKind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	default:
		return fmt.Sprintf("GeometryKind(%d)", int(k))
	}
}

// A Geometry is a closed region of the plane. Geometries are comparable
// values.
type Geometry interface {
	// Contains returns whether p is inside or on the boundary.
	Contains(p Point) bool
	// Bounds returns the axis-aligned bounding rectangle.
	Bounds() Rect
	// Bound returns the axis-aligned bounding box as an orb.Bound.
	Bound() orb.Bound
	// Boundary returns n points at equal arc length along the boundary,
	// counter-clockwise.
	Boundary(n int) []Point
	// Outline returns a closed ring of n boundary points.
	Outline(n int) orb.Ring
	Kind() GeometryKind
	// Scale returns the geometry scaled by f about its center.
	Scale(f float64) Geometry
}

// containsTolerance is the relative distance from a boundary within which
// points are considered on it.
const containsTolerance = 1e-12

// A Circle is a circle.
type Circle struct {
	Center Point
	Radius float64
}

// A Rect is an axis-aligned rectangle with its lower left corner at Origin.
type Rect struct {
	Origin Point
	Width  float64
	Height float64
}

// Contains returns whether p is inside or on c. Points within rounding error
// of the boundary are on it.
func (c Circle) Contains(p Point) bool {
	dx, dy := p.X-c.Center.X, p.Y-c.Center.Y
	r := c.Radius + containsTolerance*(c.Radius+math.Abs(c.Center.X)+math.Abs(c.Center.Y))
	return dx*dx+dy*dy <= r*r
}

func (c Circle) Bounds() Rect {
	return Rect{
		Origin: Point{X: c.Center.X - c.Radius, Y: c.Center.Y - c.Radius},
		Width:  2 * c.Radius,
		Height: 2 * c.Radius,
	}
}

func (c Circle) Bound() orb.Bound {
	return c.Bounds().Bound()
}

func (c Circle) Boundary(n int) []Point {
	if n <= 0 {
		return nil
	}
	points := make([]Point, n)
	for i := range points {
		theta := 2 * math.Pi * float64(i) / float64(n)
		points[i] = Point{
			X: c.Center.X + c.Radius*math.Cos(theta),
			Y: c.Center.Y + c.Radius*math.Sin(theta),
		}
	}
	return points
}

func (c Circle) Outline(n int) orb.Ring {
	return outline(c.Boundary(n))
}

func (c Circle) Kind() GeometryKind {
	return KindCircle
}

func (c Circle) Scale(f float64) Geometry {
	return Circle{
		Center: c.Center,
		Radius: c.Radius * f,
	}
}

// Contains returns whether p is inside or on r. Points within rounding error
// of the boundary are on it.
func (r Rect) Contains(p Point) bool {
	ex := containsTolerance * (r.Width + math.Abs(r.Origin.X))
	ey := containsTolerance * (r.Height + math.Abs(r.Origin.Y))
	return r.Origin.X-ex <= p.X && p.X <= r.Origin.X+r.Width+ex &&
		r.Origin.Y-ey <= p.Y && p.Y <= r.Origin.Y+r.Height+ey
}

func (r Rect) Bounds() Rect {
	return r
}

func (r Rect) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Origin.X, r.Origin.Y},
		Max: orb.Point{r.Origin.X + r.Width, r.Origin.Y + r.Height},
	}
}

func (r Rect) Boundary(n int) []Point {
	if n <= 0 {
		return nil
	}
	perimeter := 2 * (r.Width + r.Height)
	points := make([]Point, n)
	for i := range points {
		s := perimeter * float64(i) / float64(n)
		switch {
		case s < r.Width:
			points[i] = Point{X: r.Origin.X + s, Y: r.Origin.Y}
		case s < r.Width+r.Height:
			points[i] = Point{X: r.Origin.X + r.Width, Y: r.Origin.Y + s - r.Width}
		case s < 2*r.Width+r.Height:
			points[i] = Point{X: r.Origin.X + r.Width - (s - r.Width - r.Height), Y: r.Origin.Y + r.Height}
		default:
			points[i] = Point{X: r.Origin.X, Y: r.Origin.Y + r.Height - (s - 2*r.Width - r.Height)}
		}
	}
	return points
}

func (r Rect) Outline(n int) orb.Ring {
	return outline(r.Boundary(n))
}

// Center returns the center of r.
func (r Rect) Center() Point {
	return Point{X: r.Origin.X + r.Width/2, Y: r.Origin.Y + r.Height/2}
}

func (r Rect) Kind() GeometryKind {
	return KindRect
}

func (r Rect) Scale(f float64) Geometry {
	center := r.Center()
	width, height := r.Width*f, r.Height*f
	return Rect{
		Origin: Point{X: center.X - width/2, Y: center.Y - height/2},
		Width:  width,
		Height: height,
	}
}

// EnclosingGeometry returns the geometry of the given kind enclosing
// positions, scaled by enlarge about its center. An enlarge of 1 gives the
// tight geometry.
//
// The circle is centered on the midpoint of the bounding box of positions and
// its radius is half the bounding box diagonal. The rectangle is the bounding
// box.
func EnclosingGeometry(kind GeometryKind, positions []Point, enlarge float64) (Geometry, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("enclosing geometry: %w: no positions", ErrInsufficientSamples)
	}
	if !(enlarge > 0) || math.IsInf(enlarge, 0) {
		return nil, fmt.Errorf("enclosing geometry: %w: enlarge %g", ErrDegenerateInput, enlarge)
	}
	bounds := boundingBox(positions)
	switch kind {
	case KindCircle:
		if bounds.Width == 0 && bounds.Height == 0 {
			return nil, fmt.Errorf("enclosing circle: %w: all positions coincide", ErrDegenerateInput)
		}
		return Circle{
			Center: bounds.Center(),
			Radius: math.Hypot(bounds.Width, bounds.Height) / 2 * enlarge,
		}, nil
	case KindRect:
		if bounds.Width == 0 || bounds.Height == 0 {
			return nil, fmt.Errorf("enclosing rect: %w: zero width or height", ErrDegenerateInput)
		}
		return bounds.Scale(enlarge), nil
	default:
		return nil, fmt.Errorf("%s: %w", kind, errors.ErrUnsupported)
	}
}

// EnclosingGeometryPadded returns the geometry of the given kind enclosing
// positions, enlarged by the fraction padding. A padding of 0.1 gives a
// geometry 10% larger than the tight geometry.
func EnclosingGeometryPadded(kind GeometryKind, positions []Point, padding float64) (Geometry, error) {
	return EnclosingGeometry(kind, positions, 1+padding)
}

func boundingBox(positions []Point) Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{
		Origin: Point{X: minX, Y: minY},
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

func outline(points []Point) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	if len(points) > 0 {
		ring = append(ring, orb.Point{points[0].X, points[0].Y})
	}
	return ring
}
