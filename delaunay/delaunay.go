// Package delaunay computes Delaunay triangulations of planar point sets.
package delaunay

import (
	"errors"
	"fmt"
	"math"
	"slices"

	delaunator "github.com/fogleman/delaunay"
)

var (
	ErrTooFewPoints   = errors.New("too few points")
	ErrDuplicatePoint = errors.New("duplicate point")
	ErrCollinear      = errors.New("collinear points")
)

// A Point is a point in the plane.
type Point struct {
	X float64
	Y float64
}

// A Triangulation is a Delaunay triangulation. It is immutable once created
// and safe for concurrent use.
type Triangulation struct {
	Points []Point
	// Triangles contains vertex indexes in counter-clockwise order.
	Triangles [][3]int
	// Neighbors[t][i] is the triangle opposite Triangles[t][i], or -1 if the
	// edge is on the convex hull.
	Neighbors     [][3]int
	Circumcenters []Point
	// CircumradiiSquared contains the squared circumradius of each triangle.
	CircumradiiSquared []float64
	// VertexTriangles contains, for each vertex, one triangle incident to it.
	VertexTriangles []int
	adjacency       [][]int
}

// Triangulate returns the Delaunay triangulation of points. Points are
// translated to the center of their bounding box and scaled by a power of two
// before triangulating, so the result does not depend on how far the points
// are from the origin. When four or more points are cocircular the diagonal
// created first is kept.
func Triangulate(points []Point) (*Triangulation, error) {
	n := len(points)
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d, need at least 3", ErrTooFewPoints, n)
	}
	if i, j, ok := findDuplicate(points); ok {
		return nil, fmt.Errorf("%w: points %d and %d", ErrDuplicatePoint, i, j)
	}

	center, scale := normalization(points)
	normalized := make([]Point, n)
	input := make([]delaunator.Point, n)
	for i, p := range points {
		normalized[i] = Point{X: (p.X - center.X) / scale, Y: (p.Y - center.Y) / scale}
		input[i] = delaunator.Point{X: normalized[i].X, Y: normalized[i].Y}
	}

	result, err := delaunator.Triangulate(input)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrCollinear, err)
	case len(result.Triangles) == 0:
		return nil, ErrCollinear
	}

	m := len(result.Triangles) / 3
	t := &Triangulation{
		Points:             slices.Clone(points),
		Triangles:          make([][3]int, m),
		Neighbors:          make([][3]int, m),
		Circumcenters:      make([]Point, m),
		CircumradiiSquared: make([]float64, m),
	}
	for i := range m {
		var tri, opposite [3]int
		for k := range 3 {
			tri[k] = result.Triangles[3*i+k]
			// Half-edge 3i+k runs from vertex k to vertex k+1.
			opposite[(k+2)%3] = -1
			if h := result.Halfedges[3*i+k]; h >= 0 {
				opposite[(k+2)%3] = h / 3
			}
		}
		a, b, c := normalized[tri[0]], normalized[tri[1]], normalized[tri[2]]
		if cross(a, b, c) < 0 {
			tri[1], tri[2] = tri[2], tri[1]
			opposite[1], opposite[2] = opposite[2], opposite[1]
			b, c = c, b
		}
		t.Triangles[i] = tri
		t.Neighbors[i] = opposite
		cc, r2 := circumcircle(a, b, c)
		t.Circumcenters[i] = Point{X: center.X + scale*cc.X, Y: center.Y + scale*cc.Y}
		t.CircumradiiSquared[i] = scale * scale * r2
	}
	if v, ok := t.link(); !ok {
		return nil, fmt.Errorf("%w: point %d", ErrDuplicatePoint, v)
	}
	return t, nil
}

// link computes vertex triangles and vertex adjacency. It returns false and
// the first vertex that is in no triangle if there is one.
func (t *Triangulation) link() (int, bool) {
	t.VertexTriangles = make([]int, len(t.Points))
	for i := range t.VertexTriangles {
		t.VertexTriangles[i] = -1
	}
	adjacency := make([]map[int]struct{}, len(t.Points))
	for i, tri := range t.Triangles {
		for k, v := range tri {
			if t.VertexTriangles[v] < 0 {
				t.VertexTriangles[v] = i
			}
			if adjacency[v] == nil {
				adjacency[v] = make(map[int]struct{})
			}
			adjacency[v][tri[(k+1)%3]] = struct{}{}
			adjacency[v][tri[(k+2)%3]] = struct{}{}
		}
	}
	if v := slices.Index(t.VertexTriangles, -1); v >= 0 {
		return v, false
	}

	t.adjacency = make([][]int, len(t.Points))
	for v, neighbors := range adjacency {
		for w := range neighbors {
			t.adjacency[v] = append(t.adjacency[v], w)
		}
		slices.Sort(t.adjacency[v])
	}
	return 0, true
}

// Adjacent returns the vertexes that share an edge with vertex v. The returned
// slice must not be modified.
func (t *Triangulation) Adjacent(v int) []int {
	return t.adjacency[v]
}

// Barycentric returns the barycentric coordinates of p with respect to
// triangle i, in the order of the triangle's vertexes.
func (t *Triangulation) Barycentric(i int, p Point) [3]float64 {
	tri := t.Triangles[i]
	return barycentric(t.Points[tri[0]], t.Points[tri[1]], t.Points[tri[2]], p)
}

// Locate returns the triangle containing p and p's barycentric coordinates in
// it. Points on edges and vertexes are considered contained. The search walks
// from triangle hint, or from triangle 0 if hint is negative, and falls back
// to a linear scan if the walk leaves the triangulation.
func (t *Triangulation) Locate(p Point, hint int) (int, [3]float64, bool) {
	const eps = 1e-12
	i := hint
	if i < 0 || i >= len(t.Triangles) {
		i = 0
	}
	for range len(t.Triangles) {
		b := t.Barycentric(i, p)
		k := 0
		for j := 1; j < 3; j++ {
			if b[j] < b[k] {
				k = j
			}
		}
		if b[k] >= -eps {
			return i, b, true
		}
		next := t.Neighbors[i][k]
		if next < 0 {
			break
		}
		i = next
	}
	for i := range t.Triangles {
		b := t.Barycentric(i, p)
		if b[0] >= -eps && b[1] >= -eps && b[2] >= -eps {
			return i, b, true
		}
	}
	return -1, [3]float64{}, false
}

// ClosestHullPoint returns the hull edge (a, b) closest to p and the parameter
// s in [0, 1] of the closest point a + s*(b-a) on it.
func (t *Triangulation) ClosestHullPoint(p Point) (int, int, float64) {
	bestA, bestB, bestS := -1, -1, 0.0
	bestD2 := math.Inf(1)
	for i, tri := range t.Triangles {
		for k := range 3 {
			if t.Neighbors[i][k] >= 0 {
				continue
			}
			a, b := tri[(k+1)%3], tri[(k+2)%3]
			pa, pb := t.Points[a], t.Points[b]
			dx, dy := pb.X-pa.X, pb.Y-pa.Y
			s := ((p.X-pa.X)*dx + (p.Y-pa.Y)*dy) / (dx*dx + dy*dy)
			s = min(max(s, 0), 1)
			qx, qy := pa.X+s*dx-p.X, pa.Y+s*dy-p.Y
			if d2 := qx*qx + qy*qy; d2 < bestD2 {
				bestA, bestB, bestS, bestD2 = a, b, s, d2
			}
		}
	}
	return bestA, bestB, bestS
}

// Circumcenter returns the center of the circle through a, b, and c. It returns
// infinite coordinates if the points are collinear.
func Circumcenter(a, b, c Point) Point {
	center, _ := circumcircle(a, b, c)
	return center
}

// circumcircle returns the center and squared radius of the circle through a,
// b, and c, computed relative to a.
func circumcircle(a, b, c Point) (Point, float64) {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		return Point{X: math.Inf(1), Y: math.Inf(1)}, math.Inf(1)
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	return Point{X: a.X + ux, Y: a.Y + uy}, ux*ux + uy*uy
}

// cross returns twice the signed area of triangle abc, positive if abc is
// counter-clockwise.
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// normalization returns the center of the bounding box of points and the
// smallest power of two not less than its half-extent.
func normalization(points []Point) (Point, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	center := Point{X: minX + (maxX-minX)/2, Y: minY + (maxY-minY)/2}
	_, exp := math.Frexp(max(maxX-minX, maxY-minY) / 2)
	return center, math.Ldexp(1, exp)
}

func barycentric(a, b, c, p Point) [3]float64 {
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	l1 := ((b.Y-c.Y)*(p.X-c.X) + (c.X-b.X)*(p.Y-c.Y)) / det
	l2 := ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / det
	return [3]float64{l1, l2, 1 - l1 - l2}
}

func findDuplicate(points []Point) (int, int, bool) {
	indexes := make([]int, len(points))
	for i := range indexes {
		indexes[i] = i
	}
	slices.SortFunc(indexes, func(i, j int) int {
		if c := compareFloat(points[i].X, points[j].X); c != 0 {
			return c
		}
		return compareFloat(points[i].Y, points[j].Y)
	})
	for k := 1; k < len(indexes); k++ {
		if points[indexes[k-1]] == points[indexes[k]] {
			return min(indexes[k-1], indexes[k]), max(indexes[k-1], indexes[k]), true
		}
	}
	return 0, 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
