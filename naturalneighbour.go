package topoplot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/twpayne/go-topoplot/delaunay"
)

// An NNMethod is a natural neighbour interpolation scheme.
type NNMethod interface {
	nnMethod()
}

// A Sibson interpolates with Sibson's area-stealing coordinates. Order 0 is
// continuous everywhere except at the data sites; order 1 blends in the
// estimated gradients and is C¹ at the data sites. Other orders, including
// the C² Hiyoshi interpolant, return errors.ErrUnsupported.
type Sibson struct {
	Order int
}

// A Laplace interpolates with Laplace (non-Sibsonian) coordinates.
type Laplace struct{}

// A Farin interpolates with Farin's C¹ cubic Bézier scheme over Sibson
// coordinates.
type Farin struct{}

// A Triangle interpolates linearly within the containing Delaunay triangle.
type Triangle struct{}

// A Nearest returns the value of the nearest sample.
type Nearest struct{}

func (Sibson) nnMethod()   {}
func (Laplace) nnMethod()  {}
func (Farin) nnMethod()    {}
func (Triangle) nnMethod() {}
func (Nearest) nnMethod()  {}

// A DerivativeMethod is a method for estimating gradients at the data sites.
type DerivativeMethod int

const (
	// DerivativeDirect fits a weighted least squares Taylor polynomial to the
	// values around each site.
	DerivativeDirect DerivativeMethod = iota
	// DerivativeIterative refines direct estimates by also fitting the
	// neighbouring gradients, weighting values by Alpha and gradients by
	// 1-Alpha.
	DerivativeIterative
)

// A NaturalNeighbour interpolates using the natural neighbours of each query
// point in the Delaunay triangulation of the sample positions.
type NaturalNeighbour struct {
	// Method is the interpolation scheme. nil means Sibson{Order: 1}.
	Method           NNMethod
	DerivativeMethod DerivativeMethod
	// UseCubicTerms includes cubic terms in direct gradient estimation.
	UseCubicTerms bool
	// Alpha is the weight of values relative to gradients in iterative
	// gradient estimation. Zero means 0.1.
	Alpha float64
	// Sequential disables parallel grid evaluation.
	Sequential bool
	// Project, if true, evaluates points outside the convex hull at the
	// nearest point on the hull instead of using FillValue.
	Project bool
	// FillValue is the value outside the convex hull. nil means NaN.
	FillValue    *float64
	Triangulator Triangulator
}

type naturalNeighbourInterpolant struct {
	triangulation *delaunay.Triangulation
	values        []float64
	gradients     [][2]float64
	tree          *kdtree.Tree
	method        NNMethod
	project       bool
	fill          float64
}

// NewNaturalNeighbour returns a new NaturalNeighbour with C¹ Sibson
// interpolation, direct cubic gradient estimation, and projection outside
// the convex hull.
func NewNaturalNeighbour() *NaturalNeighbour {
	return &NaturalNeighbour{
		Method:        Sibson{Order: 1},
		UseCubicTerms: true,
		Alpha:         0.1,
		Project:       true,
	}
}

func (nn *NaturalNeighbour) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	return buildAndEvaluate(ctx, nn, xs, ys, positions, values, mask, !nn.Sequential)
}

func (nn *NaturalNeighbour) WithTriangulator(triangulator Triangulator) Interpolator {
	clone := *nn
	clone.Triangulator = triangulator
	return &clone
}

func (nn *NaturalNeighbour) Build(positions []Point, values []float64) (Interpolant, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	method := nn.Method
	if method == nil {
		method = Sibson{Order: 1}
	}
	needsGradients := false
	switch m := method.(type) {
	case Sibson:
		if m.Order != 0 && m.Order != 1 {
			return nil, fmt.Errorf("sibson order %d: %w", m.Order, errors.ErrUnsupported)
		}
		needsGradients = m.Order == 1
	case Farin:
		needsGradients = true
	}

	t, err := triangulate(nn.Triangulator, positions)
	if err != nil {
		return nil, err
	}

	interpolant := &naturalNeighbourInterpolant{
		triangulation: t,
		values:        values,
		tree:          newSiteTree(t.Points),
		method:        method,
		project:       nn.Project,
		fill:          fillValue(nn.FillValue),
	}
	if needsGradients {
		alpha := nn.Alpha
		if alpha == 0 {
			alpha = 0.1
		}
		interpolant.gradients = estimateSiteGradients(t, values, nn.DerivativeMethod, nn.UseCubicTerms, alpha)
	}
	return interpolant, nil
}

func (i *naturalNeighbourInterpolant) At(x, y float64) float64 {
	t := i.triangulation
	q := Point{X: x, Y: y}
	nearest, d2 := i.nearest(q)
	if d2 == 0 {
		return i.values[nearest]
	}

	j, b, ok := t.Locate(q, t.VertexTriangles[nearest])
	if !ok {
		if !i.project {
			return i.fill
		}
		a, c, s := t.ClosestHullPoint(q)
		return (1-s)*i.values[a] + s*i.values[c]
	}

	tri := t.Triangles[j]
	linear := b[0]*i.values[tri[0]] + b[1]*i.values[tri[1]] + b[2]*i.values[tri[2]]
	switch i.method.(type) {
	case Nearest:
		return i.values[nearest]
	case Triangle:
		return linear
	}

	// Points on the hull have degenerate natural neighbour regions.
	nc, ok := naturalCoordinates(t, q, j)
	if !ok {
		return linear
	}
	var v float64
	switch m := i.method.(type) {
	case Sibson:
		if m.Order == 0 {
			v = nc.interpolate(nc.sibson, i.values)
		} else {
			v = i.sibson1(q, nc)
		}
	case Laplace:
		v = nc.interpolate(nc.laplace, i.values)
	case Farin:
		v = i.farin(nc)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return linear
	}
	return v
}

// sibson1 blends the Sibson interpolant with the gradient-extrapolated
// values of the natural neighbours.
func (i *naturalNeighbourInterpolant) sibson1(q Point, nc *naturalNeighbourCoordinates) float64 {
	var z0, sumWeights, sumZeta, sumLambdaR, sumLambdaR2 float64
	for k, v := range nc.sites {
		lambda := nc.sibson[k]
		p := i.triangulation.Points[v]
		dx, dy := q.X-p.X, q.Y-p.Y
		r := math.Hypot(dx, dy)
		zeta := i.values[v] + i.gradients[v][0]*dx + i.gradients[v][1]*dy
		w := lambda / r
		z0 += lambda * i.values[v]
		sumWeights += w
		sumZeta += w * zeta
		sumLambdaR += lambda * r
		sumLambdaR2 += lambda * r * r
	}
	xi := sumZeta / sumWeights
	alpha := sumLambdaR / sumWeights
	beta := sumLambdaR2
	return (alpha*z0 + beta*xi) / (alpha + beta)
}

// farin evaluates Farin's cubic Bézier simplex over the Sibson coordinates.
func (i *naturalNeighbourInterpolant) farin(nc *naturalNeighbourCoordinates) float64 {
	m := len(nc.sites)
	points := i.triangulation.Points
	bIIJ := func(a, b int) float64 {
		va, vb := nc.sites[a], nc.sites[b]
		g := i.gradients[va]
		return i.values[va] + (g[0]*(points[vb].X-points[va].X)+g[1]*(points[vb].Y-points[va].Y))/3
	}
	lambda := nc.sibson
	var result float64
	for a := range m {
		result += i.values[nc.sites[a]] * lambda[a] * lambda[a] * lambda[a]
		for b := range m {
			if b != a {
				result += 3 * bIIJ(a, b) * lambda[a] * lambda[a] * lambda[b]
			}
		}
	}
	for a := range m {
		for b := a + 1; b < m; b++ {
			for c := b + 1; c < m; c++ {
				fa, fb, fc := i.values[nc.sites[a]], i.values[nc.sites[b]], i.values[nc.sites[c]]
				bABC := (bIIJ(a, b)+bIIJ(a, c)+bIIJ(b, a)+bIIJ(b, c)+bIIJ(c, a)+bIIJ(c, b))/4 - (fa+fb+fc)/6
				result += 6 * bABC * lambda[a] * lambda[b] * lambda[c]
			}
		}
	}
	return result
}

func (i *naturalNeighbourInterpolant) nearest(q Point) (int, float64) {
	c, d2 := i.tree.Nearest(site{Point: q, index: -1})
	return c.(site).index, d2
}

// naturalNeighbourCoordinates are the natural neighbours of a query point
// with their normalized Sibson and Laplace coordinates.
type naturalNeighbourCoordinates struct {
	sites   []int
	sibson  []float64
	laplace []float64
}

func (nc *naturalNeighbourCoordinates) interpolate(coords, values []float64) float64 {
	var sum float64
	for k, v := range nc.sites {
		sum += coords[k] * values[v]
	}
	return sum
}

// naturalCoordinates returns the natural neighbour coordinates of q, which
// lies in triangle start. The natural neighbours are the vertexes of the
// cavity of triangles whose circumcircles contain q. The Sibson coordinate of
// each is the area its Voronoi cell would lose to q, and the Laplace
// coordinate is the length of the shared Voronoi edge divided by the distance
// to q.
func naturalCoordinates(t *delaunay.Triangulation, q Point, start int) (*naturalNeighbourCoordinates, bool) {
	cavity := []int{start}
	stack := []int{start}
	for len(stack) > 0 {
		tri := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, neighbor := range t.Neighbors[tri] {
			if neighbor < 0 || slices.Contains(cavity, neighbor) {
				continue
			}
			c := t.Circumcenters[neighbor]
			dx, dy := q.X-c.X, q.Y-c.Y
			if dx*dx+dy*dy < t.CircumradiiSquared[neighbor]*(1-1e-12) {
				cavity = append(cavity, neighbor)
				stack = append(stack, neighbor)
			}
		}
	}

	type boundaryEdge struct {
		from, to int
		triangle int
	}
	var edges []boundaryEdge
	for _, tri := range cavity {
		for k, neighbor := range t.Neighbors[tri] {
			if neighbor < 0 || !slices.Contains(cavity, neighbor) {
				edges = append(edges, boundaryEdge{
					from:     t.Triangles[tri][(k+1)%3],
					to:       t.Triangles[tri][(k+2)%3],
					triangle: tri,
				})
			}
		}
	}

	// Chain the boundary edges into a counter-clockwise cycle.
	cycle := make([]boundaryEdge, 1, len(edges))
	cycle[0] = edges[0]
	for len(cycle) < len(edges) {
		last := cycle[len(cycle)-1]
		k := slices.IndexFunc(edges, func(e boundaryEdge) bool { return e.from == last.to })
		if k < 0 {
			return nil, false
		}
		cycle = append(cycle, edges[k])
	}

	m := len(cycle)
	nc := &naturalNeighbourCoordinates{
		sites:   make([]int, m),
		sibson:  make([]float64, m),
		laplace: make([]float64, m),
	}
	var sumSibson, sumLaplace float64
	polygon := make([]Point, 0, len(cavity)+2)
	for k := range m {
		u := cycle[(k+m-1)%m].from
		v := cycle[k].from
		w := cycle[k].to
		prev := delaunay.Circumcenter(q, t.Points[u], t.Points[v])
		next := delaunay.Circumcenter(q, t.Points[v], t.Points[w])

		// Walk the cavity triangles around v from edge vw to edge uv.
		polygon = append(polygon[:0], next)
		tri := cycle[k].triangle
		closed := false
		for range len(cavity) {
			polygon = append(polygon, t.Circumcenters[tri])
			j := slices.Index(t.Triangles[tri][:], v)
			if t.Triangles[tri][(j+2)%3] == u {
				closed = true
				break
			}
			tri = t.Neighbors[tri][(j+1)%3]
			if tri < 0 {
				return nil, false
			}
		}
		if !closed {
			return nil, false
		}
		polygon = append(polygon, prev)

		nc.sites[k] = v
		nc.sibson[k] = polygonArea(polygon)
		nc.laplace[k] = math.Hypot(prev.X-next.X, prev.Y-next.Y) / math.Hypot(q.X-t.Points[v].X, q.Y-t.Points[v].Y)
		sumSibson += nc.sibson[k]
		sumLaplace += nc.laplace[k]
	}
	if !(sumSibson > 0) || !(sumLaplace > 0) {
		return nil, false
	}
	for k := range m {
		nc.sibson[k] /= sumSibson
		nc.laplace[k] /= sumLaplace
	}
	return nc, true
}

func polygonArea(polygon []Point) float64 {
	var area float64
	for k, p := range polygon {
		q := polygon[(k+1)%len(polygon)]
		area += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(area) / 2
}

// A site is a data site in a kdtree.
type site struct {
	Point
	index int
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	switch d {
	case 0:
		return s.X - q.X
	case 1:
		return s.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (s site) Dims() int { return 2 }

// Distance returns the squared distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx, dy := s.X-q.X, s.Y-q.Y
	return dx*dx + dy*dy
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

func (s sites) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(sitePlane{sites: s, Dim: d}, kdtree.MedianOfRandoms(sitePlane{sites: s, Dim: d}, 100))
}

type sitePlane struct {
	sites
	kdtree.Dim
}

func (p sitePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.sites[i].X < p.sites[j].X
	case 1:
		return p.sites[i].Y < p.sites[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p sitePlane) Slice(start, end int) kdtree.SortSlicer {
	return sitePlane{sites: p.sites[start:end], Dim: p.Dim}
}

func (p sitePlane) Swap(i, j int) {
	p.sites[i], p.sites[j] = p.sites[j], p.sites[i]
}

func newSiteTree(points []Point) *kdtree.Tree {
	s := make(sites, len(points))
	for i, p := range points {
		s[i] = site{Point: p, index: i}
	}
	return kdtree.New(s, false)
}
