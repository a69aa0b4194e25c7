package topoplot

import (
	"context"
	"math"

	"github.com/twpayne/go-topoplot/delaunay"
)

// A CloughTocher is a C¹ piecewise cubic interpolator over the Delaunay
// triangulation of the sample positions. Gradients at the vertexes are
// estimated by minimizing the curvature of the surface over all edges.
type CloughTocher struct {
	// FillValue is the value outside the convex hull and in triangles whose
	// vertex gradients could not be estimated. nil means NaN.
	FillValue *float64
	// Tol is the convergence tolerance of the gradient estimation. Zero means
	// 1e-6.
	Tol float64
	// MaxIter is the maximum number of gradient estimation sweeps. Zero means
	// 400.
	MaxIter int
	// Rescale, if true, translates the positions to zero mean and scales each
	// axis to unit extent before triangulating.
	Rescale      bool
	Triangulator Triangulator
}

type cloughTocherInterpolant struct {
	triangulation *delaunay.Triangulation
	values        []float64
	gradients     [][2]float64
	// edgeParams[t][k] parameterizes the C¹ condition across the edge of
	// triangle t opposite vertex k.
	edgeParams [][3]float64
	bad        []bool
	fill       float64
	offset     Point
	scale      Point
}

func (ct *CloughTocher) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	return buildAndEvaluate(ctx, ct, xs, ys, positions, values, mask, true)
}

func (ct *CloughTocher) WithTriangulator(triangulator Triangulator) Interpolator {
	clone := *ct
	clone.Triangulator = triangulator
	return &clone
}

func (ct *CloughTocher) Build(positions []Point, values []float64) (Interpolant, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}

	interpolant := &cloughTocherInterpolant{
		values: values,
		fill:   fillValue(ct.FillValue),
		scale:  Point{X: 1, Y: 1},
	}
	if ct.Rescale {
		positions = interpolant.rescale(positions)
	}

	t, err := triangulate(ct.Triangulator, positions)
	if err != nil {
		return nil, err
	}
	interpolant.triangulation = t

	tol := ct.Tol
	if tol == 0 {
		tol = 1e-6
	}
	maxIter := ct.MaxIter
	if maxIter == 0 {
		maxIter = 400
	}
	gradients, badVertexes, err := estimateGradients(t, values, tol, maxIter)
	if err != nil {
		return nil, err
	}
	interpolant.gradients = gradients

	interpolant.edgeParams = make([][3]float64, len(t.Triangles))
	interpolant.bad = make([]bool, len(t.Triangles))
	badTriangles := 0
	for i, tri := range t.Triangles {
		interpolant.edgeParams[i] = edgeParams(t, i)
		if badVertexes[tri[0]] || badVertexes[tri[1]] || badVertexes[tri[2]] {
			interpolant.bad[i] = true
			badTriangles++
		}
	}
	if badTriangles > 0 {
		Logf("topoplot: clough-tocher: %d triangles use the fill value due to singular vertex systems", badTriangles)
	}

	return interpolant, nil
}

// rescale sets i's offset and scale from positions and returns the
// transformed positions.
func (i *cloughTocherInterpolant) rescale(positions []Point) []Point {
	var mean Point
	for _, p := range positions {
		mean.X += p.X
		mean.Y += p.Y
	}
	mean.X /= float64(len(positions))
	mean.Y /= float64(len(positions))
	bounds := boundingBox(positions)
	i.offset = mean
	if bounds.Width > 0 {
		i.scale.X = bounds.Width
	}
	if bounds.Height > 0 {
		i.scale.Y = bounds.Height
	}
	rescaled := make([]Point, len(positions))
	for j, p := range positions {
		rescaled[j] = i.transform(p.X, p.Y)
	}
	return rescaled
}

func (i *cloughTocherInterpolant) transform(x, y float64) Point {
	return Point{
		X: (x - i.offset.X) / i.scale.X,
		Y: (y - i.offset.Y) / i.scale.Y,
	}
}

func (i *cloughTocherInterpolant) At(x, y float64) float64 {
	p := i.transform(x, y)
	j, b, ok := i.triangulation.Locate(p, -1)
	if !ok || i.bad[j] {
		return i.fill
	}
	return i.evaluate(j, b)
}

// evaluate evaluates the Clough-Tocher Bézier patch of triangle j at
// barycentric coordinates b.
func (i *cloughTocherInterpolant) evaluate(j int, b [3]float64) float64 {
	t := i.triangulation
	tri := t.Triangles[j]
	x1, x2, x3 := t.Points[tri[0]], t.Points[tri[1]], t.Points[tri[2]]
	f1, f2, f3 := i.values[tri[0]], i.values[tri[1]], i.values[tri[2]]
	d1, d2, d3 := i.gradients[tri[0]], i.gradients[tri[1]], i.gradients[tri[2]]

	e12x, e12y := x2.X-x1.X, x2.Y-x1.Y
	e23x, e23y := x3.X-x2.X, x3.Y-x2.Y
	e31x, e31y := x1.X-x3.X, x1.Y-x3.Y

	df12 := d1[0]*e12x + d1[1]*e12y
	df21 := -(d2[0]*e12x + d2[1]*e12y)
	df23 := d2[0]*e23x + d2[1]*e23y
	df32 := -(d3[0]*e23x + d3[1]*e23y)
	df31 := d3[0]*e31x + d3[1]*e31y
	df13 := -(d1[0]*e31x + d1[1]*e31y)

	c3000 := f1
	c2100 := (df12 + 3*c3000) / 3
	c2010 := (df13 + 3*c3000) / 3
	c0300 := f2
	c1200 := (df21 + 3*c0300) / 3
	c0210 := (df23 + 3*c0300) / 3
	c0030 := f3
	c1020 := (df31 + 3*c0030) / 3
	c0120 := (df32 + 3*c0030) / 3

	c2001 := (c2100 + c2010 + c3000) / 3
	c0201 := (c1200 + c0300 + c0210) / 3
	c0021 := (c1020 + c0120 + c0030) / 3

	g := i.edgeParams[j]
	c0111 := (g[0]*(-c0300+3*c0210-3*c0120+c0030) + (-c0300 + 2*c0210 - c0120 + c0021 + c0201)) / 2
	c1011 := (g[1]*(-c0030+3*c1020-3*c2010+c3000) + (-c0030 + 2*c1020 - c2010 + c2001 + c0021)) / 2
	c1101 := (g[2]*(-c3000+3*c2100-3*c1200+c0300) + (-c3000 + 2*c2100 - c1200 + c2001 + c0201)) / 2

	c1002 := (c1101 + c1011 + c2001) / 3
	c0102 := (c1101 + c0111 + c0201) / 3
	c0012 := (c1011 + c0111 + c0021) / 3
	c0003 := (c1002 + c0102 + c0012) / 3

	// Sub-triangle coordinates relative to the centroid.
	m := min(b[0], b[1], b[2])
	b1, b2, b3, b4 := b[0]-m, b[1]-m, b[2]-m, 3*m

	return 0 +
		b1*b1*b1*c3000 + 3*b1*b1*b2*c2100 + 3*b1*b1*b3*c2010 + 3*b1*b1*b4*c2001 +
		3*b1*b2*b2*c1200 + 6*b1*b2*b4*c1101 + 3*b1*b3*b3*c1020 + 6*b1*b3*b4*c1011 +
		3*b1*b4*b4*c1002 + b2*b2*b2*c0300 + 3*b2*b2*b3*c0210 + 3*b2*b2*b4*c0201 +
		3*b2*b3*b3*c0120 + 6*b2*b3*b4*c0111 + 3*b2*b4*b4*c0102 + b3*b3*b3*c0030 +
		3*b3*b3*b4*c0021 + 3*b3*b4*b4*c0012 + b4*b4*b4*c0003
}

// edgeParams returns the C¹ continuity parameters for each edge of triangle
// j, computed from the barycentric coordinates of the centroid of the
// neighboring triangle. Hull edges use -1/2.
func edgeParams(t *delaunay.Triangulation, j int) [3]float64 {
	var g [3]float64
	for k, neighbor := range t.Neighbors[j] {
		if neighbor < 0 {
			g[k] = -0.5
			continue
		}
		ntri := t.Triangles[neighbor]
		a, b, c := t.Points[ntri[0]], t.Points[ntri[1]], t.Points[ntri[2]]
		centroid := Point{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3}
		cb := t.Barycentric(j, centroid)
		switch k {
		case 0:
			g[k] = (2*cb[2] + cb[1] - 1) / (2 - 3*cb[2] - 3*cb[1])
		case 1:
			g[k] = (2*cb[0] + cb[2] - 1) / (2 - 3*cb[0] - 3*cb[2])
		case 2:
			g[k] = (2*cb[1] + cb[0] - 1) / (2 - 3*cb[1] - 3*cb[0])
		}
	}
	return g
}

// estimateGradients estimates the gradient at each vertex by Gauss-Seidel
// sweeps minimizing the curvature along every edge. Vertexes whose local 2×2
// systems are singular keep a zero gradient and are reported as bad.
func estimateGradients(t *delaunay.Triangulation, values []float64, tol float64, maxIter int) ([][2]float64, []bool, error) {
	n := len(t.Points)
	gradients := make([][2]float64, n)
	bad := make([]bool, n)
	residual := math.Inf(1)
	for range maxIter {
		residual = 0
		for i := range n {
			if bad[i] {
				continue
			}
			pi := t.Points[i]
			var q00, q01, q11, s0, s1 float64
			for _, j := range t.Adjacent(i) {
				ex, ey := t.Points[j].X-pi.X, t.Points[j].Y-pi.Y
				l := math.Hypot(ex, ey)
				l3 := l * l * l
				r := (6*(values[j]-values[i]) - 2*(ex*gradients[j][0]+ey*gradients[j][1])) / l3
				q00 += 4 * ex * ex / l3
				q01 += 4 * ex * ey / l3
				q11 += 4 * ey * ey / l3
				s0 += r * ex
				s1 += r * ey
			}
			det := q00*q11 - q01*q01
			if !(math.Abs(det) > 1e-12*max(q00*q11, math.SmallestNonzeroFloat64)) {
				bad[i] = true
				gradients[i] = [2]float64{}
				continue
			}
			gx := (q11*s0 - q01*s1) / det
			gy := (q00*s1 - q01*s0) / det
			change := max(math.Abs(gx-gradients[i][0]), math.Abs(gy-gradients[i][1])) / max(1, math.Abs(gx), math.Abs(gy))
			residual = max(residual, change)
			gradients[i] = [2]float64{gx, gy}
		}
		if residual < tol {
			return gradients, bad, nil
		}
	}
	return nil, nil, &ConvergenceError{
		Iterations: maxIter,
		Residual:   residual,
	}
}
