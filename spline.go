package topoplot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// A SplineSurface fits a smoothing tensor-product B-spline surface to the
// samples. Queries outside the bounding box of the positions are clamped onto
// it.
type SplineSurface struct {
	// KX and KY are the degrees in x and y. Zero means 2.
	KX int
	KY int
	// Smoothing weights the second-difference roughness penalty relative to
	// the fit. Zero fits as closely as the knots allow.
	Smoothing float64
	// Sequential disables parallel grid evaluation.
	Sequential bool
}

// NewSplineSurface returns a new SplineSurface with quadratic degrees and a
// smoothing of 0.5.
func NewSplineSurface() *SplineSurface {
	return &SplineSurface{
		KX:        2,
		KY:        2,
		Smoothing: 0.5,
	}
}

// splineAxis is a clamped uniform knot vector along one axis.
type splineAxis struct {
	degree int
	knots  []float64
	lo     float64
	hi     float64
}

type splineInterpolant struct {
	x      splineAxis
	y      splineAxis
	coeffs []float64
}

func (s *SplineSurface) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	return buildAndEvaluate(ctx, s, xs, ys, positions, values, mask, !s.Sequential)
}

func (s *SplineSurface) Build(positions []Point, values []float64) (Interpolant, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	kx, ky := s.KX, s.KY
	if kx == 0 {
		kx = 2
	}
	if ky == 0 {
		ky = 2
	}
	if kx < 1 || kx > 5 || ky < 1 || ky > 5 {
		return nil, fmt.Errorf("spline: degree (%d, %d): %w", kx, ky, errors.ErrUnsupported)
	}
	smoothing := max(s.Smoothing, 0)

	n := len(positions)
	if minSamples := (kx + 1) * (ky + 1); n <= minSamples {
		return nil, fmt.Errorf("spline: %w: got %d, need more than %d", ErrInsufficientSamples, n, minSamples)
	}
	bounds := boundingBox(positions)
	if bounds.Width == 0 || bounds.Height == 0 {
		return nil, fmt.Errorf("spline: %w: zero width or height", ErrDegenerateInput)
	}

	interior := max(0, int(math.Sqrt(float64(n)))/2-1)
	interpolant := &splineInterpolant{
		x: newSplineAxis(kx, interior, bounds.Origin.X, bounds.Origin.X+bounds.Width),
		y: newSplineAxis(ky, interior, bounds.Origin.Y, bounds.Origin.Y+bounds.Height),
	}
	nx, ny := interpolant.x.size(), interpolant.y.size()
	size := nx * ny

	// Normal equations BᵀB c = Bᵀf accumulated one sample at a time.
	btb := mat.NewSymDense(size, nil)
	btf := mat.NewVecDense(size, nil)
	bx := make([]float64, kx+1)
	by := make([]float64, ky+1)
	for i, p := range positions {
		ix := interpolant.x.basis(p.X, bx)
		iy := interpolant.y.basis(p.Y, by)
		for a := range bx {
			for b := range by {
				row := (ix+a)*ny + iy + b
				w := bx[a] * by[b]
				btf.SetVec(row, btf.AtVec(row)+w*values[i])
				for c := range bx {
					for d := range by {
						col := (ix+c)*ny + iy + d
						if col < row {
							continue
						}
						btb.SetSym(row, col, btb.At(row, col)+w*bx[c]*by[d])
					}
				}
			}
		}
	}

	penalty := secondDifferencePenalty(nx, ny)
	traceBTB, tracePenalty := mat.Trace(btb), mat.Trace(penalty)
	lambda := 0.0
	if tracePenalty > 0 {
		lambda = smoothing * traceBTB / tracePenalty
	}
	ridge := 1e-10 * traceBTB / float64(size)
	system := mat.NewSymDense(size, nil)
	for r := range size {
		for c := r; c < size; c++ {
			v := btb.At(r, c) + lambda*penalty.At(r, c)
			if r == c {
				v += ridge
			}
			system.SetSym(r, c, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(system); !ok {
		return nil, fmt.Errorf("spline: %w: normal equations are not positive definite", ErrDegenerateInput)
	}
	var coeffs mat.VecDense
	if err := chol.SolveVecTo(&coeffs, btf); err != nil {
		var condition mat.Condition
		if !errors.As(err, &condition) {
			return nil, fmt.Errorf("spline: %w", err)
		}
		Logf("topoplot: spline: ill-conditioned system (condition number %g)", float64(condition))
	}
	interpolant.coeffs = make([]float64, size)
	for i := range size {
		interpolant.coeffs[i] = coeffs.AtVec(i)
	}
	return interpolant, nil
}

func (i *splineInterpolant) At(x, y float64) float64 {
	bx := make([]float64, i.x.degree+1)
	by := make([]float64, i.y.degree+1)
	ix := i.x.basis(x, bx)
	iy := i.y.basis(y, by)
	ny := i.y.size()
	var sum float64
	for a, wx := range bx {
		for b, wy := range by {
			sum += wx * wy * i.coeffs[(ix+a)*ny+iy+b]
		}
	}
	return sum
}

func newSplineAxis(degree, interior int, lo, hi float64) splineAxis {
	knots := make([]float64, 0, 2*(degree+1)+interior)
	for range degree + 1 {
		knots = append(knots, lo)
	}
	for i := 1; i <= interior; i++ {
		knots = append(knots, lo+(hi-lo)*float64(i)/float64(interior+1))
	}
	for range degree + 1 {
		knots = append(knots, hi)
	}
	return splineAxis{
		degree: degree,
		knots:  knots,
		lo:     lo,
		hi:     hi,
	}
}

// size returns the number of basis functions.
func (a *splineAxis) size() int {
	return len(a.knots) - a.degree - 1
}

// basis sets n to the values of the degree+1 basis functions that are
// non-zero at u, clamped to the axis, and returns the index of the first.
func (a *splineAxis) basis(u float64, n []float64) int {
	u = min(max(u, a.lo), a.hi)
	p := a.degree
	span := a.span(u)
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	n[0] = 1
	for j := 1; j <= p; j++ {
		left[j] = u - a.knots[span+1-j]
		right[j] = a.knots[span+j] - u
		saved := 0.0
		for r := range j {
			temp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		n[j] = saved
	}
	return span - p
}

// span returns the index of the knot span containing u.
func (a *splineAxis) span(u float64) int {
	last := a.size() - 1
	if u >= a.knots[last+1] {
		return last
	}
	lo, hi := a.degree, last+1
	mid := (lo + hi) / 2
	for u < a.knots[mid] || u >= a.knots[mid+1] {
		if u < a.knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// secondDifferencePenalty returns the roughness penalty DxᵀDx ⊗ I + I ⊗ DyᵀDy
// over an nx × ny coefficient grid.
func secondDifferencePenalty(nx, ny int) *mat.SymDense {
	penalty := mat.NewSymDense(nx*ny, nil)
	add := func(i, j, k int) {
		idx := [3]int{i, j, k}
		weights := [3]float64{1, -2, 1}
		for a := range 3 {
			for b := range 3 {
				if idx[b] < idx[a] {
					continue
				}
				penalty.SetSym(idx[a], idx[b], penalty.At(idx[a], idx[b])+weights[a]*weights[b])
			}
		}
	}
	for ix := range nx {
		for iy := 0; iy+2 < ny; iy++ {
			add(ix*ny+iy, ix*ny+iy+1, ix*ny+iy+2)
		}
	}
	for iy := range ny {
		for ix := 0; ix+2 < nx; ix++ {
			add(ix*ny+iy, (ix+1)*ny+iy, (ix+2)*ny+iy)
		}
	}
	return penalty
}
