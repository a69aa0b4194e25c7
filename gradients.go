package topoplot

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/twpayne/go-topoplot/delaunay"
)

// estimateSiteGradients estimates the gradient of the sampled surface at each
// data site.
func estimateSiteGradients(t *delaunay.Triangulation, values []float64, method DerivativeMethod, cubic bool, alpha float64) [][2]float64 {
	n := len(t.Points)
	gradients := make([][2]float64, n)
	terms := 5
	if cubic {
		terms = 9
	}
	for i := range n {
		gradients[i] = directGradient(t, values, i, terms)
	}
	if method != DerivativeIterative {
		return gradients
	}

	refined := make([][2]float64, n)
	for i := range n {
		refined[i] = refineGradient(t, values, gradients, i, alpha)
	}
	return refined
}

// directGradient fits a weighted least squares Taylor polynomial with up to
// terms coefficients to the values around site i. It gathers rings of
// neighbours until there are enough equations, and reduces the polynomial
// degree if the triangulation is too small.
func directGradient(t *delaunay.Triangulation, values []float64, i, terms int) [2]float64 {
	neighbours := siteNeighbourhood(t, i, terms, 3)
	for ; terms >= 2; terms = lowerTerms(terms) {
		if len(neighbours) < terms {
			continue
		}
		pi := t.Points[i]
		a := mat.NewDense(len(neighbours), terms, nil)
		b := mat.NewVecDense(len(neighbours), nil)
		for row, j := range neighbours {
			dx, dy := t.Points[j].X-pi.X, t.Points[j].Y-pi.Y
			w := 1 / math.Hypot(dx, dy)
			monomials := taylorTerms(dx, dy)
			for col, v := range monomials[:terms] {
				a.Set(row, col, w*v)
			}
			b.SetVec(row, w*(values[j]-values[i]))
		}
		var qr mat.QR
		qr.Factorize(a)
		var x mat.VecDense
		if err := qr.SolveVecTo(&x, false, b); err != nil {
			continue
		}
		return [2]float64{x.AtVec(0), x.AtVec(1)}
	}
	return [2]float64{}
}

// refineGradient refits the gradient and Hessian at site i to the values and
// current gradients of its neighbours, weighting value residuals by alpha and
// gradient residuals by 1-alpha.
func refineGradient(t *delaunay.Triangulation, values []float64, gradients [][2]float64, i int, alpha float64) [2]float64 {
	neighbours := t.Adjacent(i)
	pi := t.Points[i]
	va, vg := math.Sqrt(alpha), math.Sqrt(1-alpha)
	a := mat.NewDense(3*len(neighbours), 5, nil)
	b := mat.NewVecDense(3*len(neighbours), nil)
	for k, j := range neighbours {
		dx, dy := t.Points[j].X-pi.X, t.Points[j].Y-pi.Y
		w := 1 / math.Hypot(dx, dy)
		a.SetRow(3*k, []float64{va * w * dx, va * w * dy, va * w * dx * dx / 2, va * w * dx * dy, va * w * dy * dy / 2})
		b.SetVec(3*k, va*w*(values[j]-values[i]))
		a.SetRow(3*k+1, []float64{vg * w, 0, vg * w * dx, vg * w * dy, 0})
		b.SetVec(3*k+1, vg*w*gradients[j][0])
		a.SetRow(3*k+2, []float64{0, vg * w, 0, vg * w * dx, vg * w * dy})
		b.SetVec(3*k+2, vg*w*gradients[j][1])
	}
	var qr mat.QR
	qr.Factorize(a)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return gradients[i]
	}
	return [2]float64{x.AtVec(0), x.AtVec(1)}
}

// taylorTerms returns the monomials of the bivariate Taylor expansion up to
// cubic order, scaled by their factorial coefficients.
func taylorTerms(dx, dy float64) [9]float64 {
	return [9]float64{
		dx, dy,
		dx * dx / 2, dx * dy, dy * dy / 2,
		dx * dx * dx / 6, dx * dx * dy / 2, dx * dy * dy / 2, dy * dy * dy / 6,
	}
}

func lowerTerms(terms int) int {
	switch terms {
	case 9:
		return 5
	case 5:
		return 2
	default:
		return 0
	}
}

// siteNeighbourhood returns the sites within rings of site i in the
// triangulation, stopping early once there are at least count.
func siteNeighbourhood(t *delaunay.Triangulation, i, count, rings int) []int {
	seen := map[int]struct{}{i: {}}
	var result []int
	frontier := []int{i}
	for range rings {
		var next []int
		for _, v := range frontier {
			for _, w := range t.Adjacent(v) {
				if _, ok := seen[w]; ok {
					continue
				}
				seen[w] = struct{}{}
				result = append(result, w)
				next = append(next, w)
			}
		}
		if len(result) >= count || len(next) == 0 {
			break
		}
		frontier = next
	}
	return result
}
