package topoplot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxDenseSamples is the maximum number of samples for which radial basis
// function systems are solved densely.
const MaxDenseSamples = 4096

// A ScatteredMethod is a scattered data interpolation method: inverse
// distance weighting or a radial basis function.
type ScatteredMethod interface {
	Builder
	scatteredMethod()
}

// A Shepard interpolates with inverse distance weighting.
type Shepard struct {
	// Power is the exponent of the inverse distance weights. Zero means 2.
	Power float64
}

// A ThinPlate interpolates with thin-plate spline radial basis functions
// augmented with a linear polynomial.
type ThinPlate struct {
	// Smooth is added to the diagonal of the interpolation matrix. Zero
	// interpolates exactly.
	Smooth float64
}

// A Multiquadratic interpolates with multiquadric radial basis functions
// sqrt(1+(εr)²) augmented with a linear polynomial.
type Multiquadratic struct {
	// Epsilon is the shape parameter. Zero means 1.
	Epsilon float64
	Smooth  float64
}

// An InverseMultiquadratic interpolates with inverse multiquadric radial
// basis functions 1/sqrt(1+(εr)²).
type InverseMultiquadratic struct {
	Epsilon float64
	Smooth  float64
}

// A Gaussian interpolates with Gaussian radial basis functions exp(-(εr)²).
type Gaussian struct {
	Epsilon float64
	Smooth  float64
}

// A Scattered is an Interpolator that uses a ScatteredMethod.
type Scattered struct {
	// Method is the interpolation method. nil means ThinPlate.
	Method ScatteredMethod
	// Sequential disables parallel grid evaluation.
	Sequential bool
}

func (s *Scattered) Interpolate(ctx context.Context, xs, ys []float64, positions []Point, values []float64, mask Geometry) (*Grid, error) {
	return buildAndEvaluate(ctx, s, xs, ys, positions, values, mask, !s.Sequential)
}

func (s *Scattered) Build(positions []Point, values []float64) (Interpolant, error) {
	method := s.Method
	if method == nil {
		method = ThinPlate{}
	}
	return method.Build(positions, values)
}

func (s Shepard) Build(positions []Point, values []float64) (Interpolant, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("shepard: %w", ErrInsufficientSamples)
	}
	power := s.Power
	if power == 0 {
		power = 2
	}
	return InterpolantFunc(func(x, y float64) float64 {
		var sumWeights, sumWeightedValues float64
		for i, p := range positions {
			d := math.Hypot(x-p.X, y-p.Y)
			if d == 0 {
				return values[i]
			}
			w := math.Pow(d, -power)
			sumWeights += w
			sumWeightedValues += w * values[i]
		}
		return sumWeightedValues / sumWeights
	}), nil
}

func (m ThinPlate) Build(positions []Point, values []float64) (Interpolant, error) {
	return buildRBF("thin-plate", positions, values, m.Smooth, true, func(r float64) float64 {
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	})
}

func (m Multiquadratic) Build(positions []Point, values []float64) (Interpolant, error) {
	epsilon := defaultEpsilon(m.Epsilon)
	return buildRBF("multiquadratic", positions, values, m.Smooth, true, func(r float64) float64 {
		return math.Sqrt(1 + epsilon*epsilon*r*r)
	})
}

func (m InverseMultiquadratic) Build(positions []Point, values []float64) (Interpolant, error) {
	epsilon := defaultEpsilon(m.Epsilon)
	return buildRBF("inverse multiquadratic", positions, values, m.Smooth, false, func(r float64) float64 {
		return 1 / math.Sqrt(1+epsilon*epsilon*r*r)
	})
}

func (m Gaussian) Build(positions []Point, values []float64) (Interpolant, error) {
	epsilon := defaultEpsilon(m.Epsilon)
	return buildRBF("gaussian", positions, values, m.Smooth, false, func(r float64) float64 {
		return math.Exp(-epsilon * epsilon * r * r)
	})
}

func (Shepard) scatteredMethod()               {}
func (ThinPlate) scatteredMethod()             {}
func (Multiquadratic) scatteredMethod()        {}
func (InverseMultiquadratic) scatteredMethod() {}
func (Gaussian) scatteredMethod()              {}

func defaultEpsilon(epsilon float64) float64 {
	if epsilon == 0 {
		return 1
	}
	return epsilon
}

type rbfInterpolant struct {
	positions []Point
	weights   []float64
	// poly contains the coefficients of the polynomial c0 + c1*x + c2*y, or
	// is nil.
	poly []float64
	phi  func(float64) float64
}

// buildRBF solves for the weights of the radial basis function phi, optionally
// augmented with a linear polynomial, that interpolate values at positions.
func buildRBF(name string, positions []Point, values []float64, smooth float64, linear bool, phi func(float64) float64) (Interpolant, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	n := len(positions)
	minSamples := 1
	if linear {
		minSamples = 3
	}
	switch {
	case n < minSamples:
		return nil, fmt.Errorf("%s: %w: got %d, need at least %d", name, ErrInsufficientSamples, n, minSamples)
	case n > MaxDenseSamples:
		return nil, fmt.Errorf("%s: %w: got %d, maximum %d", name, ErrTooManySamples, n, MaxDenseSamples)
	}

	size := n
	if linear {
		size += 3
	}
	a := mat.NewDense(size, size, nil)
	b := mat.NewVecDense(size, nil)
	for i, pi := range positions {
		for j := i; j < n; j++ {
			v := phi(math.Hypot(pi.X-positions[j].X, pi.Y-positions[j].Y))
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
		a.Set(i, i, a.At(i, i)+smooth)
		b.SetVec(i, values[i])
		if linear {
			for k, v := range []float64{1, pi.X, pi.Y} {
				a.Set(i, n+k, v)
				a.Set(n+k, i, v)
			}
		}
	}

	var lu mat.LU
	lu.Factorize(a)
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		var condition mat.Condition
		if !errors.As(err, &condition) || math.IsInf(float64(condition), 0) {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrDegenerateInput, err)
		}
		Logf("topoplot: %s: ill-conditioned system (condition number %g)", name, float64(condition))
	}

	interpolant := &rbfInterpolant{
		positions: positions,
		weights:   make([]float64, n),
		phi:       phi,
	}
	for i := range n {
		interpolant.weights[i] = x.AtVec(i)
	}
	if linear {
		interpolant.poly = []float64{x.AtVec(n), x.AtVec(n + 1), x.AtVec(n + 2)}
	}
	return interpolant, nil
}

func (i *rbfInterpolant) At(x, y float64) float64 {
	var sum float64
	for j, p := range i.positions {
		sum += i.weights[j] * i.phi(math.Hypot(x-p.X, y-p.Y))
	}
	if i.poly != nil {
		sum += i.poly[0] + i.poly[1]*x + i.poly[2]*y
	}
	return sum
}
