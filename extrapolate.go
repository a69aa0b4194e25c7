package topoplot

import (
	"fmt"
	"slices"
)

// An Extrapolator synthesizes extra samples around the sample positions to
// stabilize interpolation near the edges.
type Extrapolator interface {
	Extrapolate(positions []Point, values []float64) (*ExtrapolationResult, error)
}

// An ExtrapolationResult holds synthesized samples and the geometries they
// were derived from.
type ExtrapolationResult struct {
	ExtraPositions []Point
	ExtraValues    []float64
	// Inner is the tight geometry enclosing the original positions.
	Inner Geometry
	// Outer is the enlarged geometry on whose boundary the extra samples lie.
	Outer Geometry
}

// Augment returns positions and values with the extra samples appended.
func (r *ExtrapolationResult) Augment(positions []Point, values []float64) ([]Point, []float64) {
	return slices.Concat(positions, r.ExtraPositions), slices.Concat(values, r.ExtraValues)
}

// A GeomExtrapolation places extra samples at equal arc length along the
// boundary of an enlarged enclosing geometry and estimates their values with
// a scattered data method.
type GeomExtrapolation struct {
	// Method estimates the extra values. nil means Shepard{Power: 2}.
	Method ScatteredMethod
	// Geometry is the kind of enclosing geometry. Zero means KindRect.
	Geometry GeometryKind
	// Enlarge is the scale of the outer geometry relative to the inner. Zero
	// means 3.
	Enlarge float64
	// Points is the number of extra samples. Zero means three times the
	// number of positions, but at least 16.
	Points int
}

// A NullExtrapolation adds no extra samples. Its inner and outer geometries
// are both the tight enclosing geometry.
type NullExtrapolation struct {
	// Geometry is the kind of enclosing geometry. Zero means KindRect.
	Geometry GeometryKind
}

func (e *GeomExtrapolation) Extrapolate(positions []Point, values []float64) (*ExtrapolationResult, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	if len(positions) < 3 {
		return nil, fmt.Errorf("extrapolate: %w: got %d, need at least 3", ErrInsufficientSamples, len(positions))
	}
	method := e.Method
	if method == nil {
		method = Shepard{Power: 2}
	}
	kind := e.Geometry
	if kind == 0 {
		kind = KindRect
	}
	enlarge := e.Enlarge
	if enlarge == 0 {
		enlarge = 3
	}
	points := e.Points
	switch {
	case points < 0:
		return nil, fmt.Errorf("extrapolate: %w: points %d", ErrDegenerateInput, points)
	case points == 0:
		points = max(3*len(positions), 16)
	}

	inner, err := EnclosingGeometry(kind, positions, 1)
	if err != nil {
		return nil, err
	}
	outer, err := EnclosingGeometry(kind, positions, enlarge)
	if err != nil {
		return nil, err
	}

	interpolant, err := method.Build(positions, values)
	if err != nil {
		return nil, err
	}
	extraPositions := outer.Boundary(points)
	extraValues := make([]float64, len(extraPositions))
	for i, p := range extraPositions {
		extraValues[i] = interpolant.At(p.X, p.Y)
	}

	return &ExtrapolationResult{
		ExtraPositions: extraPositions,
		ExtraValues:    extraValues,
		Inner:          inner,
		Outer:          outer,
	}, nil
}

func (e NullExtrapolation) Extrapolate(positions []Point, values []float64) (*ExtrapolationResult, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	kind := e.Geometry
	if kind == 0 {
		kind = KindRect
	}
	geometry, err := EnclosingGeometry(kind, positions, 1)
	if err != nil {
		return nil, err
	}
	return &ExtrapolationResult{
		Inner: geometry,
		Outer: geometry,
	}, nil
}

// PadBoundary returns positions and values augmented with Shepard-weighted
// samples on the boundary of the enclosing geometry padded by the fraction
// padding.
func PadBoundary(kind GeometryKind, positions []Point, values []float64, padding float64) ([]Point, []float64, error) {
	extrapolation := &GeomExtrapolation{
		Method:   Shepard{Power: 2},
		Geometry: kind,
		Enlarge:  1 + padding,
	}
	result, err := extrapolation.Extrapolate(positions, values)
	if err != nil {
		return nil, nil, err
	}
	paddedPositions, paddedValues := result.Augment(positions, values)
	return paddedPositions, paddedValues, nil
}
