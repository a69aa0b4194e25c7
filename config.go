package topoplot

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/gcfg.v1"
)

// ExampleConfig is an example configuration file.
const ExampleConfig = `[Topoplot]

# Interpolation is one of delaunay, cloughtocher, scattered, spline,
# naturalneighbour, null, or the name of a registered interpolator.
Interpolation = cloughtocher

# BoundingGeometry is circle or rect. Enlarge scales the bounding geometry
# relative to the tightest enclosing geometry.
BoundingGeometry = circle
Enlarge = 1.2

Width = 512
Height = 512

# Mask is bounding, inner, or outer.
# Mask = bounding
# OutsideValue = NaN

[Extrapolation]

# Method is geom or none.
Method = geom
Geometry = rect
Enlarge = 3
# Points = 0
# Power = 2

[CloughTocher]
# Tol = 1e-6
# MaxIter = 400
# Rescale = false

[Spline]
# KX = 2
# KY = 2
# Smoothing = 0.5

[Scattered]
# Method is shepard, thinplate, multiquadratic, inversemultiquadratic, or
# gaussian.
# Method = thinplate
# Power = 2
# Epsilon = 1
# Smooth = 0

[NaturalNeighbour]
# Method is sibson, laplace, farin, triangle, or nearest.
# Method = sibson
# Order = 1
# Derivatives = direct
# CubicTerms = true
# Alpha = 0.1
# Project = true

[Render]
# Colormap is moreland, blackbody, or kindlmann.
# Colormap = moreland
# Contours = 0
`

// A Config is a gridding configuration, read from an INI-style file.
type Config struct {
	Topoplot         TopoplotConfig
	Extrapolation    ExtrapolationConfig
	CloughTocher     CloughTocherConfig
	Spline           SplineConfig
	Scattered        ScatteredConfig
	NaturalNeighbour NaturalNeighbourConfig
	Render           RenderConfig
}

type TopoplotConfig struct {
	Interpolation    string
	BoundingGeometry string
	Enlarge          float64
	Width            int
	Height           int
	Mask             string
	OutsideValue     float64
}

type ExtrapolationConfig struct {
	Method   string
	Geometry string
	Enlarge  float64
	Points   int
	Power    float64
}

type CloughTocherConfig struct {
	Tol     float64
	MaxIter int
	Rescale bool
}

type SplineConfig struct {
	KX        int
	KY        int
	Smoothing float64
}

type ScatteredConfig struct {
	Method  string
	Power   float64
	Epsilon float64
	Smooth  float64
}

type NaturalNeighbourConfig struct {
	Method      string
	Order       int
	Derivatives string
	CubicTerms  bool
	Alpha       float64
	Project     bool
}

// A RenderConfig contains presentation settings that are passed through to
// the renderer.
type RenderConfig struct {
	Colormap string
	ColorMin float64
	ColorMax float64
	Contours int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Topoplot: TopoplotConfig{
			Interpolation:    "cloughtocher",
			BoundingGeometry: "circle",
			Enlarge:          1.2,
			Width:            512,
			Height:           512,
			Mask:             "bounding",
			OutsideValue:     math.NaN(),
		},
		Extrapolation: ExtrapolationConfig{
			Method:   "geom",
			Geometry: "rect",
			Enlarge:  3,
			Power:    2,
		},
		CloughTocher: CloughTocherConfig{
			Tol:     1e-6,
			MaxIter: 400,
		},
		Spline: SplineConfig{
			KX:        2,
			KY:        2,
			Smoothing: 0.5,
		},
		Scattered: ScatteredConfig{
			Method:  "thinplate",
			Power:   2,
			Epsilon: 1,
		},
		NaturalNeighbour: NaturalNeighbourConfig{
			Method:      "sibson",
			Order:       1,
			Derivatives: "direct",
			CubicTerms:  true,
			Alpha:       0.1,
			Project:     true,
		},
		Render: RenderConfig{
			Colormap: "moreland",
			ColorMin: math.NaN(),
			ColorMax: math.NaN(),
		},
	}
}

// ParseConfig parses a configuration from s. Values absent from s take their
// defaults.
func ParseConfig(s string) (*Config, error) {
	config := DefaultConfig()
	if err := gcfg.ReadStringInto(config, s); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig reads a configuration from the file filename. Values absent from
// the file take their defaults.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if err := gcfg.ReadFileInto(config, filename); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return config, nil
}

// Validate returns an error describing every invalid value in c.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Interpolator(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Extrapolator(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseGeometryKind(c.Topoplot.BoundingGeometry); err != nil {
		errs = append(errs, fmt.Errorf("topoplot.boundinggeometry: %w", err))
	}
	if !(c.Topoplot.Enlarge > 0) {
		errs = append(errs, fmt.Errorf("topoplot.enlarge: %g: must be positive", c.Topoplot.Enlarge))
	}
	if c.Topoplot.Width < 1 || c.Topoplot.Height < 1 {
		errs = append(errs, fmt.Errorf("topoplot: %dx%d: invalid resolution", c.Topoplot.Width, c.Topoplot.Height))
	}
	if _, err := parseMaskSource(c.Topoplot.Mask); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options returns the Gridder options for c.
func (c *Config) Options() ([]Option, error) {
	interpolator, err := c.Interpolator()
	if err != nil {
		return nil, err
	}
	extrapolator, err := c.Extrapolator()
	if err != nil {
		return nil, err
	}
	kind, err := ParseGeometryKind(c.Topoplot.BoundingGeometry)
	if err != nil {
		return nil, err
	}
	maskSource, err := parseMaskSource(c.Topoplot.Mask)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithInterpolator(interpolator),
		WithExtrapolator(extrapolator),
		WithBoundingKind(kind),
		WithEnlarge(c.Topoplot.Enlarge),
		WithResolution(c.Topoplot.Width, c.Topoplot.Height),
		WithMaskSource(maskSource),
		WithOutsideValue(c.Topoplot.OutsideValue),
	}, nil
}

// Interpolator returns the Interpolator selected by c.
func (c *Config) Interpolator() (Interpolator, error) {
	switch name := strings.ToLower(c.Topoplot.Interpolation); name {
	case "cloughtocher":
		return &CloughTocher{
			Tol:     c.CloughTocher.Tol,
			MaxIter: c.CloughTocher.MaxIter,
			Rescale: c.CloughTocher.Rescale,
		}, nil
	case "scattered":
		method, err := c.Scattered.method()
		if err != nil {
			return nil, err
		}
		return &Scattered{
			Method: method,
		}, nil
	case "spline":
		return &SplineSurface{
			KX:        c.Spline.KX,
			KY:        c.Spline.KY,
			Smoothing: c.Spline.Smoothing,
		}, nil
	case "naturalneighbour", "naturalneighbor":
		nn, err := c.NaturalNeighbour.interpolator()
		if err != nil {
			return nil, err
		}
		return nn, nil
	default:
		return LookupInterpolator(name)
	}
}

// Extrapolator returns the Extrapolator selected by c.
func (c *Config) Extrapolator() (Extrapolator, error) {
	kind, err := ParseGeometryKind(c.Extrapolation.Geometry)
	if err != nil {
		return nil, fmt.Errorf("extrapolation.geometry: %w", err)
	}
	switch method := strings.ToLower(c.Extrapolation.Method); method {
	case "geom":
		if !(c.Extrapolation.Enlarge > 0) {
			return nil, fmt.Errorf("extrapolation.enlarge: %g: must be positive", c.Extrapolation.Enlarge)
		}
		if c.Extrapolation.Points < 0 {
			return nil, fmt.Errorf("extrapolation.points: %d: must not be negative", c.Extrapolation.Points)
		}
		return &GeomExtrapolation{
			Method:   Shepard{Power: c.Extrapolation.Power},
			Geometry: kind,
			Enlarge:  c.Extrapolation.Enlarge,
			Points:   c.Extrapolation.Points,
		}, nil
	case "none", "null":
		return NullExtrapolation{Geometry: kind}, nil
	default:
		return nil, fmt.Errorf("extrapolation.method: %s: unknown method", method)
	}
}

func (c ScatteredConfig) method() (ScatteredMethod, error) {
	switch method := strings.ToLower(c.Method); method {
	case "shepard":
		return Shepard{Power: c.Power}, nil
	case "thinplate":
		return ThinPlate{Smooth: c.Smooth}, nil
	case "multiquadratic":
		return Multiquadratic{Epsilon: c.Epsilon, Smooth: c.Smooth}, nil
	case "inversemultiquadratic":
		return InverseMultiquadratic{Epsilon: c.Epsilon, Smooth: c.Smooth}, nil
	case "gaussian":
		return Gaussian{Epsilon: c.Epsilon, Smooth: c.Smooth}, nil
	default:
		return nil, fmt.Errorf("scattered.method: %s: unknown method", method)
	}
}

func (c NaturalNeighbourConfig) interpolator() (*NaturalNeighbour, error) {
	var method NNMethod
	switch name := strings.ToLower(c.Method); name {
	case "sibson":
		method = Sibson{Order: c.Order}
	case "laplace":
		method = Laplace{}
	case "farin":
		method = Farin{}
	case "triangle":
		method = Triangle{}
	case "nearest":
		method = Nearest{}
	default:
		return nil, fmt.Errorf("naturalneighbour.method: %s: unknown method", name)
	}
	var derivativeMethod DerivativeMethod
	switch name := strings.ToLower(c.Derivatives); name {
	case "direct":
		derivativeMethod = DerivativeDirect
	case "iterative":
		derivativeMethod = DerivativeIterative
	default:
		return nil, fmt.Errorf("naturalneighbour.derivatives: %s: unknown method", name)
	}
	return &NaturalNeighbour{
		Method:           method,
		DerivativeMethod: derivativeMethod,
		UseCubicTerms:    c.CubicTerms,
		Alpha:            c.Alpha,
		Project:          c.Project,
	}, nil
}

func parseMaskSource(s string) (MaskSource, error) {
	switch strings.ToLower(s) {
	case "bounding":
		return MaskBounding, nil
	case "inner":
		return MaskInner, nil
	case "outer":
		return MaskOuter, nil
	default:
		return 0, fmt.Errorf("topoplot.mask: %s: unknown mask", s)
	}
}
