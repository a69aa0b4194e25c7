package topoplot_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/twpayne/go-topoplot"
)

func TestParseExampleConfig(t *testing.T) {
	config, err := topoplot.ParseConfig(topoplot.ExampleConfig)
	assert.NoError(t, err)
	assert.True(t, cmp.Equal(topoplot.DefaultConfig(), config, cmpopts.EquateNaNs()), cmp.Diff(topoplot.DefaultConfig(), config, cmpopts.EquateNaNs()))
}

func TestConfigInterpolator(t *testing.T) {
	for _, tc := range []struct {
		name     string
		s        string
		expected topoplot.Interpolator
	}{
		{
			name: "default",
			expected: &topoplot.CloughTocher{
				Tol:     1e-6,
				MaxIter: 400,
			},
		},
		{
			name: "cloughtocher",
			s: "[Topoplot]\nInterpolation = CloughTocher\n" +
				"[CloughTocher]\nTol = 1e-3\nMaxIter = 10\nRescale = true\n",
			expected: &topoplot.CloughTocher{
				Tol:     1e-3,
				MaxIter: 10,
				Rescale: true,
			},
		},
		{
			name:     "delaunay",
			s:        "[Topoplot]\nInterpolation = delaunay\n",
			expected: &topoplot.DelaunayMesh{},
		},
		{
			name:     "null",
			s:        "[Topoplot]\nInterpolation = null\n",
			expected: topoplot.NullInterpolator{},
		},
		{
			name: "scattered",
			s: "[Topoplot]\nInterpolation = scattered\n" +
				"[Scattered]\nMethod = gaussian\nEpsilon = 4\n",
			expected: &topoplot.Scattered{
				Method: topoplot.Gaussian{Epsilon: 4},
			},
		},
		{
			name: "shepard",
			s: "[Topoplot]\nInterpolation = scattered\n" +
				"[Scattered]\nMethod = shepard\nPower = 3\n",
			expected: &topoplot.Scattered{
				Method: topoplot.Shepard{Power: 3},
			},
		},
		{
			name: "spline",
			s: "[Topoplot]\nInterpolation = spline\n" +
				"[Spline]\nKX = 3\nSmoothing = 0\n",
			expected: &topoplot.SplineSurface{
				KX: 3,
				KY: 2,
			},
		},
		{
			name:     "naturalneighbour",
			s:        "[Topoplot]\nInterpolation = naturalneighbour\n",
			expected: topoplot.NewNaturalNeighbour(),
		},
		{
			name: "naturalneighbor",
			s: "[Topoplot]\nInterpolation = naturalneighbor\n" +
				"[NaturalNeighbour]\nMethod = laplace\nDerivatives = iterative\nCubicTerms = false\nProject = false\n",
			expected: &topoplot.NaturalNeighbour{
				Method:           topoplot.Laplace{},
				DerivativeMethod: topoplot.DerivativeIterative,
				Alpha:            0.1,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			config, err := topoplot.ParseConfig(tc.s)
			assert.NoError(t, err)
			actual, err := config.Interpolator()
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestConfigExtrapolator(t *testing.T) {
	config, err := topoplot.ParseConfig("[Extrapolation]\nMethod = geom\nGeometry = circle\nEnlarge = 2\nPoints = 32\nPower = 3\n")
	assert.NoError(t, err)
	extrapolator, err := config.Extrapolator()
	assert.NoError(t, err)
	assert.Equal(t, topoplot.Extrapolator(&topoplot.GeomExtrapolation{
		Method:   topoplot.Shepard{Power: 3},
		Geometry: topoplot.KindCircle,
		Enlarge:  2,
		Points:   32,
	}), extrapolator)

	config, err = topoplot.ParseConfig("[Extrapolation]\nMethod = none\n")
	assert.NoError(t, err)
	extrapolator, err = config.Extrapolator()
	assert.NoError(t, err)
	assert.Equal(t, topoplot.Extrapolator(topoplot.NullExtrapolation{Geometry: topoplot.KindRect}), extrapolator)
}

func TestParseConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name             string
		s                string
		expectedErr      error
		expectedContains []string
	}{
		{
			name:             "unknown_interpolator",
			s:                "[Topoplot]\nInterpolation = kriging\n",
			expectedErr:      topoplot.ErrUnknownInterpolator,
			expectedContains: []string{"kriging"},
		},
		{
			name:             "multiple",
			s:                "[Topoplot]\nEnlarge = -1\nMask = sideways\nWidth = 0\n",
			expectedContains: []string{"topoplot.enlarge", "topoplot.mask", "invalid resolution"},
		},
		{
			name:             "bounding_geometry",
			s:                "[Topoplot]\nBoundingGeometry = hexagon\n",
			expectedContains: []string{"topoplot.boundinggeometry"},
		},
		{
			name:             "extrapolation_method",
			s:                "[Extrapolation]\nMethod = mirror\n",
			expectedContains: []string{"extrapolation.method"},
		},
		{
			name:             "scattered_method",
			s:                "[Topoplot]\nInterpolation = scattered\n[Scattered]\nMethod = kriging\n",
			expectedContains: []string{"scattered.method"},
		},
		{
			name:             "natural_neighbour_method",
			s:                "[Topoplot]\nInterpolation = naturalneighbour\n[NaturalNeighbour]\nMethod = voronoi\n",
			expectedContains: []string{"naturalneighbour.method"},
		},
		{
			name: "unknown_variable",
			s:    "[Topoplot]\nColour = red\n",
		},
		{
			name: "syntax",
			s:    "[Topoplot\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := topoplot.ParseConfig(tc.s)
			assert.Error(t, err)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
			}
			for _, s := range tc.expectedContains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "topoplot.ini")
	assert.NoError(t, os.WriteFile(filename, []byte(
		"[Topoplot]\nInterpolation = delaunay\nBoundingGeometry = rect\nEnlarge = 1\nWidth = 2\nHeight = 2\nOutsideValue = -1\n"+
			"[Extrapolation]\nMethod = none\n",
	), 0o666))

	config, err := topoplot.LoadConfig(filename)
	assert.NoError(t, err)
	assert.Equal(t, -1, config.Topoplot.OutsideValue)
	assert.True(t, math.IsNaN(config.Render.ColorMin))

	options, err := config.Options()
	assert.NoError(t, err)
	result, err := topoplot.InterpolateGrid(t.Context(), squarePositions, []float64{0, 0, 1, 1}, options...)
	assert.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, result.Grid.Values)

	_, err = topoplot.LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
