package topoplot_test

import (
	"bytes"
	"image"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
	"golang.org/x/image/tiff"

	"github.com/twpayne/go-topoplot"
)

func TestWriteTIFF(t *testing.T) {
	grid := &topoplot.Grid{
		Xs: []float64{0, 1, 2},
		Ys: []float64{0, 1},
		Values: []float64{
			math.NaN(), 0, 1,
			2, math.Inf(1), 4,
		},
	}
	buffer := &bytes.Buffer{}
	assert.NoError(t, topoplot.WriteTIFF(buffer, grid))

	img, err := tiff.Decode(buffer)
	assert.NoError(t, err)
	gray16, ok := img.(*image.Gray16)
	assert.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 3, 2), gray16.Bounds())
	for _, tc := range []struct {
		x, y     int
		expected uint16
	}{
		{x: 0, y: 1, expected: 0},
		{x: 1, y: 1, expected: 1},
		{x: 2, y: 1, expected: 16385},
		{x: 0, y: 0, expected: 32768},
		{x: 1, y: 0, expected: 0},
		{x: 2, y: 0, expected: 65535},
	} {
		assert.Equal(t, tc.expected, gray16.Gray16At(tc.x, tc.y).Y, "(%d, %d)", tc.x, tc.y)
	}

	assert.Error(t, topoplot.WriteTIFF(&bytes.Buffer{}, topoplot.NewGrid(nil, nil, 0)))
}

func TestResultFeatureCollection(t *testing.T) {
	positions, values := randomSamples(6, smooth)
	result, err := topoplot.InterpolateGrid(t.Context(), positions, values,
		topoplot.WithResolution(8, 8),
		topoplot.WithExtrapolator(&topoplot.GeomExtrapolation{Points: 5}),
	)
	assert.NoError(t, err)

	fc, err := result.FeatureCollection(positions, values, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1+len(positions)+5, len(fc.Features))

	outline := fc.Features[0]
	assert.Equal(t, "circle", outline.Properties["kind"])
	polygon, ok := outline.Geometry.(orb.Polygon)
	assert.True(t, ok)
	assert.Equal(t, 129, len(polygon[0]))

	for i, feature := range fc.Features[1:] {
		point, ok := feature.Geometry.(orb.Point)
		assert.True(t, ok)
		if i < len(positions) {
			assert.Equal(t, orb.Point{positions[i].X, positions[i].Y}, point)
			assert.Equal(t, any(values[i]), feature.Properties["value"])
			_, extrapolated := feature.Properties["extrapolated"]
			assert.False(t, extrapolated)
		} else {
			assert.Equal(t, any(true), feature.Properties["extrapolated"])
		}
	}

	_, err = result.FeatureCollection(positions, values[1:], 0)
	assert.IsError(t, err, topoplot.ErrShapeMismatch)
}

func TestResultOutline(t *testing.T) {
	for _, tc := range []struct {
		name     string
		geometry topoplot.Geometry
	}{
		{name: "circle", geometry: topoplot.Circle{Radius: 1}},
		{name: "rect", geometry: topoplot.Rect{Width: 2, Height: 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result := &topoplot.Result{Geometry: tc.geometry}
			full := result.Outline(0)
			assert.Equal(t, 1, len(full))
			assert.Equal(t, 129, len(full[0]))
			assert.True(t, full[0].Closed())

			simplified := result.Outline(0.1)
			assert.True(t, len(simplified[0]) < len(full[0]))
			assert.True(t, len(simplified[0]) >= 4)
			assert.True(t, simplified[0].Closed())
			assert.True(t, tc.geometry.Scale(1+1e-9).Contains(topoplot.Point{X: simplified[0][1][0], Y: simplified[0][1][1]}))
		})
	}
}
