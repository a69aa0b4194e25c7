package topoplot

import (
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"golang.org/x/image/tiff"
)

// outlinePoints is the number of points in exported geometry outlines.
const outlinePoints = 128

// WriteTIFF writes grid to w as a Deflate-compressed 16-bit grayscale TIFF
// with the first row at the bottom. Non-finite values are written as 0 and
// finite values are scaled linearly onto 1..65535.
func WriteTIFF(w io.Writer, grid *Grid) error {
	width, height := grid.Dims()
	if width == 0 || height == 0 {
		return errors.New("empty grid")
	}
	lo, hi, _ := grid.Range()
	scale := 0.0
	if hi > lo {
		scale = (math.MaxUint16 - 1) / (hi - lo)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for r := range height {
		for c, v := range grid.Row(r) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			img.SetGray16(c, height-1-r, color.Gray16{Y: 1 + uint16(math.Round((v-lo)*scale))})
		}
	}
	return tiff.Encode(w, img, &tiff.Options{
		Compression: tiff.Deflate,
	})
}

// Outline returns the outline of r's mask geometry as a polygon, simplified
// with the Douglas-Peucker algorithm if tolerance is positive.
func (r *Result) Outline(tolerance float64) orb.Polygon {
	ring := r.Geometry.Outline(outlinePoints)
	if tolerance > 0 {
		if simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(ring.Clone()).(orb.Ring); ok && len(simplified) >= 4 {
			ring = simplified
		}
	}
	return orb.Polygon{ring}
}

// FeatureCollection returns r's mask outline and samples as a GeoJSON feature
// collection. Extrapolated samples have the property "extrapolated" set to
// true.
func (r *Result) FeatureCollection(positions []Point, values []float64, tolerance float64) (*geojson.FeatureCollection, error) {
	if err := checkShape(positions, values); err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()

	outline := geojson.NewFeature(r.Outline(tolerance))
	outline.Properties["kind"] = r.Geometry.Kind().String()
	fc.Append(outline)

	addSamples := func(positions []Point, values []float64, extrapolated bool) {
		for i, p := range positions {
			feature := geojson.NewFeature(orb.Point{p.X, p.Y})
			feature.Properties["value"] = values[i]
			if extrapolated {
				feature.Properties["extrapolated"] = true
			}
			fc.Append(feature)
		}
	}
	addSamples(positions, values, false)
	if r.Extrapolation != nil {
		addSamples(r.Extrapolation.ExtraPositions, r.Extrapolation.ExtraValues, true)
	}

	return fc, nil
}
