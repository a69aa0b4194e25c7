package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/twpayne/go-topoplot"
)

func run() error {
	configFilename := flag.String("config", "", "configuration file")
	interpolation := flag.String("interpolation", "", "interpolator, overrides the configuration file")
	sourceCRS := flag.String("crs", "", "CRS of x,y input positions, projected to -target-crs")
	targetCRS := flag.String("target-crs", "EPSG:3857", "target CRS")
	output := flag.String("o", "topoplot.png", "output PNG filename")
	tiffOutput := flag.String("tiff", "", "output TIFF filename")
	geoJSONOutput := flag.String("geojson", "", "output GeoJSON filename")
	tolerance := flag.Float64("tolerance", 0, "outline simplification tolerance")
	quiet := flag.Bool("quiet", false, "disable logging")
	flag.Parse()

	if flag.NArg() != 1 {
		return errors.New("syntax: topoplot-example [flags] samples.csv")
	}
	if *quiet {
		topoplot.SetLogger(nil)
	}

	config := topoplot.DefaultConfig()
	if *configFilename != "" {
		var err error
		config, err = topoplot.LoadConfig(*configFilename)
		if err != nil {
			return err
		}
	}
	if *interpolation != "" {
		config.Topoplot.Interpolation = *interpolation
		if err := config.Validate(); err != nil {
			return err
		}
	}
	options, err := config.Options()
	if err != nil {
		return err
	}

	file, err := os.Open(flag.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()
	positions, values, err := readSamples(file)
	if err != nil {
		return fmt.Errorf("%s: %w", flag.Arg(0), err)
	}

	if *sourceCRS != "" {
		projector, err := topoplot.NewProjector(*sourceCRS, *targetCRS)
		if err != nil {
			return err
		}
		positions, err = projector.Project(positions)
		if err != nil {
			return err
		}
	}

	gridder, err := topoplot.NewGridder(options...)
	if err != nil {
		return err
	}
	result, err := gridder.Grid(context.Background(), positions, values)
	if err != nil {
		return err
	}

	if err := writePNG(*output, result, positions, &config.Render); err != nil {
		return err
	}

	if *tiffOutput != "" {
		if err := writeFile(*tiffOutput, func(w io.Writer) error {
			return topoplot.WriteTIFF(w, result.Grid)
		}); err != nil {
			return err
		}
	}

	if *geoJSONOutput != "" {
		fc, err := result.FeatureCollection(positions, values, *tolerance)
		if err != nil {
			return err
		}
		if err := writeFile(*geoJSONOutput, func(w io.Writer) error {
			return json.NewEncoder(w).Encode(fc)
		}); err != nil {
			return err
		}
	}

	return nil
}

// readSamples reads x,y,value or label,value records from r.
func readSamples(r io.Reader) ([]topoplot.Point, []float64, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.Comment = '#'
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	var positions []topoplot.Point
	var labels []string
	values := make([]float64, 0, len(records))
	for i, record := range records {
		switch len(record) {
		case 2:
			labels = append(labels, record[0])
		case 3:
			x, err := strconv.ParseFloat(record[0], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			y, err := strconv.ParseFloat(record[1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			positions = append(positions, topoplot.Point{X: x, Y: y})
		default:
			return nil, nil, fmt.Errorf("line %d: expected 2 or 3 fields, got %d", i+1, len(record))
		}
		value, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		values = append(values, value)
	}

	switch {
	case len(labels) > 0 && len(positions) > 0:
		return nil, nil, errors.New("mixed label and position records")
	case len(labels) > 0:
		positions, err = topoplot.LabelsToPositions(labels)
		if err != nil {
			return nil, nil, err
		}
	}
	return positions, values, nil
}

func writePNG(filename string, result *topoplot.Result, positions []topoplot.Point, render *topoplot.RenderConfig) error {
	lo, hi, ok := result.Grid.Range()
	if !ok {
		return errors.New("grid has no finite values")
	}
	if !math.IsNaN(render.ColorMin) {
		lo = render.ColorMin
	}
	if !math.IsNaN(render.ColorMax) {
		hi = render.ColorMax
	}
	if hi <= lo {
		hi = lo + 1
	}

	var colorMap palette.ColorMap
	switch strings.ToLower(render.Colormap) {
	case "", "moreland", "bluered":
		colorMap = moreland.SmoothBlueRed()
	case "blackbody":
		colorMap = moreland.BlackBody()
	case "kindlmann":
		colorMap = moreland.Kindlmann()
	default:
		return fmt.Errorf("%s: unknown colormap", render.Colormap)
	}
	colorMap.SetMin(lo)
	colorMap.SetMax(hi)
	palette := colorMap.Palette(255)

	p := plot.New()
	p.HideAxes()

	heatMap := plotter.NewHeatMap(result.Grid, palette)
	heatMap.Min = lo
	heatMap.Max = hi
	heatMap.NaN = color.Transparent
	p.Add(heatMap)

	if render.Contours > 0 {
		levels := topoplot.LinRange(lo, hi, render.Contours+2)
		contour := plotter.NewContour(result.Grid, levels[1:len(levels)-1], colorMap.Palette(max(render.Contours, 2)))
		p.Add(contour)
	}

	ring := result.Outline(0)[0]
	outlineXYs := make(plotter.XYs, 0, len(ring))
	for _, point := range ring {
		outlineXYs = append(outlineXYs, plotter.XY{X: point[0], Y: point[1]})
	}
	outline, err := plotter.NewLine(outlineXYs)
	if err != nil {
		return err
	}
	outline.Width = vg.Points(1)
	p.Add(outline)

	sensorXYs := make(plotter.XYs, len(positions))
	for i, position := range positions {
		sensorXYs[i] = plotter.XY{X: position.X, Y: position.Y}
	}
	sensors, err := plotter.NewScatter(sensorXYs)
	if err != nil {
		return err
	}
	sensors.GlyphStyle.Radius = vg.Points(2)
	p.Add(sensors)

	width, height := result.Grid.Dims()
	aspect := float64(height) / float64(width)
	bounds := result.Geometry.Bounds()
	if bounds.Width > 0 {
		aspect = bounds.Height / bounds.Width
	}
	if err := p.Save(6*vg.Inch, vg.Length(aspect)*6*vg.Inch, filename); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func writeFile(filename string, write func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
