package topoplot

import (
	"strings"

	"github.com/twpayne/go-proj/v10"
)

// northingFirstCRSs are CRSs whose axis order is northing, easting.
var northingFirstCRSs = map[string]bool{
	"epsg:3035": true,
	"epsg:4326": true,
}

// A Projector projects sample positions from one coordinate reference system
// to another. Positions are always easting, northing (or longitude, latitude)
// regardless of the axis order of the CRS.
type Projector struct {
	pj         *proj.PJ
	flipSource bool
	flipTarget bool
}

// NewProjector returns a new Projector from source to target, for example
// from "EPSG:4326" to "EPSG:3857".
func NewProjector(source, target string) (*Projector, error) {
	pj, err := proj.NewCRSToCRS(source, target, nil)
	if err != nil {
		return nil, err
	}
	return &Projector{
		pj:         pj,
		flipSource: northingFirstCRSs[strings.ToLower(source)],
		flipTarget: northingFirstCRSs[strings.ToLower(target)],
	}, nil
}

// Project returns positions projected to the target CRS.
func (p *Projector) Project(positions []Point) ([]Point, error) {
	coords := pointsToCoords(positions)
	if p.flipSource {
		flipCoords(coords)
	}
	if err := p.pj.ForwardFloat64Slices(coords); err != nil {
		return nil, err
	}
	if p.flipTarget {
		flipCoords(coords)
	}
	projected := make([]Point, len(coords))
	for i, coord := range coords {
		projected[i] = Point{X: coord[0], Y: coord[1]}
	}
	return projected, nil
}

// pointsToCoords returns positions as coordinate slices sharing a single
// backing array.
func pointsToCoords(positions []Point) [][]float64 {
	coordsFlat := make([]float64, 2*len(positions))
	coords := make([][]float64, len(positions))
	for i, p := range positions {
		coordsFlat[2*i], coordsFlat[2*i+1] = p.X, p.Y
		coords[i] = coordsFlat[2*i : 2*i+2 : 2*i+2]
	}
	return coords
}

func flipCoords(coords [][]float64) {
	for i, coord := range coords {
		coords[i][0], coords[i][1] = coord[1], coord[0]
	}
}
