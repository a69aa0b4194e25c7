package topoplot

import (
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
)

// channels1020 are the labels of the 10-20 system, in the modern naming.
var channels1020 = []string{
	"Fp1", "Fpz", "Fp2",
	"F7", "F3", "Fz", "F4", "F8",
	"T7", "C3", "Cz", "C4", "T8",
	"P7", "P3", "Pz", "P4", "P8",
	"O1", "Oz", "O2",
}

// channelAliases maps old 10-20 labels to their modern equivalents.
var channelAliases = map[string]string{
	"t3": "t7",
	"t4": "t8",
	"t5": "p7",
	"t6": "p8",
}

// A montageRow is a row of electrodes running from the midline to the left
// and right, at percent of the nasion-inion distance.
type montageRow struct {
	prefix string
	// temporalPrefix is the prefix of the electrodes at and beyond the
	// equator, if different.
	temporalPrefix string
	percent        float64
	kind           montageRowKind
}

type montageRowKind int

const (
	rowMidline montageRowKind = iota
	rowPolar
	rowShort
	rowFull
)

var montageRows = []montageRow{
	{prefix: "N", percent: 0, kind: rowMidline},
	{prefix: "Fp", percent: 10, kind: rowPolar},
	{prefix: "AFp", percent: 15, kind: rowShort},
	{prefix: "AF", percent: 20, kind: rowFull},
	{prefix: "AFF", percent: 25, kind: rowFull},
	{prefix: "F", percent: 30, kind: rowFull},
	{prefix: "FFC", temporalPrefix: "FFT", percent: 35, kind: rowFull},
	{prefix: "FC", temporalPrefix: "FT", percent: 40, kind: rowFull},
	{prefix: "FCC", temporalPrefix: "FTT", percent: 45, kind: rowFull},
	{prefix: "C", temporalPrefix: "T", percent: 50, kind: rowFull},
	{prefix: "CCP", temporalPrefix: "TTP", percent: 55, kind: rowFull},
	{prefix: "CP", temporalPrefix: "TP", percent: 60, kind: rowFull},
	{prefix: "CPP", temporalPrefix: "TPP", percent: 65, kind: rowFull},
	{prefix: "P", percent: 70, kind: rowFull},
	{prefix: "PPO", percent: 75, kind: rowFull},
	{prefix: "PO", percent: 80, kind: rowFull},
	{prefix: "POO", percent: 85, kind: rowShort},
	{prefix: "O", percent: 90, kind: rowPolar},
	{prefix: "OI", percent: 95, kind: rowMidline},
	{prefix: "I", percent: 100, kind: rowMidline},
}

// A montageColumn is an electrode position along a row. fraction is the
// position along the arc from the midline to the equator and below is the
// angle below the equator.
type montageColumn struct {
	left     string
	right    string
	fraction float64
	below    float64
	temporal bool
}

var fullColumns = []montageColumn{
	{left: "1h", right: "2h", fraction: 1. / 8},
	{left: "1", right: "2", fraction: 2. / 8},
	{left: "3h", right: "4h", fraction: 3. / 8},
	{left: "3", right: "4", fraction: 4. / 8},
	{left: "5h", right: "6h", fraction: 5. / 8},
	{left: "5", right: "6", fraction: 6. / 8},
	{left: "7h", right: "8h", fraction: 7. / 8, temporal: true},
	{left: "7", right: "8", fraction: 1, temporal: true},
	{left: "9h", right: "10h", fraction: 1, below: math.Pi / 16, temporal: true},
	{left: "9", right: "10", fraction: 1, below: math.Pi / 8, temporal: true},
}

var shortColumns = []montageColumn{
	{left: "3", right: "4", fraction: 1. / 2},
	{left: "7", right: "8", fraction: 1},
}

var polarColumns = []montageColumn{
	{left: "1", right: "2", fraction: 1},
}

type montage struct {
	labels    []string
	positions map[string]Point
}

// standardMontage returns the idealized spherical 10-05 montage, projected
// azimuthal-equidistantly onto the plane with Cz at the origin, the nose
// towards +y, and Fpz, T7, Oz, and T8 at radius 0.5.
var standardMontage = sync.OnceValue(func() *montage {
	m := &montage{
		positions: make(map[string]Point),
	}
	add := func(label string, v vec3) {
		m.labels = append(m.labels, label)
		m.positions[strings.ToLower(label)] = v.project()
	}
	for _, row := range montageRows {
		midline := row.midline()
		add(row.prefix+"z", midline)
		var columns []montageColumn
		switch row.kind {
		case rowPolar:
			columns = polarColumns
		case rowShort:
			columns = shortColumns
		case rowFull:
			columns = fullColumns
		}
		for _, column := range columns {
			prefix := row.prefix
			if column.temporal && row.temporalPrefix != "" {
				prefix = row.temporalPrefix
			}
			for _, side := range []struct {
				label string
				sign  float64
			}{
				{label: column.left, sign: -1},
				{label: column.right, sign: 1},
			} {
				equator := row.equator(side.sign)
				v := slerp(midline, equator, column.fraction)
				if column.below != 0 {
					v = equator.scale(math.Cos(column.below)).add(vec3{z: -math.Sin(column.below)})
				}
				add(prefix+side.label, v)
			}
		}
	}
	return m
})

// Channels1020 returns the labels of the 10-20 system.
func Channels1020() []string {
	return slices.Clone(channels1020)
}

// Channels1005 returns the labels of the 10-05 system.
func Channels1005() []string {
	return slices.Clone(standardMontage().labels)
}

// ChannelPosition returns the position of the channel with the given label.
// Labels are case-insensitive.
func ChannelPosition(label string) (Point, bool) {
	key := strings.ToLower(label)
	if alias, ok := channelAliases[key]; ok {
		key = alias
	}
	p, ok := standardMontage().positions[key]
	return p, ok
}

// LabelsToPositions returns the positions of the channels with the given
// labels. It returns an error wrapping an *UnknownChannelError for each
// unknown label.
func LabelsToPositions(labels []string) ([]Point, error) {
	positions := make([]Point, len(labels))
	var errs []error
	for i, label := range labels {
		p, ok := ChannelPosition(label)
		if !ok {
			errs = append(errs, &UnknownChannelError{Label: label})
			continue
		}
		positions[i] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return positions, nil
}

type vec3 struct {
	x, y, z float64
}

func (a vec3) add(b vec3) vec3 {
	return vec3{x: a.x + b.x, y: a.y + b.y, z: a.z + b.z}
}

func (a vec3) scale(f float64) vec3 {
	return vec3{x: f * a.x, y: f * a.y, z: f * a.z}
}

func (a vec3) dot(b vec3) float64 {
	return a.x*b.x + a.y*b.y + a.z*b.z
}

// project returns the azimuthal equidistant projection of the unit vector a
// about the vertex.
func (a vec3) project() Point {
	rho := math.Hypot(a.x, a.y)
	if rho == 0 {
		return Point{}
	}
	r := math.Acos(max(-1, min(a.z, 1))) / math.Pi
	return Point{X: r * a.x / rho, Y: r * a.y / rho}
}

// midline returns the position of the row's midline electrode.
func (r montageRow) midline() vec3 {
	angle := (r.percent - 50) / 40 * math.Pi / 2
	return vec3{y: -math.Sin(angle), z: math.Cos(angle)}
}

// equator returns the position where the row meets the equator on the left
// (sign -1) or right (sign 1).
func (r montageRow) equator(sign float64) vec3 {
	angle := r.percent / 100 * math.Pi
	return vec3{x: sign * math.Sin(angle), y: math.Cos(angle)}
}

// slerp returns the point at fraction t along the great circle arc from unit
// vectors a to b.
func slerp(a, b vec3, t float64) vec3 {
	omega := math.Acos(max(-1, min(a.dot(b), 1)))
	if omega == 0 {
		return a
	}
	sinOmega := math.Sin(omega)
	return a.scale(math.Sin((1-t)*omega) / sinOmega).add(b.scale(math.Sin(t*omega) / sinOmega))
}
