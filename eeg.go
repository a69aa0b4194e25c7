package topoplot

import (
	"context"
	"slices"
)

// NewEEGGridder returns a new Gridder for EEG topographic plots: samples are
// extrapolated onto a circle three times the size of the electrode layout and
// the grid is masked to the circle enclosing the electrodes.
func NewEEGGridder(options ...Option) (*Gridder, error) {
	return NewGridder(slices.Concat(
		[]Option{
			WithBoundingKind(KindCircle),
			WithEnlarge(1),
			WithExtrapolator(&GeomExtrapolation{
				Geometry: KindCircle,
				Enlarge:  3,
			}),
		},
		options,
	)...)
}

// EEGTopoplot grids values measured at the channels with the given labels.
func EEGTopoplot(ctx context.Context, labels []string, values []float64, options ...Option) (*Result, error) {
	positions, err := LabelsToPositions(labels)
	if err != nil {
		return nil, err
	}
	gridder, err := NewEEGGridder(options...)
	if err != nil {
		return nil, err
	}
	return gridder.Grid(ctx, positions, values)
}
