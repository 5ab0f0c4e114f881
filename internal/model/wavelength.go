package model

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/wildstyl3r/discus/internal/config"
)

// SimulationIndices picks the bins simulated out of nBins: every step-th bin
// plus always the first and the last, so at least nPoints bins are chosen.
// nPoints of zero, or at least nBins, selects every bin.
func SimulationIndices(nBins, nPoints int) []int {
	if nBins <= 0 {
		return nil
	}
	if nPoints <= 0 || nPoints >= nBins {
		indices := make([]int, nBins)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	step := (nBins - 1) / (max(nPoints, 2) - 1)
	var indices []int
	for i := 0; i < nBins-1; i += step {
		indices = append(indices, i)
	}
	return append(indices, nBins-1)
}

func newPredictor(method config.InterpolationMethod) (interp.FittablePredictor, error) {
	switch method {
	case config.Linear:
		return &interp.PiecewiseLinear{}, nil
	case config.CSpline:
		return &interp.NaturalCubic{}, nil
	}
	return nil, fmt.Errorf("unknown interpolation method %v", method)
}

// InterpolateWavelengths fills the bins of ys that were not simulated from
// the simulated ones. simulated must be increasing and include both ends.
func InterpolateWavelengths(method config.InterpolationMethod, xs, ys []float64, simulated []int) error {
	if len(simulated) == len(xs) {
		return nil
	}
	if len(simulated) < method.MinPoints() {
		return fmt.Errorf("%w: %s needs %d, got %d", config.ErrWavelengthPoints, method, method.MinPoints(), len(simulated))
	}
	sx := make([]float64, len(simulated))
	sy := make([]float64, len(simulated))
	for i, bin := range simulated {
		sx[i], sy[i] = xs[bin], ys[bin]
	}

	predictor, err := newPredictor(method)
	if err != nil {
		return err
	}
	if err := predictor.Fit(sx, sy); err != nil {
		return fmt.Errorf("while fitting %s interpolation: %w", method, err)
	}
	next := 0
	for bin := range xs {
		if next < len(simulated) && simulated[next] == bin {
			next++
			continue
		}
		ys[bin] = predictor.Predict(xs[bin])
	}
	return nil
}
