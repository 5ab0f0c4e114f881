// Package xsection holds the tabulated cross sections and structure factor
// and their log-space quadratic interpolation.
package xsection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/wildstyl3r/discus/internal/utils"
)

var (
	ErrTooFewPoints   = errors.New("table needs at least 3 points for quadratic interpolation")
	ErrNonPositive    = errors.New("tabulated values must be positive")
	ErrNotMonotonic   = errors.New("table x values must be strictly increasing")
	ErrLengthMismatch = errors.New("table x and y lengths differ")
)

const MinTablePoints = 3

const uniformTolerance = 1e-6

// Table stores ln(y) against a uniformly spaced x. Interpolating the log
// keeps reconstructed values positive.
type Table struct {
	x    []float64
	logY []float64
}

func NewTable(xs, ys []float64) (*Table, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) < MinTablePoints {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(xs))
	}
	t := &Table{
		x:    make([]float64, len(xs)),
		logY: make([]float64, len(ys)),
	}
	for i := range xs {
		if ys[i] <= 0 || math.IsNaN(ys[i]) {
			return nil, fmt.Errorf("%w: y = %g at x = %g", ErrNonPositive, ys[i], xs[i])
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: x[%d] = %g after %g", ErrNotMonotonic, i, xs[i], xs[i-1])
		}
		t.x[i] = xs[i]
		t.logY[i] = math.Log(ys[i])
	}
	if !utils.IsUniform(t.x, uniformTolerance) {
		if err := t.resample(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// resample moves the table onto a uniform grid with the same number of points.
func (t *Table) resample() error {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(t.x, t.logY); err != nil {
		return fmt.Errorf("while resampling table: %w", err)
	}
	uniform := make([]float64, len(t.x))
	floats.Span(uniform, t.x[0], t.x[len(t.x)-1])
	for i := range uniform {
		t.logY[i] = pl.Predict(uniform[i])
	}
	t.x = uniform
	return nil
}

func (t *Table) Len() int {
	return len(t.x)
}

func (t *Table) Domain() (float64, float64) {
	return t.x[0], t.x[len(t.x)-1]
}

// Interpolate fits a quadratic through three neighbouring log values and
// returns its exponential at x. Outside the domain the boundary value is returned.
func (t *Table) Interpolate(x float64) float64 {
	n := len(t.x)
	if x <= t.x[0] {
		return math.Exp(t.logY[0])
	}
	if x >= t.x[n-1] {
		return math.Exp(t.logY[n-1])
	}
	i := min(utils.LeftBracket(t.x, x), n-3)
	u := (x - t.x[i]) / (t.x[i+1] - t.x[i])
	y0, y1, y2 := t.logY[i], t.logY[i+1], t.logY[i+2]
	return math.Exp(y0 + u*(y1-y0) + 0.5*u*(u-1)*(y2-2*y1+y0))
}
