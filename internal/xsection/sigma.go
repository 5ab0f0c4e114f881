package xsection

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

const integrationPoints = 200

// ScatteringXSectionTable tabulates σs(k) = σ_bound ∫₀^{2k} S(Q) Q dQ / (2k²)
// on the given wavenumbers, so that the total scattering follows the S(Q) data.
func ScatteringXSectionTable(sq *Table, sigmaBound float64, ks []float64) (*Table, error) {
	qs := make([]float64, integrationPoints)
	f := make([]float64, integrationPoints)
	sigma := make([]float64, len(ks))
	for i, k := range ks {
		if k <= 0 {
			return nil, fmt.Errorf("%w: k = %g", ErrNonPositive, k)
		}
		floats.Span(qs, 0, 2*k)
		for j, q := range qs {
			f[j] = sq.Interpolate(q) * q
		}
		sigma[i] = sigmaBound * integrate.Trapezoidal(qs, f) / (2 * k * k)
	}
	return NewTable(ks, sigma)
}

// KGrid spans n wavenumbers over [kMin, kMax], widening a degenerate range.
func KGrid(kMin, kMax float64, n int) []float64 {
	if kMax <= kMin {
		kMin, kMax = kMin*0.99, kMin*1.01
	}
	ks := make([]float64, max(n, MinTablePoints))
	floats.Span(ks, kMin, kMax)
	return ks
}
