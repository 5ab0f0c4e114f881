package xsection

import (
	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/sample"
)

// Model provides S(Q) and the k dependent cross sections of the sample.
// It is read only during a run.
type Model struct {
	Material sample.Material
	SQ       *Table
	SigmaSS  *Table // optional σs(k); the material's bound value is used when nil
}

// TotalCrossSection returns scattering plus absorption at wavenumber k. The
// absorption term is dropped for the no-absorption reference calculation.
func (m *Model) TotalCrossSection(k float64, noAbsorption bool) (total, scattering float64) {
	if m.SigmaSS != nil {
		scattering = m.SigmaSS.Interpolate(k)
	} else {
		scattering = m.Material.TotalScatterXSection
	}
	total = scattering
	if !noAbsorption {
		total += m.Material.AbsorbXSection(constants.TwoPi / k)
	}
	return total, scattering
}

func (m *Model) StructureFactor(q float64) float64 {
	return m.SQ.Interpolate(q)
}

// FlatSQ is an isotropic S(Q) = 1 reaching up to qMax.
func FlatSQ(qMax float64) *Table {
	t, err := NewTable([]float64{0, qMax / 2, qMax}, []float64{1, 1, 1})
	if err != nil {
		panic(err)
	}
	return t
}
