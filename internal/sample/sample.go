package sample

import (
	"errors"
	"fmt"

	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/geometry"
)

var (
	ErrZeroDensity     = errors.New("sample material has zero number density")
	ErrNoScattering    = errors.New("sample material has no scattering cross section")
	ErrEnvironment     = errors.New("sample environments are not supported")
	ErrNoShape         = errors.New("sample has no shape")
	ErrUnknownMaterial = errors.New("unknown material")
)

type Material struct {
	Name                 string
	NumberDensity        float64 // [Å^-3]
	TotalScatterXSection float64 // [barn]
	AbsorbXSectionRef    float64 // [barn] at constants.ReferenceWavelength
}

// AbsorbXSection scales the reference absorption cross section as 1/v.
func (m Material) AbsorbXSection(wavelength float64) float64 {
	return m.AbsorbXSectionRef * wavelength / constants.ReferenceWavelength
}

// Attenuation is the linear attenuation coefficient [m^-1] for a cross section in barn.
func (m Material) Attenuation(sigma float64) float64 {
	return constants.AttenuationUnit * m.NumberDensity * sigma
}

// Tabulated values from the NIST neutron scattering lengths table.
var KnownMaterials = map[string]Material{
	"Ni": {Name: "Ni", NumberDensity: 0.0914, TotalScatterXSection: 18.5, AbsorbXSectionRef: 4.49},
	"V":  {Name: "V", NumberDensity: 0.0722, TotalScatterXSection: 5.1, AbsorbXSectionRef: 5.08},
	"Al": {Name: "Al", NumberDensity: 0.0602, TotalScatterXSection: 1.503, AbsorbXSectionRef: 0.231},
	"Cu": {Name: "Cu", NumberDensity: 0.0845, TotalScatterXSection: 8.03, AbsorbXSectionRef: 3.78},
}

func LookupMaterial(name string) (Material, error) {
	m, ok := KnownMaterials[name]
	if !ok {
		return Material{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	return m, nil
}

// Sample is immutable during a run and shared by every worker.
type Sample struct {
	Shape       geometry.Shape
	Material    Material
	Environment string
}

func (s *Sample) Validate() error {
	var errs []error
	if s.Shape == nil {
		errs = append(errs, ErrNoShape)
	}
	if s.Material.NumberDensity <= 0 {
		errs = append(errs, ErrZeroDensity)
	}
	if s.Material.TotalScatterXSection <= 0 {
		errs = append(errs, ErrNoScattering)
	}
	if s.Environment != "" {
		errs = append(errs, fmt.Errorf("%w: %q attached", ErrEnvironment, s.Environment))
	}
	return errors.Join(errs...)
}
