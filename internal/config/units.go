package config

import "github.com/wildstyl3r/discus/internal/utils"

// internal units: lengths in m, wavelengths in Å
var unitToInternal = map[string]float64{
	"m":  1,    // [m]
	"cm": 1e-2, // [m]
	"mm": 1e-3, // [m]
	"A":  1,    // [Å]
	"nm": 10,   // [Å]
}

type UnitClass int

const (
	Length UnitClass = iota
	Wavelength
)

var unitsInClass = map[UnitClass][]string{
	Length:     {"mm", "cm", "m"},
	Wavelength: {"A", "nm"},
}

var classesOfUnits = map[string]UnitClass{
	"m":  Length,
	"cm": Length,
	"mm": Length,
	"A":  Wavelength,
	"nm": Wavelength,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

var defaultUnits = []string{"m", "A"}

func checkUnits(units []string) (extended, conflicts []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			conflicts = append(conflicts, unit)
			continue
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
		}
	}
	extended = units
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// Convert scales v between the given units and internal ones; direct
// converts into internal units.
func Convert(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToInternal[*unit]
			}
		} else {
			for range absPower {
				v /= unitToInternal[*unit]
			}
		}
	}
	return v
}

var lengthUnit = []UnitElement{{Class: Length, Power: 1}}
var wavelengthUnit = []UnitElement{{Class: Wavelength, Power: 1}}
