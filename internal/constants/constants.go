package constants

import "math"

const FourPi = 4. * math.Pi
const TwoPi = 2. * math.Pi

// Absorption cross sections are tabulated for 2200 m/s neutrons.
const ReferenceWavelength = 1.7982 // [Å]

// number density [Å^-3] * cross section [barn] -> linear attenuation [m^-1]
const AttenuationUnit = 100.
