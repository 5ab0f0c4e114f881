package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/facette/natsort"
	"github.com/golang/glog"

	"github.com/wildstyl3r/discus/internal/utils"
)

const MaxScatterings = 5

var (
	ErrInelastic        = errors.New("only elastic scattering is supported")
	ErrScatterings      = fmt.Errorf("NumberOfScatterings must be between 1 and %d", MaxScatterings)
	ErrPathCount        = errors.New("neutron path counts must be positive")
	ErrSparseGrid       = errors.New("sparse instrument needs at least 3 detector rows and 2 columns")
	ErrWavelengthPoints = errors.New("too few wavelength points for the interpolation method")
	ErrWavelengthAxis   = errors.New("wavelength axis must be positive and increasing")
	ErrAmbiguousSigma   = errors.New("SigmaSSFile and NormalizeSigmaToSQ are mutually exclusive")
	ErrUnitConflict     = errors.New("input unit conflict")
	ErrNoRuns           = errors.New("no runs provided")
)

type InterpolationMethod int

const (
	Linear InterpolationMethod = iota
	CSpline
)

func (m InterpolationMethod) String() string {
	switch m {
	case Linear:
		return "Linear"
	case CSpline:
		return "CSpline"
	}
	return fmt.Sprintf("InterpolationMethod(%d)", int(m))
}

// MinPoints is the smallest number of simulated wavelengths the method can fit.
func (m InterpolationMethod) MinPoints() int {
	if m == CSpline {
		return 3
	}
	return 2
}

func (m *InterpolationMethod) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "linear":
		*m = Linear
	case "cspline":
		*m = CSpline
	default:
		return fmt.Errorf("unknown interpolation method %q", text)
	}
	return nil
}

type SampleParameters struct {
	Shape                string  // FlatPlate or Cylinder
	Width                float64 // [m]
	Height               float64 // [m]
	Thickness            float64 // [m]
	Radius               float64 // [m]
	Axis                 string  // cylinder axis, the up axis when empty
	Material             string
	NumberDensity        float64 // [Å^-3]
	TotalScatterXSection float64 // [barn]
	AbsorbXSection       float64 // [barn] at 1.7982 Å
	Environment          string
}

// BankParameters describes a rectangular block of detectors on a sphere of radius L2.
type BankParameters struct {
	L2           float64 // [m]
	MinLatitude  float64 // [deg]
	MaxLatitude  float64 // [deg]
	Rows         int
	MinLongitude float64 // [deg]
	MaxLongitude float64 // [deg]
	Columns      int
}

type InstrumentParameters struct {
	L1              float64 // [m]
	UpAxis          string
	BeamAxis        string
	Banks           []BankParameters
	Monitors        int
	MaskedDetectors []int
	WavelengthMin   float64 // [Å]
	WavelengthMax   float64 // [Å]
	WavelengthBins  int
}

type Parameters struct {
	NumberOfScatterings      int
	NeutronPathsSingle       int
	NeutronPathsMultiple     int
	Seed                     int64
	NumberOfWavelengthPoints int // every bin when zero
	SparseInstrument         bool
	DetectorRows             int
	DetectorColumns          int
	InterpolationMethod      InterpolationMethod
	EMode                    string
	NormalizeSigmaToSQ       bool
	SQFile                   string
	SigmaSSFile              string
	MakeDir                  bool

	Sample     SampleParameters
	Instrument InstrumentParameters

	_threads int
}

func (p *Parameters) Threads() int {
	return p._threads
}

func (p *Parameters) SetThreads(threads int) {
	p._threads = threads
}

type Config struct {
	OutputDir  string
	InputUnits []string
	Runs       map[string]Parameters
	Parameters

	name string
	meta toml.MetaData
}

// internal units
var defaultValues = map[string]any{
	"NumberOfScatterings":       2,
	"NeutronPathsSingle":        1000,
	"NeutronPathsMultiple":      1000,
	"Seed":                      int64(123456789),
	"DetectorRows":              5,
	"DetectorColumns":           10,
	"InterpolationMethod":       Linear,
	"EMode":                     "Elastic",
	"MakeDir":                   true,
	"Sample.Shape":              "FlatPlate",
	"Sample.Width":              0.05,  // [m]
	"Sample.Height":             0.05,  // [m]
	"Sample.Thickness":          0.001, // [m]
	"Sample.Radius":             0.005, // [m]
	"Instrument.L1":             10.,   // [m]
	"Instrument.UpAxis":         "Y",
	"Instrument.BeamAxis":       "Z",
	"Instrument.WavelengthMin":  1., // [Å]
	"Instrument.WavelengthMax":  5., // [Å]
	"Instrument.WavelengthBins": 100,
}

var valueUnits = map[string][]UnitElement{
	"Sample.Width":             lengthUnit,
	"Sample.Height":            lengthUnit,
	"Sample.Thickness":         lengthUnit,
	"Sample.Radius":            lengthUnit,
	"Instrument.L1":            lengthUnit,
	"Instrument.WavelengthMin": wavelengthUnit,
	"Instrument.WavelengthMax": wavelengthUnit,
}

func LoadConfig(configFileName string) (*Config, error) {
	config := Config{name: utils.GetFilename(configFileName)}
	meta, err := toml.DecodeFile(configFileName+".toml", &config)
	if err != nil {
		return nil, fmt.Errorf("while decoding %s.toml: %w", configFileName, err)
	}
	config.meta = meta
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		glog.Warningf("ignoring unknown keys: %v", undecoded)
	}

	var unitsConflict []string
	config.InputUnits, unitsConflict = checkUnits(config.InputUnits)
	if len(unitsConflict) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnitConflict, unitsConflict)
	}
	return &config, nil
}

// RunNames lists the runs in natural order. A file without [Runs] tables is a
// single run named after the file.
func (c *Config) RunNames() []string {
	if len(c.Runs) == 0 {
		return []string{c.name}
	}
	names := make([]string, 0, len(c.Runs))
	for name := range c.Runs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return natsort.Compare(names[i], names[j]) })
	return names
}

func fieldByPath(v reflect.Value, path string) reflect.Value {
	for _, name := range strings.Split(path, ".") {
		v = v.FieldByName(name)
	}
	return v
}

// overlay copies into dst every leaf of src defined in the file under prefix
// and reports their dotted paths.
func (c *Config) overlay(dst, src reflect.Value, prefix, path []string) (defined []string) {
	t := src.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := append(append([]string{}, prefix...), field.Name)
		local := append(append([]string{}, path...), field.Name)
		if field.Type.Kind() == reflect.Struct {
			defined = append(defined, c.overlay(dst.Field(i), src.Field(i), key, local)...)
			continue
		}
		if c.meta.IsDefined(key...) {
			dst.Field(i).Set(src.Field(i))
			defined = append(defined, strings.Join(local, "."))
		}
	}
	return defined
}

/*
field value priority:
1. run
2. global
3. default
*/

// RunParameters merges the named run over the global section and the
// defaults, converts lengths to internal units and validates the result.
func (c *Config) RunParameters(name string) (Parameters, error) {
	var p Parameters
	pReflect := reflect.ValueOf(&p).Elem()
	for path, value := range defaultValues {
		fieldByPath(pReflect, path).Set(reflect.ValueOf(value))
	}

	defined := c.overlay(pReflect, reflect.ValueOf(c.Parameters), nil, nil)
	if run, some := c.Runs[name]; some {
		defined = append(defined, c.overlay(pReflect, reflect.ValueOf(run), []string{"Runs", name}, nil)...)
	} else if len(c.Runs) > 0 {
		return p, fmt.Errorf("%w: run %q not found", ErrNoRuns, name)
	}

	p.toInternal(defined, c.InputUnits)
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("while validating run %s: %w", name, err)
	}
	return p, nil
}

func (p *Parameters) toInternal(definedFields, units []string) {
	pReflect := reflect.ValueOf(p).Elem()
	for _, path := range definedFields {
		classes, some := valueUnits[path]
		if !some {
			continue
		}
		field := fieldByPath(pReflect, path)
		if field.CanFloat() {
			field.SetFloat(Convert(field.Float(), classes, units, true))
		}
	}
	if slices.Contains(definedFields, "Instrument.Banks") {
		p.Instrument.Banks = slices.Clone(p.Instrument.Banks)
		for i := range p.Instrument.Banks {
			p.Instrument.Banks[i].L2 = Convert(p.Instrument.Banks[i].L2, lengthUnit, units, true)
		}
	}
}

// Validate reports every configuration problem found before a run starts.
func (p *Parameters) Validate() error {
	var errs []error
	if p.EMode != "Elastic" {
		errs = append(errs, fmt.Errorf("%w: EMode %q", ErrInelastic, p.EMode))
	}
	if p.NumberOfScatterings < 1 || p.NumberOfScatterings > MaxScatterings {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrScatterings, p.NumberOfScatterings))
	}
	if p.NeutronPathsSingle <= 0 || p.NeutronPathsMultiple <= 0 {
		errs = append(errs, fmt.Errorf("%w: single %d, multiple %d", ErrPathCount, p.NeutronPathsSingle, p.NeutronPathsMultiple))
	}
	if p.SparseInstrument && (p.DetectorRows < 3 || p.DetectorColumns < 2) {
		errs = append(errs, fmt.Errorf("%w: got %dx%d", ErrSparseGrid, p.DetectorRows, p.DetectorColumns))
	}
	if p.NumberOfWavelengthPoints != 0 && p.NumberOfWavelengthPoints < p.InterpolationMethod.MinPoints() {
		errs = append(errs, fmt.Errorf("%w: %s needs %d, got %d",
			ErrWavelengthPoints, p.InterpolationMethod, p.InterpolationMethod.MinPoints(), p.NumberOfWavelengthPoints))
	}
	in := p.Instrument
	if in.WavelengthBins < 1 || in.WavelengthMin <= 0 || (in.WavelengthBins > 1 && in.WavelengthMax <= in.WavelengthMin) {
		errs = append(errs, fmt.Errorf("%w: [%g, %g] in %d bins", ErrWavelengthAxis, in.WavelengthMin, in.WavelengthMax, in.WavelengthBins))
	}
	if p.SigmaSSFile != "" && p.NormalizeSigmaToSQ {
		errs = append(errs, ErrAmbiguousSigma)
	}
	return errors.Join(errs...)
}
