package config

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/geometry"
	"github.com/wildstyl3r/discus/internal/instrument"
	"github.com/wildstyl3r/discus/internal/sample"
	"github.com/wildstyl3r/discus/internal/utils"
	"github.com/wildstyl3r/discus/internal/xsection"
)

var ErrUnknownShape = errors.New("unknown sample shape")

// number of wavenumbers in a σs(k) table normalised to S(Q)
const sigmaGridPoints = 64

func span(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func (p *Parameters) Frame() (geometry.ReferenceFrame, error) {
	up, err := geometry.ParseAxis(p.Instrument.UpAxis)
	if err != nil {
		return geometry.ReferenceFrame{}, fmt.Errorf("while parsing up axis: %w", err)
	}
	beam, err := geometry.ParseAxis(p.Instrument.BeamAxis)
	if err != nil {
		return geometry.ReferenceFrame{}, fmt.Errorf("while parsing beam axis: %w", err)
	}
	frame := geometry.ReferenceFrame{Up: up, AlongBeam: beam, Horizontal: 3 - up - beam}
	return frame, frame.Validate()
}

func (p *Parameters) material() (sample.Material, error) {
	sp := p.Sample
	m := sample.Material{Name: "custom"}
	if sp.Material != "" {
		var err error
		if m, err = sample.LookupMaterial(sp.Material); err != nil {
			return m, err
		}
	} else if sp.NumberDensity == 0 {
		return m, fmt.Errorf("%w: neither Material nor NumberDensity given", sample.ErrUnknownMaterial)
	}
	if sp.NumberDensity != 0 {
		m.NumberDensity = sp.NumberDensity
	}
	if sp.TotalScatterXSection != 0 {
		m.TotalScatterXSection = sp.TotalScatterXSection
	}
	if sp.AbsorbXSection != 0 {
		m.AbsorbXSectionRef = sp.AbsorbXSection
	}
	return m, nil
}

// BuildSample places the configured shape at the origin.
func (p *Parameters) BuildSample(frame geometry.ReferenceFrame) (*sample.Sample, error) {
	m, err := p.material()
	if err != nil {
		return nil, err
	}
	s := &sample.Sample{Material: m, Environment: p.Sample.Environment}
	sp := p.Sample
	switch sp.Shape {
	case "FlatPlate":
		s.Shape = geometry.NewFlatPlate(frame, r3.Vec{}, sp.Width, sp.Height, sp.Thickness)
	case "Cylinder":
		axis := frame.Up
		if sp.Axis != "" {
			if axis, err = geometry.ParseAxis(sp.Axis); err != nil {
				return nil, fmt.Errorf("while parsing cylinder axis: %w", err)
			}
		}
		s.Shape = geometry.Cylinder{Axis: axis, Radius: sp.Radius, Height: sp.Height}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, sp.Shape)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// BuildInstrument lays out the monitors on the beam axis followed by the
// detector banks. Detector IDs start at 1 in that order.
func (p *Parameters) BuildInstrument(frame geometry.ReferenceFrame) (*instrument.Instrument, error) {
	ip := p.Instrument
	in := &instrument.Instrument{
		Frame:  frame,
		Source: frame.Compose(0, -ip.L1, 0),
	}
	for i := range ip.Monitors {
		in.Detectors = append(in.Detectors, instrument.Detector{
			ID:       len(in.Detectors) + 1,
			Position: frame.Compose(0, -ip.L1/float64(i+2), 0),
			Monitor:  true,
		})
	}
	for _, bank := range ip.Banks {
		if bank.Rows < 1 || bank.Columns < 1 {
			return nil, fmt.Errorf("%w: bank of %dx%d detectors", instrument.ErrNoDetectors, bank.Rows, bank.Columns)
		}
		lats := span(bank.MinLatitude*math.Pi/180, bank.MaxLatitude*math.Pi/180, bank.Rows)
		lons := span(bank.MinLongitude*math.Pi/180, bank.MaxLongitude*math.Pi/180, bank.Columns)
		for _, lat := range lats {
			for _, lon := range lons {
				id := len(in.Detectors) + 1
				in.Detectors = append(in.Detectors, instrument.Detector{
					ID:       id,
					Position: instrument.PositionFromAngles(frame, bank.L2, lat, lon),
					Masked:   slices.Contains(ip.MaskedDetectors, id),
				})
			}
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Wavelengths returns the bin centres of the wavelength axis [Å].
func (p *Parameters) Wavelengths() []float64 {
	ip := p.Instrument
	return span(ip.WavelengthMin, ip.WavelengthMax, ip.WavelengthBins)
}

func readTable(filename string) (*xsection.Table, error) {
	pairs, err := utils.ReadFloatPairs(filename)
	if err != nil {
		return nil, err
	}
	table, err := xsection.NewTable(utils.Columns(pairs))
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("%s: %d points", filename, table.Len())
	return table, nil
}

// BuildCrossSections loads S(Q) and the optional σs(k) table. Without an
// S(Q) file the sample scatters isotropically up to the largest Q reachable
// from the wavelength axis.
func (p *Parameters) BuildCrossSections(m sample.Material, wavelengths []float64) (*xsection.Model, error) {
	kMin := constants.TwoPi / floats.Max(wavelengths)
	kMax := constants.TwoPi / floats.Min(wavelengths)
	xs := &xsection.Model{Material: m}

	var err error
	if p.SQFile != "" {
		if xs.SQ, err = readTable(p.SQFile); err != nil {
			return nil, fmt.Errorf("while reading S(Q) from %s: %w", p.SQFile, err)
		}
		if _, qMax := xs.SQ.Domain(); qMax < 2*kMax {
			glog.Warningf("S(Q) ends at Q = %g, below 2k = %g; the last value is used beyond", qMax, 2*kMax)
		}
	} else {
		xs.SQ = xsection.FlatSQ(2 * kMax)
	}

	switch {
	case p.SigmaSSFile != "":
		if xs.SigmaSS, err = readTable(p.SigmaSSFile); err != nil {
			return nil, fmt.Errorf("while reading σs(k) from %s: %w", p.SigmaSSFile, err)
		}
	case p.NormalizeSigmaToSQ:
		ks := xsection.KGrid(kMin, kMax, sigmaGridPoints)
		if xs.SigmaSS, err = xsection.ScatteringXSectionTable(xs.SQ, m.TotalScatterXSection, ks); err != nil {
			return nil, fmt.Errorf("while normalising σs to S(Q): %w", err)
		}
	}
	return xs, nil
}
