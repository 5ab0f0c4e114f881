package instrument

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/wildstyl3r/discus/internal/geometry"
	"github.com/wildstyl3r/discus/internal/utils"
)

var (
	ErrNoDetectors    = errors.New("instrument has no usable detectors")
	ErrSourceAtSample = errors.New("source coincides with the sample position")
)

type Detector struct {
	ID       int
	Position r3.Vec // relative to the sample at the origin
	Monitor  bool
	Masked   bool
}

// Instrument places the source and detectors around a sample at the origin.
type Instrument struct {
	Frame     geometry.ReferenceFrame
	Source    r3.Vec
	Detectors []Detector
}

func (in *Instrument) Validate() error {
	if err := in.Frame.Validate(); err != nil {
		return err
	}
	if r3.Norm(in.Source) == 0 {
		return ErrSourceAtSample
	}
	for i := range in.Detectors {
		if !in.Detectors[i].Monitor {
			return nil
		}
	}
	return ErrNoDetectors
}

func (in *Instrument) DetectorPosition(i int) r3.Vec {
	return in.Detectors[i].Position
}

func (in *Instrument) SourcePosition() r3.Vec {
	return in.Source
}

// PositionFromAngles returns the point at distance r with the given latitude
// (elevation above the horizontal plane) and longitude (azimuth from the beam).
func PositionFromAngles(frame geometry.ReferenceFrame, r, lat, lon float64) r3.Vec {
	return frame.Compose(r*math.Sin(lat), r*math.Cos(lat)*math.Cos(lon), r*math.Cos(lat)*math.Sin(lon))
}

func GeographicalAngles(frame geometry.ReferenceFrame, p r3.Vec) (lat, lon float64) {
	up, beam, horizontal := frame.Decompose(p)
	lat = math.Atan2(up, math.Hypot(horizontal, beam))
	lon = math.Atan2(horizontal, beam)
	return
}

// ScatteringAngle is the angle between the beam and the direction to p.
func (in *Instrument) ScatteringAngle(p r3.Vec) float64 {
	return math.Acos(utils.Clamp(r3.Cos(in.Frame.BeamDirection(), p), -1, 1))
}

func (in *Instrument) usable() []Detector {
	var ds []Detector
	for _, d := range in.Detectors {
		if !d.Monitor {
			ds = append(ds, d)
		}
	}
	return ds
}

// ExtremeAngles spans the latitudes and longitudes of all non-monitor detectors.
func (in *Instrument) ExtremeAngles() (minLat, maxLat, minLon, maxLon float64) {
	ds := in.usable()
	lats := make([]float64, len(ds))
	lons := make([]float64, len(ds))
	for i := range ds {
		lats[i], lons[i] = GeographicalAngles(in.Frame, ds[i].Position)
	}
	return floats.Min(lats), floats.Max(lats), floats.Min(lons), floats.Max(lons)
}

func (in *Instrument) MeanL2() float64 {
	ds := in.usable()
	l2 := make([]float64, len(ds))
	for i := range ds {
		l2[i] = r3.Norm(ds[i].Position)
	}
	return stat.Mean(l2, nil)
}

// SparseInstrument builds a coarse rows x columns grid of synthetic detectors
// spanning the angular extent of the real ones, at their mean distance.
func (in *Instrument) SparseInstrument(rows, columns int) (*Instrument, *DetectorGrid, error) {
	if len(in.usable()) == 0 {
		return nil, nil, ErrNoDetectors
	}
	minLat, maxLat, minLon, maxLon := in.ExtremeAngles()
	grid, err := NewDetectorGrid(minLat, maxLat, rows, minLon, maxLon, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("while building sparse detector grid: %w", err)
	}
	r := in.MeanL2()
	sparse := &Instrument{
		Frame:     in.Frame,
		Source:    in.Source,
		Detectors: make([]Detector, grid.Len()),
	}
	for row := range rows {
		for col := range columns {
			i := grid.Index(row, col)
			sparse.Detectors[i] = Detector{
				ID:       i + 1,
				Position: PositionFromAngles(in.Frame, r, grid.Latitude(row), grid.Longitude(col)),
			}
		}
	}
	return sparse, grid, nil
}
