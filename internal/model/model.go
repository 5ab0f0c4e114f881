package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/wildstyl3r/discus/internal/config"
	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/instrument"
	"github.com/wildstyl3r/discus/internal/sample"
	"github.com/wildstyl3r/discus/internal/xsection"
)

var ErrCancelled = errors.New("simulation cancelled")

// ProgressFunc receives the number of simulated (spectrum, wavelength) points
// so far. It is called from a single goroutine.
type ProgressFunc func(done, total int)

type Model struct {
	Parameters    config.Parameters
	Sample        *sample.Sample
	CrossSections *xsection.Model
	Workspace     *Workspace
	Progress      ProgressFunc
}

// NewModel builds the sample, instrument and cross sections of a run and
// reports every configuration problem at once.
func NewModel(parameters config.Parameters) (*Model, error) {
	m := &Model{Parameters: parameters}
	errs := []error{parameters.Validate()}

	frame, err := parameters.Frame()
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}
	if m.Sample, err = parameters.BuildSample(frame); err != nil {
		errs = append(errs, fmt.Errorf("while building sample: %w", err))
	}
	in, err := parameters.BuildInstrument(frame)
	if err != nil {
		errs = append(errs, fmt.Errorf("while building instrument: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	wavelengths := parameters.Wavelengths()
	m.Workspace = NewWorkspace(in, wavelengths)
	if m.CrossSections, err = parameters.BuildCrossSections(m.Sample.Material, wavelengths); err != nil {
		return nil, fmt.Errorf("while loading cross sections: %w", err)
	}

	total, _ := m.CrossSections.TotalCrossSection(constants.TwoPi/wavelengths[0], false)
	glog.Infof("mean free path at %g Å: %g m", wavelengths[0], 1/m.Sample.Material.Attenuation(total))
	return m, nil
}

func (m *Model) validate() error {
	errs := []error{m.Parameters.Validate(), m.Sample.Validate(), m.Workspace.Instrument.Validate(), m.Workspace.validate()}
	if m.CrossSections == nil || m.CrossSections.SQ == nil {
		errs = append(errs, errors.New("no S(Q) table"))
	}
	return errors.Join(errs...)
}

type progressEvent struct {
	points int
	stats  *Stats
}

// Run simulates every scatter order for every spectrum. On cancellation the
// spectra finished so far are returned together with ErrCancelled.
func (m *Model) Run(ctx context.Context) (*Result, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	ws := m.Workspace
	var grid *instrument.DetectorGrid
	if m.Parameters.SparseInstrument {
		var err error
		if ws, grid, err = m.sparseWorkspace(); err != nil {
			return nil, err
		}
	}

	res := newResult(ws, m.Parameters.NumberOfScatterings)
	done := make([]bool, len(ws.Spectra))
	runErr := m.simulate(ctx, ws, res, done)
	if runErr != nil && !errors.Is(runErr, ErrCancelled) {
		return nil, runErr
	}

	if grid != nil {
		var err error
		if res, err = m.interpolateSparse(ws, grid, res, done); err != nil {
			return nil, err
		}
	}
	res.sumMultipleOrders()
	res.Stats.Log()
	return res, runErr
}

// simulate fills res for every simulated spectrum of ws and marks the
// spectra that completed in done.
func (m *Model) simulate(ctx context.Context, ws *Workspace, res *Result, done []bool) error {
	indices := make([][]int, len(ws.Spectra))
	total, planned := 0, 0
	for s, spectrum := range ws.Spectra {
		if !ws.simulated(s) {
			continue
		}
		indices[s] = SimulationIndices(len(spectrum.Wavelengths), m.Parameters.NumberOfWavelengthPoints)
		total += len(indices[s])
		planned++
	}
	glog.Infof("simulating %d wavelength points in %d spectra", total, planned)

	var stateWg sync.WaitGroup
	collflow := make(chan progressEvent, 1024)
	stateWg.Add(1)
	go func() {
		defer stateWg.Done()
		done := 0
		for event := range collflow {
			if event.stats != nil {
				res.Stats.Merge(event.stats)
			}
			if event.points > 0 {
				done += event.points
				if m.Progress != nil {
					m.Progress(done, total)
				}
			}
		}
	}()

	var finished atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, m.Parameters.Threads()))
	for s := range ws.Spectra {
		if indices[s] == nil {
			continue
		}
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			stats := newStats()
			defer func() { collflow <- progressEvent{stats: stats} }()
			if err := m.simulateSpectrum(ws, s, indices[s], res, stats, collflow); err != nil {
				return err
			}
			done[s] = true
			finished.Add(1)
			return nil
		})
	}
	err := eg.Wait()
	close(collflow)
	stateWg.Wait()

	switch {
	case ctx.Err() != nil && finished.Load() < int64(planned):
		return fmt.Errorf("%w after %d of %d spectra: %w", ErrCancelled, finished.Load(), planned, ctx.Err())
	case err != nil:
		return err
	}
	return nil
}

func (m *Model) simulateSpectrum(ws *Workspace, s int, simulated []int, res *Result, stats *Stats, collflow chan<- progressEvent) error {
	spectrum := ws.Spectra[s]
	detectorPosition := ws.Instrument.DetectorPosition(spectrum.Detector)
	t := &tracer{
		sample: m.Sample,
		xs:     m.CrossSections,
		frame:  ws.Instrument.Frame,
		source: ws.Instrument.SourcePosition(),
		rng:    rand.New(rand.NewSource(uint64(m.Parameters.Seed + int64(spectrum.Number)))),
		stats:  stats,
	}

	for _, bin := range simulated {
		k := constants.TwoPi / spectrum.Wavelengths[bin]
		total, scattering := m.CrossSections.TotalCrossSection(k, false)
		for order := 1; order <= len(res.Orders); order++ {
			nPaths := m.Parameters.NeutronPathsMultiple
			if order == 1 {
				nPaths = m.Parameters.NeutronPathsSingle
			}
			weight, err := t.simulatePaths(nPaths, order, k, total, scattering, detectorPosition, false)
			if err != nil {
				return fmt.Errorf("while simulating spectrum %d, scatter order %d: %w", spectrum.Number, order, err)
			}
			res.Orders[order-1].Values[s][bin] = weight
		}

		total, scattering = m.CrossSections.TotalCrossSection(k, true)
		weight, err := t.simulatePaths(m.Parameters.NeutronPathsSingle, 1, k, total, scattering, detectorPosition, true)
		if err != nil {
			return fmt.Errorf("while simulating spectrum %d without absorption: %w", spectrum.Number, err)
		}
		res.NoAbsorption.Values[s][bin] = weight
		collflow <- progressEvent{points: 1}
	}

	for _, output := range res.simulatedOutputs() {
		if err := InterpolateWavelengths(m.Parameters.InterpolationMethod, spectrum.Wavelengths, output.Values[s], simulated); err != nil {
			return fmt.Errorf("while interpolating spectrum %d: %w", spectrum.Number, err)
		}
	}
	glog.V(1).Infof("spectrum %d: %d of %d bins simulated", spectrum.Number, len(simulated), len(spectrum.Wavelengths))
	return nil
}

// sparseWorkspace replaces the real detectors by a coarse angular grid.
// Sparse spectra are numbered from 1 in grid order.
func (m *Model) sparseWorkspace() (*Workspace, *instrument.DetectorGrid, error) {
	sparse, grid, err := m.Workspace.Instrument.SparseInstrument(m.Parameters.DetectorRows, m.Parameters.DetectorColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("while building sparse instrument: %w", err)
	}
	ws := NewWorkspace(sparse, m.Workspace.commonAxis())
	glog.Infof("sparse instrument: %dx%d grid, latitude step %g rad, longitude step %g rad",
		grid.Rows, grid.Columns, grid.LatStep, grid.LonStep)
	return ws, grid, nil
}

// interpolateSparse maps results of the sparse grid back onto every real
// detector. A detector whose weighted grid neighbours did not all complete
// is left at zero.
func (m *Model) interpolateSparse(sparse *Workspace, grid *instrument.DetectorGrid, sparseRes *Result, done []bool) (*Result, error) {
	target := m.Workspace
	res := newResult(target, len(sparseRes.Orders))
	res.Stats = sparseRes.Stats

	axis := sparse.Spectra[0].Wavelengths
	histogram := make([]float64, len(axis))
	sparseOutputs, outputs := sparseRes.simulatedOutputs(), res.simulatedOutputs()
	for s, spectrum := range target.Spectra {
		if !target.simulated(s) {
			continue
		}
		lat, lon := instrument.GeographicalAngles(target.Instrument.Frame, target.Instrument.DetectorPosition(spectrum.Detector))
		if !neighboursDone(grid, lat, lon, done) {
			continue
		}
		for i := range outputs {
			grid.Interpolate(lat, lon, sparseOutputs[i].Values, histogram)
			if err := resampleAxis(axis, histogram, spectrum.Wavelengths, outputs[i].Values[s]); err != nil {
				return nil, fmt.Errorf("while interpolating spectrum %d: %w", spectrum.Number, err)
			}
		}
	}
	return res, nil
}

func neighboursDone(grid *instrument.DetectorGrid, lat, lon float64, done []bool) bool {
	if grid.Len() == 1 {
		return done[0]
	}
	indices, weights := grid.NearestNeighbours(lat, lon)
	for n, i := range indices {
		if weights[n] != 0 && !done[i] {
			return false
		}
	}
	return true
}
