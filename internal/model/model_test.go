package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wildstyl3r/discus/internal/config"
	"github.com/wildstyl3r/discus/internal/geometry"
	"github.com/wildstyl3r/discus/internal/instrument"
)

func testParameters(nScatterings, nPaths int) config.Parameters {
	p := config.Parameters{
		NumberOfScatterings:  nScatterings,
		NeutronPathsSingle:   nPaths,
		NeutronPathsMultiple: nPaths,
		Seed:                 123456789,
		EMode:                "Elastic",
		DetectorRows:         3,
		DetectorColumns:      2,
		Instrument: config.InstrumentParameters{
			WavelengthMin:  1,
			WavelengthMax:  3,
			WavelengthBins: 3,
		},
	}
	p.SetThreads(2)
	return p
}

// ring places detectors at the given latitudes and longitudes [rad], 2 m
// from the sample, after a monitor on the beam axis.
func ring(lats, lons []float64) *instrument.Instrument {
	frame := geometry.DefaultFrame()
	in := &instrument.Instrument{
		Frame:     frame,
		Source:    frame.Compose(0, -10, 0),
		Detectors: []instrument.Detector{{ID: 1, Position: frame.Compose(0, -1, 0), Monitor: true}},
	}
	for i := range lats {
		in.Detectors = append(in.Detectors, instrument.Detector{
			ID:       len(in.Detectors) + 1,
			Position: instrument.PositionFromAngles(frame, 2, lats[i], lons[i]),
		})
	}
	return in
}

func newTestModel(t *testing.T, p config.Parameters, in *instrument.Instrument, wavelengths []float64) *Model {
	t.Helper()
	s, xs := nickelPlate(t)
	return &Model{
		Parameters:    p,
		Sample:        s,
		CrossSections: xs,
		Workspace:     NewWorkspace(in, wavelengths),
	}
}

func TestRunOutputs(t *testing.T) {
	in := ring([]float64{0, 0.1}, []float64{0.3, 0.5})
	in.Detectors[2].Masked = true
	m := newTestModel(t, testParameters(3, 500), in, []float64{1, 2})
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var names []string
	for _, output := range res.All() {
		names = append(names, output.Name)
	}
	want := []string{"Scatter_1", "Scatter_2", "Scatter_3", "Scatter_1_NoAbs", "Scatter_2_3_Summed"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("output names mismatch (-want +got):\n%s", diff)
	}

	for _, output := range res.All() {
		for bin := range 2 {
			if v := output.Values[0][bin]; v != 0 {
				t.Errorf("%s: monitor spectrum bin %d = %g, want 0", output.Name, bin, v)
			}
			if v := output.Values[2][bin]; v != 0 {
				t.Errorf("%s: masked spectrum bin %d = %g, want 0", output.Name, bin, v)
			}
			if v := output.Values[1][bin]; !(v > 0) {
				t.Errorf("%s: spectrum 2 bin %d = %g, want positive", output.Name, bin, v)
			}
		}
	}
	for bin := range 2 {
		sum := res.Orders[1].Values[1][bin] + res.Orders[2].Values[1][bin]
		if got := res.Summed.Values[1][bin]; math.Abs(got-sum) > 1e-15 {
			t.Errorf("summed bin %d = %g, want %g", bin, got, sum)
		}
	}
	if res.Stats.IntersectCalls == 0 {
		t.Error("no intersection calls recorded")
	}
}

func TestSingleScatteringHasNoSummedOutput(t *testing.T) {
	m := newTestModel(t, testParameters(1, 100), ring([]float64{0}, []float64{0.3}), []float64{1})
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summed != nil || len(res.All()) != 2 {
		t.Errorf("single scattering run produced %d outputs", len(res.All()))
	}
}

func TestRunIsDeterministic(t *testing.T) {
	in := ring([]float64{-0.1, 0, 0.1, 0.2}, []float64{0.2, 0.4, 0.6, 0.8})
	wavelengths := []float64{1, 1.5, 2}

	p := testParameters(2, 300)
	p.SetThreads(1)
	first, err := newTestModel(t, p, in, wavelengths).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.SetThreads(4)
	second, err := newTestModel(t, p, in, wavelengths).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, output := range first.All() {
		if diff := cmp.Diff(output.Values, second.All()[i].Values); diff != "" {
			t.Errorf("%s differs between thread counts (-1 thread +4 threads):\n%s", output.Name, diff)
		}
	}

	p.Seed++
	third, err := newTestModel(t, p, in, wavelengths).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Equal(first.Orders[1].Values, third.Orders[1].Values) {
		t.Error("changing the seed did not change the double scattering")
	}
}

func TestWavelengthPointsInterpolated(t *testing.T) {
	p := testParameters(1, 2000)
	p.NumberOfWavelengthPoints = 2
	m := newTestModel(t, p, ring([]float64{0}, []float64{0.4}), []float64{1, 3, 5})

	var ticks []int
	m.Progress = func(done, total int) {
		if total != 2 {
			t.Errorf("progress total = %d, want 2", total)
		}
		ticks = append(ticks, done)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, ticks); diff != "" {
		t.Errorf("progress ticks mismatch (-want +got):\n%s", diff)
	}

	for _, output := range res.All() {
		v := output.Values[1]
		lo, hi := min(v[0], v[2]), max(v[0], v[2])
		if v[1] < lo || v[1] > hi {
			t.Errorf("%s: middle bin %g outside [%g, %g]", output.Name, v[1], lo, hi)
		}
	}
}

func TestSparseInstrumentInterpolation(t *testing.T) {
	lats := []float64{-0.2, -0.1, 0, 0.1, 0.2}
	lons := []float64{0.3, 0.3, 0.3, 0.3, 0.3}
	p := testParameters(1, 1000)
	p.SparseInstrument = true
	p.DetectorRows, p.DetectorColumns = 3, 2
	m := newTestModel(t, p, ring(lats, lons), []float64{1, 2})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Workspace.Spectra) != 6 {
		t.Fatalf("result has %d spectra, want the 6 real ones", len(res.Workspace.Spectra))
	}
	for bin := range 2 {
		// spectra 1 and 3 sit on simulated grid rows, spectrum 2 between them
		bracketLo, middle, bracketHi := res.Orders[0].Values[1][bin], res.Orders[0].Values[2][bin], res.Orders[0].Values[3][bin]
		lo, hi := min(bracketLo, bracketHi), max(bracketLo, bracketHi)
		if middle < lo-1e-15 || middle > hi+1e-15 {
			t.Errorf("bin %d: interpolated %g outside [%g, %g]", bin, middle, lo, hi)
		}
		if !(middle > 0) {
			t.Errorf("bin %d: interpolated value %g, want positive", bin, middle)
		}
	}
}

func TestRunDoubleScatteringOverPlate(t *testing.T) {
	lons := []float64{0.2, 0.35, 0.5, 0.65, 0.8}
	in := ring(make([]float64, len(lons)), lons)
	m := newTestModel(t, testParameters(2, 2000), in, []float64{1, 2, 3})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for s := 1; s < len(in.Detectors); s++ {
		for bin := range 3 {
			single, double := res.Orders[0].Values[s][bin], res.Orders[1].Values[s][bin]
			if !(double > 0) || double >= single {
				t.Errorf("spectrum %d bin %d: double scattering %g, single %g", s+1, bin, double, single)
			}
			if got := res.Summed.Values[s][bin]; got != double {
				t.Errorf("spectrum %d bin %d: summed %g, want %g", s+1, bin, got, double)
			}
		}
	}
}

func TestSparseRunCancelledMidway(t *testing.T) {
	lats := []float64{-0.2, -0.1, 0, 0.1, 0.2}
	lons := []float64{0.3, 0.3, 0.3, 0.3, 0.3}
	p := testParameters(2, 20000)
	p.SparseInstrument = true
	p.DetectorRows, p.DetectorColumns = 3, 2
	p.SetThreads(1)
	wavelengths := []float64{1, 2}

	full, err := newTestModel(t, p, ring(lats, lons), wavelengths).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := newTestModel(t, p, ring(lats, lons), wavelengths)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Progress = func(done, total int) { cancel() }
	partial, err := m.Run(ctx)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}

	zero := make([]float64, len(wavelengths))
	kept := 0
	for i, output := range partial.All() {
		for s := 1; s < len(partial.Workspace.Spectra); s++ {
			got := output.Values[s]
			if cmp.Equal(got, zero) {
				continue
			}
			kept++
			if diff := cmp.Diff(full.All()[i].Values[s], got); diff != "" {
				t.Errorf("%s: spectrum %d differs from the complete run (-full +partial):\n%s", output.Name, s+1, diff)
			}
		}
	}
	if kept == len(partial.All())*(len(partial.Workspace.Spectra)-1) {
		t.Error("every spectrum was interpolated although the run was cancelled")
	}
}

func TestRunCancelled(t *testing.T) {
	m := newTestModel(t, testParameters(2, 100), ring([]float64{0, 0.1}, []float64{0.3, 0.3}), []float64{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := m.Run(ctx)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want ErrCancelled wrapping context.Canceled", err)
	}
	if res == nil {
		t.Fatal("Run() returned no partial result")
	}
	if v := res.Orders[0].Values[1][0]; v != 0 {
		t.Errorf("cancelled run simulated spectrum 2: %g", v)
	}
}

func TestRunRejectsBadConfiguration(t *testing.T) {
	p := testParameters(6, 0)
	p.EMode = "Direct"
	m := newTestModel(t, p, ring([]float64{0}, []float64{0.3}), []float64{1})
	m.Sample.Environment = "cryostat"
	_, err := m.Run(context.Background())
	for _, want := range []error{config.ErrInelastic, config.ErrScatterings, config.ErrPathCount} {
		if !errors.Is(err, want) {
			t.Errorf("Run() = %v, want it to wrap %v", err, want)
		}
	}
}
