package instrument

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/discus/internal/geometry"
)

func TestAnglesRoundTrip(t *testing.T) {
	frame := geometry.DefaultFrame()
	for _, tc := range []struct{ lat, lon float64 }{
		{0, 0}, {0.3, -1.2}, {-0.7, 2.5}, {1.2, 0.4},
	} {
		p := PositionFromAngles(frame, 2.5, tc.lat, tc.lon)
		if math.Abs(r3.Norm(p)-2.5) > 1e-12 {
			t.Errorf("|p| = %g, want 2.5", r3.Norm(p))
		}
		lat, lon := GeographicalAngles(frame, p)
		if math.Abs(lat-tc.lat) > 1e-12 || math.Abs(lon-tc.lon) > 1e-12 {
			t.Errorf("GeographicalAngles = %g, %g, want %g, %g", lat, lon, tc.lat, tc.lon)
		}
	}
}

func TestScatteringAngle(t *testing.T) {
	in := &Instrument{Frame: geometry.DefaultFrame(), Source: r3.Vec{Z: -10}}
	p := PositionFromAngles(in.Frame, 1, 0, 0.6)
	if got := in.ScatteringAngle(p); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("ScatteringAngle = %g, want 0.6", got)
	}
}

func TestValidate(t *testing.T) {
	in := &Instrument{Frame: geometry.DefaultFrame(), Source: r3.Vec{Z: -10}, Detectors: []Detector{{ID: 1, Monitor: true}}}
	if err := in.Validate(); !errors.Is(err, ErrNoDetectors) {
		t.Errorf("Validate() with only monitors = %v", err)
	}
	in.Source = r3.Vec{}
	if err := in.Validate(); !errors.Is(err, ErrSourceAtSample) {
		t.Errorf("Validate() with source at origin = %v", err)
	}
}

func TestSparseInstrumentCoversExtremes(t *testing.T) {
	frame := geometry.DefaultFrame()
	in := &Instrument{Frame: frame, Source: r3.Vec{Z: -10}}
	for i, lat := range []float64{-0.2, -0.1, 0, 0.1, 0.2} {
		in.Detectors = append(in.Detectors, Detector{ID: i + 1, Position: PositionFromAngles(frame, 2, lat, 0.5)})
	}
	in.Detectors = append(in.Detectors, Detector{ID: 99, Position: r3.Vec{Z: 5}, Monitor: true})

	sparse, grid, err := in.SparseInstrument(3, 2)
	if err != nil {
		t.Fatalf("SparseInstrument: %v", err)
	}
	if len(sparse.Detectors) != 6 {
		t.Fatalf("got %d sparse detectors, want 6", len(sparse.Detectors))
	}
	approx := cmpopts.EquateApprox(0, 1e-12)
	lats := []float64{grid.Latitude(0), grid.Latitude(1), grid.Latitude(2)}
	if diff := cmp.Diff(lats, []float64{-0.2, 0, 0.2}, approx); diff != "" {
		t.Errorf("grid latitudes; diff (-got +want)\n%s", diff)
	}
	for _, d := range sparse.Detectors {
		lat, lon := GeographicalAngles(frame, d.Position)
		if math.Abs(lon-0.5) > 1e-12 || lat < -0.2-1e-12 || lat > 0.2+1e-12 {
			t.Errorf("sparse detector %d at lat %g lon %g", d.ID, lat, lon)
		}
		if math.Abs(r3.Norm(d.Position)-2) > 1e-12 {
			t.Errorf("sparse detector %d at distance %g, want 2", d.ID, r3.Norm(d.Position))
		}
	}
}

func TestNearestNeighboursWeights(t *testing.T) {
	grid, err := NewDetectorGrid(0, 2, 3, 0, 1, 2)
	if err != nil {
		t.Fatalf("NewDetectorGrid: %v", err)
	}
	indices, weights := grid.NearestNeighbours(1.5, 0.25)
	if diff := cmp.Diff(indices, [4]int{2, 3, 4, 5}); diff != "" {
		t.Errorf("indices; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(weights, [4]float64{0.375, 0.125, 0.375, 0.125}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("weights; diff (-got +want)\n%s", diff)
	}

	// Outside the grid the edge rows are used.
	indices, weights = grid.NearestNeighbours(5, -1)
	if indices[2] != grid.Index(2, 0) || math.Abs(weights[2]-1) > 1e-12 {
		t.Errorf("clamped neighbours = %v %v", indices, weights)
	}
}

func TestInterpolateBetweenLatitudes(t *testing.T) {
	grid, err := NewDetectorGrid(-0.2, 0.2, 3, 0.5, 0.5, 2)
	if err != nil {
		t.Fatalf("NewDetectorGrid: %v", err)
	}
	histograms := [][]float64{
		{1, 10}, {1, 10},
		{2, 20}, {2, 20},
		{4, 40}, {4, 40},
	}
	dst := make([]float64, 2)
	for _, lat := range []float64{-0.2, -0.1, 0, 0.1, 0.2} {
		grid.Interpolate(lat, 0.5, histograms, dst)
		lower, upper := 1., 2.
		if lat > 0 {
			lower, upper = 2., 4.
		}
		if dst[0] < lower-1e-12 || dst[0] > upper+1e-12 {
			t.Errorf("Interpolate(%g)[0] = %g outside [%g, %g]", lat, dst[0], lower, upper)
		}
		if math.Abs(dst[1]-10*dst[0]) > 1e-9 {
			t.Errorf("Interpolate(%g) = %v, bins not combined with equal weights", lat, dst)
		}
	}
	grid.Interpolate(-0.1, 0.5, histograms, dst)
	if math.Abs(dst[0]-1.5) > 1e-12 {
		t.Errorf("Interpolate(-0.1)[0] = %g, want 1.5", dst[0])
	}
}

func TestInterpolateSinglePointGrid(t *testing.T) {
	grid, err := NewDetectorGrid(0.1, 0.1, 1, 0.2, 0.2, 1)
	if err != nil {
		t.Fatalf("NewDetectorGrid: %v", err)
	}
	dst := make([]float64, 3)
	grid.Interpolate(3, -3, [][]float64{{7, 8, 9}}, dst)
	if diff := cmp.Diff(dst, []float64{7, 8, 9}); diff != "" {
		t.Errorf("flat copy; diff (-got +want)\n%s", diff)
	}
	if _, err := NewDetectorGrid(0, 1, 0, 0, 1, 2); !errors.Is(err, ErrEmptyGrid) {
		t.Errorf("NewDetectorGrid with zero rows = %v", err)
	}
}
