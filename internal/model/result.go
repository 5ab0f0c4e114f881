package model

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/wildstyl3r/discus/internal/instrument"
	"github.com/wildstyl3r/discus/internal/utils"
)

type Spectrum struct {
	Number      int       // seeds the random stream of the spectrum
	Detector    int       // index into the instrument's detectors
	Wavelengths []float64 // bin centres [Å], increasing
}

// Workspace pairs an instrument with one spectrum per detector.
type Workspace struct {
	Instrument *instrument.Instrument
	Spectra    []Spectrum
}

// NewWorkspace gives every detector a spectrum on the same wavelength axis,
// numbered by detector ID.
func NewWorkspace(in *instrument.Instrument, wavelengths []float64) *Workspace {
	ws := &Workspace{Instrument: in, Spectra: make([]Spectrum, len(in.Detectors))}
	for i, d := range in.Detectors {
		ws.Spectra[i] = Spectrum{Number: d.ID, Detector: i, Wavelengths: wavelengths}
	}
	return ws
}

// simulated reports whether spectrum s belongs to a real, unmasked detector.
func (ws *Workspace) simulated(s int) bool {
	d := ws.Instrument.Detectors[ws.Spectra[s].Detector]
	return !d.Monitor && !d.Masked
}

func (ws *Workspace) validate() error {
	for _, spectrum := range ws.Spectra {
		if len(spectrum.Wavelengths) == 0 || spectrum.Wavelengths[0] <= 0 ||
			!slices.IsSorted(spectrum.Wavelengths) || hasDuplicates(spectrum.Wavelengths) {
			return fmt.Errorf("spectrum %d: wavelengths must be positive and increasing", spectrum.Number)
		}
		if spectrum.Detector < 0 || spectrum.Detector >= len(ws.Instrument.Detectors) {
			return fmt.Errorf("spectrum %d: no detector %d", spectrum.Number, spectrum.Detector)
		}
	}
	return nil
}

func hasDuplicates(sorted []float64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}

// commonAxis is the wavelength axis of the sparse workspace: the real axis
// when every detector shares it, otherwise an even span of the whole range.
func (ws *Workspace) commonAxis() []float64 {
	var axis []float64
	shared := true
	lo, hi, n := 0., 0., 0
	for s, spectrum := range ws.Spectra {
		if !ws.simulated(s) {
			continue
		}
		w := spectrum.Wavelengths
		if axis == nil {
			axis, lo, hi, n = w, w[0], w[len(w)-1], len(w)
			continue
		}
		shared = shared && slices.Equal(axis, w)
		lo, hi, n = min(lo, w[0]), max(hi, w[len(w)-1]), max(n, len(w))
	}
	if shared || n < 2 {
		return axis
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// ScatterOrderResult holds one output, a histogram per spectrum.
type ScatterOrderResult struct {
	Name   string
	Values [][]float64 // [spectrum][bin]
}

type Result struct {
	Workspace    *Workspace
	Orders       []ScatterOrderResult // Scatter_1 to Scatter_N
	NoAbsorption ScatterOrderResult   // single scattering without absorption
	Summed       *ScatterOrderResult  // orders 2 to N, nil for single scattering
	Stats        *Stats
}

func newScatterOrderResult(ws *Workspace, name string) ScatterOrderResult {
	r := ScatterOrderResult{Name: name, Values: make([][]float64, len(ws.Spectra))}
	for s, spectrum := range ws.Spectra {
		r.Values[s] = make([]float64, len(spectrum.Wavelengths))
	}
	return r
}

func newResult(ws *Workspace, nOrders int) *Result {
	res := &Result{
		Workspace:    ws,
		Orders:       make([]ScatterOrderResult, nOrders),
		NoAbsorption: newScatterOrderResult(ws, "Scatter_1_NoAbs"),
		Stats:        newStats(),
	}
	for i := range res.Orders {
		res.Orders[i] = newScatterOrderResult(ws, fmt.Sprintf("Scatter_%d", i+1))
	}
	return res
}

// simulatedOutputs lists the outputs filled directly by the tracer.
func (r *Result) simulatedOutputs() []*ScatterOrderResult {
	outputs := make([]*ScatterOrderResult, 0, len(r.Orders)+1)
	for i := range r.Orders {
		outputs = append(outputs, &r.Orders[i])
	}
	return append(outputs, &r.NoAbsorption)
}

// All lists every output in file order.
func (r *Result) All() []*ScatterOrderResult {
	outputs := r.simulatedOutputs()
	if r.Summed != nil {
		outputs = append(outputs, r.Summed)
	}
	return outputs
}

func (r *Result) sumMultipleOrders() {
	if len(r.Orders) < 2 {
		return
	}
	summed := newScatterOrderResult(r.Workspace, fmt.Sprintf("Scatter_2_%d_Summed", len(r.Orders)))
	for _, order := range r.Orders[1:] {
		for s := range summed.Values {
			floats.Add(summed.Values[s], order.Values[s])
		}
	}
	r.Summed = &summed
}

// resampleAxis evaluates the histogram ys on xs at the points dstX.
func resampleAxis(xs, ys, dstX, dst []float64) error {
	if slices.Equal(xs, dstX) {
		copy(dst, ys)
		return nil
	}
	if len(xs) == 1 {
		for i := range dst {
			dst[i] = ys[0]
		}
		return nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return fmt.Errorf("while resampling wavelength axis: %w", err)
	}
	lo, hi := xs[0], xs[len(xs)-1]
	for i, x := range dstX {
		dst[i] = pl.Predict(utils.Clamp(x, lo, hi))
	}
	return nil
}
