package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/geometry"
	"github.com/wildstyl3r/discus/internal/sample"
	"github.com/wildstyl3r/discus/internal/xsection"
)

const maxEntryAttempts = 100

var ErrNoEntryPoint = errors.New("unable to generate a track entering the sample")

type uniformSource interface {
	Float64() float64
}

// tracer follows neutron paths through one sample. It is owned by a single
// goroutine; the sample and cross sections it points to are shared read only.
type tracer struct {
	sample *sample.Sample
	xs     *xsection.Model
	frame  geometry.ReferenceFrame
	source r3.Vec
	rng    uniformSource
	stats  *Stats
	track  geometry.Track
}

// generateInitialTrack starts a beam-parallel track on the source plane at a
// random point of the sample's cross section.
func (t *tracer) generateInitialTrack() {
	box := t.sample.Shape.BoundingBox()
	width := box.Width()
	upMin, _, horizontalMin := t.frame.Decompose(box.Min)
	upWidth, _, horizontalWidth := t.frame.Decompose(width)
	_, beam, _ := t.frame.Decompose(t.source)

	start := t.frame.Compose(
		upMin+t.rng.Float64()*upWidth,
		beam,
		horizontalMin+t.rng.Float64()*horizontalWidth,
	)
	t.track.Reset(start, t.frame.BeamDirection())
}

// startPoint draws initial tracks until one hits the sample. Shapes that do
// not fill their bounding box need several attempts.
func (t *tracer) startPoint() error {
	for attempt := 1; attempt <= maxEntryAttempts; attempt++ {
		t.generateInitialTrack()
		t.stats.IntersectCalls++
		if t.track.Intercept(t.sample.Shape) > 0 {
			if attempt > 1 {
				t.stats.addEntryAttempts(attempt)
			}
			return nil
		}
	}
	return ErrNoEntryPoint
}

// updateWeightAndPosition moves the track to a scattering point inside its
// first segment. The free path is drawn from the exponential distribution
// truncated to the segment and the weight takes the probability of
// scattering there.
func (t *tracer) updateWeightAndPosition(weight, vmu, sigmaTotal float64) float64 {
	segment := t.track.Front()
	b4 := 1 - math.Exp(-segment.DistInsideObject*vmu)
	vl := -math.Log(1-t.rng.Float64()*b4) / vmu
	weight *= b4 / sigmaTotal
	t.track.Reset(r3.Add(segment.EntryPoint, r3.Scale(vl, t.track.Direction)), t.track.Direction)
	return weight
}

// scatter traces one path with nScatters scattering events ending at the
// detector. ok is false when the path left the sample too early; such paths
// are drawn again by the caller.
func (t *tracer) scatter(nScatters int, k, sigmaTotal, sigmaScatter float64, detectorPosition r3.Vec, noAbsorption bool) (ok bool, weight, sumQS float64, err error) {
	shape := t.sample.Shape
	vmu := t.sample.Material.Attenuation(sigmaTotal)

	if err := t.startPoint(); err != nil {
		return false, 0, 0, err
	}
	weight = t.updateWeightAndPosition(1, vmu, sigmaTotal)

	for range nScatters - 1 {
		weight, sumQS = t.qDir(k, sigmaScatter, weight, sumQS)
		t.stats.IntersectCalls++
		if t.track.Intercept(shape) == 0 {
			return false, 0, 0, nil
		}
		weight = t.updateWeightAndPosition(weight, vmu, sigmaTotal)
	}

	incoming := t.track.Direction
	outgoing := r3.Unit(r3.Sub(detectorPosition, t.track.StartPoint))
	t.track.Reset(t.track.StartPoint, outgoing)
	t.stats.IntersectCalls++
	if t.track.Intercept(shape) == 0 {
		return false, 0, 0, nil
	}
	dl := t.track.Front().DistInsideObject
	q := r3.Norm(r3.Sub(outgoing, incoming)) * k

	exitAttenuation := vmu
	if noAbsorption {
		exitAttenuation = 0
	}
	weight *= math.Exp(-dl*exitAttenuation) * t.xs.StructureFactor(q) * sigmaScatter / constants.FourPi
	return true, weight, sumQS, nil
}
