package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/discus/internal/constants"
	"github.com/wildstyl3r/discus/internal/geometry"
)

// qDir samples the momentum transfer of one elastic scattering event
// uniformly over the kinematically allowed range and turns the track. The
// weight is corrected by σs·S(Q)·Q; sumQS collects Q·S(Q) to normalise the
// importance sampling afterwards.
func (t *tracer) qDir(k, sigmaScatter, weight, sumQS float64) (float64, float64) {
	kf := k
	qMin := math.Abs(kf - k)
	q := qMin + t.rng.Float64()*2*k
	cosTheta := (k*k + kf*kf - q*q) / (2 * k * kf)

	sq := t.xs.StructureFactor(q)
	sumQS += q * sq
	weight *= sigmaScatter * sq * q

	phi := t.rng.Float64() * constants.TwoPi
	t.track.Direction = rotateDirection(t.frame, t.track.Direction, cosTheta, phi)
	return weight, sumQS
}

// rotateDirection turns dir by the polar angle θ and azimuth φ measured
// around dir itself.
func rotateDirection(frame geometry.ReferenceFrame, dir r3.Vec, cosTheta, phi float64) r3.Vec {
	sinTheta := math.Sqrt(max(0, 1-cosTheta*cosTheta))
	sinPhi, cosPhi := math.Sincos(phi)
	vz, vx, vy := frame.Decompose(dir)

	var ukx, uky, ukz float64
	if a2 := math.Hypot(vx, vy); vz*vz < 1 && a2 > 0 {
		uqtz := cosPhi * a2
		uqtx := -cosPhi*vz*vx/a2 + sinPhi*vy/a2
		uqty := -cosPhi*vz*vy/a2 - sinPhi*vx/a2
		ukx = cosTheta*vx + sinTheta*uqtx
		uky = cosTheta*vy + sinTheta*uqty
		ukz = cosTheta*vz + sinTheta*uqtz
	} else {
		// travelling straight up or down
		ukx = sinTheta * cosPhi
		uky = sinTheta * sinPhi
		ukz = cosTheta * vz
	}
	return frame.Compose(ukz, ukx, uky)
}
