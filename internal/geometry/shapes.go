package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var allAxes = [3]Axis{X, Y, Z}

// slab narrows [tNear, tFar] to the parameter range where the ray lies
// between lo and hi along axis a.
func slab(ray Ray, a Axis, lo, hi float64, tNear, tFar *float64) bool {
	o, d := Component(ray.Origin, a), Component(ray.Direction, a)
	if d == 0 {
		return lo <= o && o <= hi
	}
	t0, t1 := (lo-o)/d, (hi-o)/d
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	*tNear = max(*tNear, t0)
	*tFar = min(*tFar, t1)
	return *tNear < *tFar
}

func clippedSegment(ray Ray, tNear, tFar float64) []Segment {
	tNear = max(tNear, 0)
	if tFar <= tNear {
		return nil
	}
	return []Segment{{EntryPoint: ray.At(tNear), DistInsideObject: tFar - tNear}}
}

// Cuboid is an axis aligned box, the usual flat plate sample.
type Cuboid struct {
	Center    r3.Vec
	HalfWidth r3.Vec
}

// NewFlatPlate returns a plate of the given thickness along the beam.
func NewFlatPlate(frame ReferenceFrame, center r3.Vec, width, height, thickness float64) Cuboid {
	return Cuboid{
		Center:    center,
		HalfWidth: frame.Compose(height/2, thickness/2, width/2),
	}
}

func (c Cuboid) BoundingBox() BoundingBox {
	return BoundingBox{Min: r3.Sub(c.Center, c.HalfWidth), Max: r3.Add(c.Center, c.HalfWidth)}
}

func (c Cuboid) Intersect(ray Ray) []Segment {
	box := c.BoundingBox()
	tNear, tFar := math.Inf(-1), math.Inf(1)
	for _, a := range allAxes {
		if !slab(ray, a, Component(box.Min, a), Component(box.Max, a), &tNear, &tFar) {
			return nil
		}
	}
	return clippedSegment(ray, tNear, tFar)
}

// Cylinder is a solid right circular cylinder whose axis is parallel to Axis.
type Cylinder struct {
	Center r3.Vec
	Axis   Axis
	Radius float64
	Height float64
}

func (c Cylinder) radialAxes() (Axis, Axis) {
	switch c.Axis {
	case X:
		return Y, Z
	case Y:
		return Z, X
	default:
		return X, Y
	}
}

func (c Cylinder) BoundingBox() BoundingBox {
	var half r3.Vec
	a1, a2 := c.radialAxes()
	SetComponent(&half, c.Axis, c.Height/2)
	SetComponent(&half, a1, c.Radius)
	SetComponent(&half, a2, c.Radius)
	return BoundingBox{Min: r3.Sub(c.Center, half), Max: r3.Add(c.Center, half)}
}

func (c Cylinder) Intersect(ray Ray) []Segment {
	tNear, tFar := math.Inf(-1), math.Inf(1)
	center := Component(c.Center, c.Axis)
	if !slab(ray, c.Axis, center-c.Height/2, center+c.Height/2, &tNear, &tFar) {
		return nil
	}

	a1, a2 := c.radialAxes()
	o1, o2 := Component(ray.Origin, a1)-Component(c.Center, a1), Component(ray.Origin, a2)-Component(c.Center, a2)
	d1, d2 := Component(ray.Direction, a1), Component(ray.Direction, a2)
	a := d1*d1 + d2*d2
	cc := o1*o1 + o2*o2 - c.Radius*c.Radius
	if a == 0 {
		if cc > 0 {
			return nil
		}
		return clippedSegment(ray, tNear, tFar)
	}
	b := o1*d1 + o2*d2
	disc := b*b - a*cc
	if disc <= 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	tNear = max(tNear, (-b-sq)/a)
	tFar = min(tFar, (-b+sq)/a)
	return clippedSegment(ray, tNear, tFar)
}
