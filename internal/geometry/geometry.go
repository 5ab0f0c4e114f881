// Package geometry provides the ray/shape intersection service used by the
// path tracer: tracks, intersection segments and convex sample shapes.
package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

func ParseAxis(s string) (Axis, error) {
	switch s {
	case "X", "x":
		return X, nil
	case "Y", "y":
		return Y, nil
	case "Z", "z":
		return Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

func Component(v r3.Vec, a Axis) float64 {
	switch a {
	case X:
		return v.X
	case Y:
		return v.Y
	default:
		return v.Z
	}
}

func SetComponent(v *r3.Vec, a Axis, value float64) {
	switch a {
	case X:
		v.X = value
	case Y:
		v.Y = value
	default:
		v.Z = value
	}
}

var ErrDegenerateFrame = errors.New("reference frame axes must be distinct")

// ReferenceFrame names which cartesian axis points up, along the beam and horizontally.
type ReferenceFrame struct {
	Up         Axis
	AlongBeam  Axis
	Horizontal Axis
}

func DefaultFrame() ReferenceFrame {
	return ReferenceFrame{Up: Y, AlongBeam: Z, Horizontal: X}
}

func (f ReferenceFrame) Validate() error {
	if f.Up == f.AlongBeam || f.Up == f.Horizontal || f.AlongBeam == f.Horizontal {
		return ErrDegenerateFrame
	}
	return nil
}

// Compose builds a vector from its frame components.
func (f ReferenceFrame) Compose(up, alongBeam, horizontal float64) (v r3.Vec) {
	SetComponent(&v, f.Up, up)
	SetComponent(&v, f.AlongBeam, alongBeam)
	SetComponent(&v, f.Horizontal, horizontal)
	return v
}

// Decompose is the inverse of Compose.
func (f ReferenceFrame) Decompose(v r3.Vec) (up, alongBeam, horizontal float64) {
	return Component(v, f.Up), Component(v, f.AlongBeam), Component(v, f.Horizontal)
}

func (f ReferenceFrame) BeamDirection() r3.Vec {
	return f.Compose(0, 1, 0)
}

type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

// Segment is one passage of a ray through a shape.
type Segment struct {
	EntryPoint       r3.Vec
	DistInsideObject float64
}

type BoundingBox struct {
	Min, Max r3.Vec
}

func (b BoundingBox) Width() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Shape is the geometric service consumed by the tracer. Intersect returns
// the ordered segments of the ray inside the shape for t >= 0; a ray starting
// inside the shape gets a first segment beginning at its origin.
type Shape interface {
	Intersect(ray Ray) []Segment
	BoundingBox() BoundingBox
}
