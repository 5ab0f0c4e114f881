package geometry

import "gonum.org/v1/gonum/spatial/r3"

// Track is the mutable state of one neutron path. It is owned by a single
// goroutine and reset after every scattering event.
type Track struct {
	StartPoint r3.Vec
	Direction  r3.Vec
	Segments   []Segment
}

func NewTrack(start, direction r3.Vec) Track {
	return Track{StartPoint: start, Direction: direction}
}

func (t *Track) Reset(start, direction r3.Vec) {
	t.StartPoint = start
	t.Direction = direction
	t.Segments = t.Segments[:0]
}

// Intercept refreshes the track's segments against shape and returns their count.
func (t *Track) Intercept(shape Shape) int {
	t.Segments = append(t.Segments[:0], shape.Intersect(Ray{Origin: t.StartPoint, Direction: t.Direction})...)
	return len(t.Segments)
}

func (t *Track) Front() Segment {
	return t.Segments[0]
}
