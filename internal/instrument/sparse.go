package instrument

import (
	"errors"
	"fmt"
	"math"

	"github.com/wildstyl3r/discus/internal/utils"
)

var ErrEmptyGrid = errors.New("detector grid needs at least one row and one column")

// DetectorGrid is a regular latitude/longitude lattice. Rows are latitude
// bands, columns longitude bands.
type DetectorGrid struct {
	MinLat, LatStep float64
	Rows            int
	MinLon, LonStep float64
	Columns         int
}

func NewDetectorGrid(minLat, maxLat float64, rows int, minLon, maxLon float64, columns int) (*DetectorGrid, error) {
	if rows < 1 || columns < 1 {
		return nil, fmt.Errorf("%w: %d x %d", ErrEmptyGrid, rows, columns)
	}
	g := &DetectorGrid{MinLat: minLat, Rows: rows, MinLon: minLon, Columns: columns}
	if rows > 1 {
		g.LatStep = (maxLat - minLat) / float64(rows-1)
	}
	if columns > 1 {
		g.LonStep = (maxLon - minLon) / float64(columns-1)
	}
	return g, nil
}

func (g *DetectorGrid) Len() int {
	return g.Rows * g.Columns
}

func (g *DetectorGrid) Index(row, col int) int {
	return row*g.Columns + col
}

func (g *DetectorGrid) Latitude(row int) float64 {
	return g.MinLat + float64(row)*g.LatStep
}

func (g *DetectorGrid) Longitude(col int) float64 {
	return g.MinLon + float64(col)*g.LonStep
}

// bracket locates v between two grid lines, clamping to the edge lines.
func bracket(v, lo, step float64, n int) (i0, i1 int, frac float64) {
	if n == 1 || step == 0 {
		return 0, 0, 0
	}
	pos := utils.Clamp((v-lo)/step, 0, float64(n-1))
	i0 = min(int(math.Floor(pos)), n-2)
	return i0, i0 + 1, pos - float64(i0)
}

// NearestNeighbours returns the four grid points around (lat, lon) and their bilinear weights.
func (g *DetectorGrid) NearestNeighbours(lat, lon float64) (indices [4]int, weights [4]float64) {
	r0, r1, fr := bracket(lat, g.MinLat, g.LatStep, g.Rows)
	c0, c1, fc := bracket(lon, g.MinLon, g.LonStep, g.Columns)
	indices = [4]int{g.Index(r0, c0), g.Index(r0, c1), g.Index(r1, c0), g.Index(r1, c1)}
	weights = [4]float64{(1 - fr) * (1 - fc), (1 - fr) * fc, fr * (1 - fc), fr * fc}
	return
}

// Interpolate writes into dst the bilinear combination of the grid histograms
// around (lat, lon). A single point grid is copied as is.
func (g *DetectorGrid) Interpolate(lat, lon float64, histograms [][]float64, dst []float64) {
	if g.Len() == 1 {
		copy(dst, histograms[0])
		return
	}
	indices, weights := g.NearestNeighbours(lat, lon)
	for bin := range dst {
		dst[bin] = 0
		for n := range indices {
			if weights[n] != 0 {
				dst[bin] += weights[n] * histograms[indices[n]][bin]
			}
		}
	}
}
