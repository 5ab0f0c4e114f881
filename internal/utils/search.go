package utils

import "sort"

// LeftBracket returns the index i of the interval [xs[i], xs[i+1]] containing x.
// xs must be sorted ascending and hold at least two values; x outside the
// range is attributed to the first or last interval.
func LeftBracket(xs []float64, x float64) int {
	i := sort.SearchFloat64s(xs, x) // first index with xs[i] >= x
	if i < len(xs) && xs[i] == x {
		return min(i, len(xs)-2)
	}
	return Clamp(i-1, 0, len(xs)-2)
}
