package model

import (
	"maps"
	"slices"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"
)

// Stats are diagnostic counters of one task, merged once the run is over.
type Stats struct {
	EntryAttempts  map[int]int64 // attempts needed to hit the sample, when more than one
	IntersectCalls int64
	FailedPaths    int64
}

func newStats() *Stats {
	return &Stats{EntryAttempts: map[int]int64{}}
}

func (s *Stats) addEntryAttempts(attempts int) {
	if s.EntryAttempts == nil {
		s.EntryAttempts = map[int]int64{}
	}
	s.EntryAttempts[attempts]++
}

func (s *Stats) Merge(other *Stats) {
	for attempts, count := range other.EntryAttempts {
		s.EntryAttempts[attempts] += count
	}
	s.IntersectCalls += other.IntersectCalls
	s.FailedPaths += other.FailedPaths
}

// Retries is the number of entry tracks that had to be drawn again.
func (s *Stats) Retries() (retries int64) {
	for attempts, count := range s.EntryAttempts {
		retries += int64(attempts-1) * count
	}
	return retries
}

func (s *Stats) Log() {
	glog.Infof("intersection calls: %d, failed paths: %d", s.IntersectCalls, s.FailedPaths)
	if len(s.EntryAttempts) == 0 {
		return
	}
	attempts := slices.Sorted(maps.Keys(s.EntryAttempts))
	values := make([]float64, len(attempts))
	weights := make([]float64, len(attempts))
	for i, a := range attempts {
		values[i], weights[i] = float64(a), float64(s.EntryAttempts[a])
	}
	glog.Infof("entry point regenerated %d times, mean attempts when retried %.2f, worst %d",
		s.Retries(), stat.Mean(values, weights), attempts[len(attempts)-1])
	if glog.V(1) {
		for _, a := range attempts {
			glog.Infof("  %3d attempts: %d tracks", a, s.EntryAttempts[a])
		}
	}
}
