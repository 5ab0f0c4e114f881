package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	minFailureBudget    = 1000
	failureBudgetFactor = 10
)

var ErrTooManyFailedPaths = errors.New("too many neutron paths failed to reach the detector")

// simulatePaths averages nPaths successful path weights. Failed paths are
// drawn again and do not count; the importance sampling of Q is normalised
// by the mean Q·S(Q) of every intermediate scattering.
func (t *tracer) simulatePaths(nPaths, nScatters int, k, sigmaTotal, sigmaScatter float64, detectorPosition r3.Vec, noAbsorption bool) (float64, error) {
	var sumWeights, sumQS float64
	budget := max(minFailureBudget, failureBudgetFactor*nPaths)
	failures := 0
	for done := 0; done < nPaths; {
		ok, weight, qs, err := t.scatter(nScatters, k, sigmaTotal, sigmaScatter, detectorPosition, noAbsorption)
		if err != nil {
			return 0, err
		}
		if !ok {
			failures++
			t.stats.FailedPaths++
			if failures > budget {
				return 0, fmt.Errorf("%w: %d failures while collecting %d of %d paths", ErrTooManyFailedPaths, failures, done, nPaths)
			}
			continue
		}
		sumWeights += weight
		sumQS += qs
		done++
	}

	result := sumWeights / float64(nPaths)
	if nScatters > 1 {
		meanQS := sumQS / float64(nPaths*(nScatters-1))
		result /= math.Pow(meanQS, float64(nScatters-1))
	}
	return result, nil
}
