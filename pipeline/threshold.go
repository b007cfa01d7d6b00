package pipeline

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// An Estimator accumulates layout alignment scores from the leading
// records of a stream and produces the acceptance cutoff.  The cutoff
// is computed once per stream and applied to every record, including
// the sampled prefix itself.
type Estimator struct {
	scores []float64
}

// Add records one score.
func (e *Estimator) Add(score float64) {
	e.scores = append(e.scores, score)
}

// Len returns the number of scores recorded so far.
func (e *Estimator) Len() int { return len(e.scores) }

// Threshold returns mean - 2*sigma over the recorded scores, with
// sigma the population standard deviation.  Genuine barcoded reads
// cluster tightly in score, so a two-sigma lower bound separates them
// from noise without a labeled truth set.
func (e *Estimator) Threshold() float64 {
	n := len(e.scores)
	if n == 0 {
		return math.Inf(-1)
	}
	mean := stat.Mean(e.scores, nil)
	if n == 1 {
		return mean
	}
	sigma := math.Sqrt(stat.Variance(e.scores, nil) * float64(n-1) / float64(n))
	return mean - 2*sigma
}
