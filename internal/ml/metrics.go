package ml

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
)

// MAE returns the mean absolute error between predictions and truth.
func MAE(pred, truth []float64) float64 {
	if len(pred) == 0 || len(pred) != len(truth) {
		return math.NaN()
	}
	abs := make([]float64, len(pred))
	for i := range pred {
		abs[i] = math.Abs(pred[i] - truth[i])
	}
	mean, err := stats.Mean(abs)
	if err != nil {
		return math.NaN()
	}
	return mean
}

// RMSE returns the root-mean-squared error between predictions and truth.
func RMSE(pred, truth []float64) float64 {
	if len(pred) == 0 || len(pred) != len(truth) {
		return math.NaN()
	}
	sq := make([]float64, len(pred))
	for i := range pred {
		d := pred[i] - truth[i]
		sq[i] = d * d
	}
	mean, err := stats.Mean(sq)
	if err != nil {
		return math.NaN()
	}
	return math.Sqrt(mean)
}

// TrainTestSplit shuffles row indices with a seeded source and splits them
// into train and test sets. testFrac is clamped so both sides are non-empty
// whenever n >= 2.
func TrainTestSplit(n int, testFrac float64, seed int64) (train, test []int) {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testN := int(float64(n) * testFrac)
	if testN < 1 && n >= 2 {
		testN = 1
	}
	if testN >= n {
		testN = n - 1
	}
	return indices[testN:], indices[:testN]
}
