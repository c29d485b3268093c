// Package ml holds the numerical estimators the pipeline treats as black
// boxes: feature standardization, k-means partitioning, and gradient-boosted
// regression trees. All fits are deterministic under a fixed seed so a full
// refresh is reproducible.
package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"hoopsight/internal/errors"
)

// StandardScaler centers features to zero mean and unit variance, fit on
// the input set. Fitted parameters serialize so the same transform can be
// replayed at inference time.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit learns per-column mean and population standard deviation from X
// (rows × cols).
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.InvalidInput("cannot fit scaler on an empty matrix")
	}
	n := float64(len(X))
	cols := len(X[0])
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	column := make([]float64, len(X))
	for c := 0; c < cols; c++ {
		for r := range X {
			column[r] = X[r][c]
		}
		mean := stat.Mean(column, nil)
		variance := stat.Variance(column, nil) * (n - 1) / n // population variance
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Means[c] = mean
		s.Stds[c] = std
	}
	return nil
}

// Transform applies the fitted scaling. Input is not mutated.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for r := range X {
		row := make([]float64, len(X[r]))
		for c := range X[r] {
			row[c] = (X[r][c] - s.Means[c]) / s.Stds[c]
		}
		out[r] = row
	}
	return out
}

// FitTransform fits the scaler and returns the scaled matrix.
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}
