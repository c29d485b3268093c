package ml

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"hoopsight/internal/errors"
)

// KMeans partitions rows into K clusters via Lloyd iterations seeded with
// k-means++ starts. Labels are opaque: they are stable within one fit and
// carry no meaning across refits.
type KMeans struct {
	K       int         `json:"k"`
	MaxIter int         `json:"max_iter"`
	NInit   int         `json:"n_init"`
	Seed    int64       `json:"seed"`
	Inertia float64     `json:"inertia"`
	Centers [][]float64 `json:"centers"`
}

// NewKMeans builds a partitioner with the defaults used across the
// pipeline: 10 restarts, 300 iterations, fixed seed.
func NewKMeans(k int) *KMeans {
	return &KMeans{K: k, MaxIter: 300, NInit: 10, Seed: 42}
}

// Fit runs NInit restarts and keeps the assignment with the lowest inertia.
func (km *KMeans) Fit(X [][]float64) error {
	if len(X) < km.K {
		return errors.InsufficientData("fewer rows than clusters")
	}
	rng := rand.New(rand.NewSource(km.Seed))

	best := math.Inf(1)
	var bestCenters [][]float64
	for run := 0; run < km.NInit; run++ {
		centers := km.plusPlusInit(X, rng)
		centers, inertia := km.lloyd(X, centers)
		if inertia < best {
			best = inertia
			bestCenters = centers
		}
	}
	km.Centers = bestCenters
	km.Inertia = best
	return nil
}

// Predict assigns each row to its nearest fitted center.
func (km *KMeans) Predict(X [][]float64) []int {
	labels := make([]int, len(X))
	for i, row := range X {
		labels[i], _ = km.nearest(row)
	}
	return labels
}

// FitPredict fits then labels the fitting set itself.
func (km *KMeans) FitPredict(X [][]float64) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return km.Predict(X), nil
}

func (km *KMeans) plusPlusInit(X [][]float64, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, km.K)
	centers = append(centers, cloneRow(X[rng.Intn(len(X))]))

	dist2 := make([]float64, len(X))
	for len(centers) < km.K {
		total := 0.0
		for i, row := range X {
			d := math.Inf(1)
			for _, c := range centers {
				if sq := floats.Distance(row, c, 2); sq*sq < d {
					d = sq * sq
				}
			}
			dist2[i] = d
			total += d
		}
		if total == 0 {
			// Degenerate input: all points coincide with a center.
			centers = append(centers, cloneRow(X[rng.Intn(len(X))]))
			continue
		}
		target := rng.Float64() * total
		cum := 0.0
		pick := len(X) - 1
		for i, d := range dist2 {
			cum += d
			if cum >= target {
				pick = i
				break
			}
		}
		centers = append(centers, cloneRow(X[pick]))
	}
	return centers
}

func (km *KMeans) lloyd(X [][]float64, centers [][]float64) ([][]float64, float64) {
	dims := len(X[0])
	labels := make([]int, len(X))

	for iter := 0; iter < km.MaxIter; iter++ {
		changed := false
		for i, row := range X {
			best, _ := nearestOf(row, centers)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([][]float64, len(centers))
		counts := make([]int, len(centers))
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range X {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue // empty cluster keeps its previous center
			}
			for d := 0; d < dims; d++ {
				centers[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	inertia := 0.0
	for i, row := range X {
		d := floats.Distance(row, centers[labels[i]], 2)
		inertia += d * d
	}
	return centers, inertia
}

func (km *KMeans) nearest(row []float64) (int, float64) {
	return nearestOf(row, km.Centers)
}

func nearestOf(row []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := floats.Distance(row, center, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
