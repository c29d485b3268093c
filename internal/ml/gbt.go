package ml

import (
	"sort"

	"hoopsight/internal/errors"
)

// GBTRegressor is a squared-loss gradient-boosted ensemble of depth-limited
// regression trees. It exists to satisfy the pipeline's estimator contract
// (fit a matrix, predict a vector) deterministically; it is intentionally a
// plain exact-split implementation with no sampling.
type GBTRegressor struct {
	NEstimators  int              `json:"n_estimators"`
	LearningRate float64          `json:"learning_rate"`
	MaxDepth     int              `json:"max_depth"`
	MinLeaf      int              `json:"min_leaf"`
	BasePred     float64          `json:"base_pred"`
	Trees        []regressionTree `json:"trees"`
}

// NewGBTRegressor builds a regressor with the ensemble shape used for every
// target model: 100 trees, depth 5, learning rate 0.1.
func NewGBTRegressor() *GBTRegressor {
	return &GBTRegressor{
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     5,
		MinLeaf:      5,
	}
}

// Fit trains the ensemble on X (rows × features) against y.
func (g *GBTRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.InvalidInput("training matrix and target lengths must match and be non-empty")
	}

	g.BasePred = mean(y)
	g.Trees = make([]regressionTree, 0, g.NEstimators)

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.BasePred
	}

	residual := make([]float64, len(y))
	for t := 0; t < g.NEstimators; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := fitTree(X, residual, g.MaxDepth, g.MinLeaf)
		g.Trees = append(g.Trees, tree)
		for i := range pred {
			pred[i] += g.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// Predict scores a single feature vector.
func (g *GBTRegressor) Predict(x []float64) float64 {
	out := g.BasePred
	for _, tree := range g.Trees {
		out += g.LearningRate * tree.predict(x)
	}
	return out
}

// PredictBatch scores each row of X.
func (g *GBTRegressor) PredictBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = g.Predict(row)
	}
	return out
}

// regressionTree is a binary tree flattened into a node slice so it
// round-trips through JSON without pointer juggling.
type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
}

func (t regressionTree) predict(x []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func fitTree(X [][]float64, y []float64, maxDepth, minLeaf int) regressionTree {
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}
	tree := regressionTree{}
	tree.grow(X, y, indices, 0, maxDepth, minLeaf)
	return tree
}

// grow appends the subtree over indices and returns its node index.
func (t *regressionTree) grow(X [][]float64, y []float64, indices []int, depth, maxDepth, minLeaf int) int {
	leafValue := meanAt(y, indices)

	if depth >= maxDepth || len(indices) < 2*minLeaf {
		return t.appendLeaf(leafValue)
	}

	feature, threshold, gain := bestSplit(X, y, indices, minLeaf)
	if gain <= 0 {
		return t.appendLeaf(leafValue)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < minLeaf || len(right) < minLeaf {
		return t.appendLeaf(leafValue)
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Feature: feature, Threshold: threshold})
	t.Nodes[idx].Left = t.grow(X, y, left, depth+1, maxDepth, minLeaf)
	t.Nodes[idx].Right = t.grow(X, y, right, depth+1, maxDepth, minLeaf)
	return idx
}

func (t *regressionTree) appendLeaf(value float64) int {
	t.Nodes = append(t.Nodes, treeNode{Leaf: true, Value: value})
	return len(t.Nodes) - 1
}

// bestSplit scans every feature for the threshold that maximizes SSE
// reduction, using sorted prefix sums. Ties resolve to the lowest feature
// index, keeping fits deterministic.
func bestSplit(X [][]float64, y []float64, indices []int, minLeaf int) (feature int, threshold, gain float64) {
	n := len(indices)
	if n == 0 {
		return 0, 0, 0
	}
	features := len(X[indices[0]])

	totalSum, totalSq := 0.0, 0.0
	for _, i := range indices {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	feature, gain = -1, 0
	order := make([]int, n)

	for f := 0; f < features; f++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			if X[order[a]][f] != X[order[b]][f] {
				return X[order[a]][f] < X[order[b]][f]
			}
			return order[a] < order[b]
		})

		leftSum, leftSq := 0.0, 0.0
		for pos := 0; pos < n-1; pos++ {
			i := order[pos]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// Only split between distinct feature values.
			if X[i][f] == X[order[pos+1]][f] {
				continue
			}
			leftN := pos + 1
			rightN := n - leftN
			if leftN < minLeaf || rightN < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(leftN)) +
				(rightSq - rightSum*rightSum/float64(rightN))

			if g := parentSSE - sse; g > gain {
				gain = g
				feature = f
				threshold = (X[i][f] + X[order[pos+1]][f]) / 2
			}
		}
	}
	if feature < 0 {
		return 0, 0, 0
	}
	return feature, threshold, gain
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += y[i]
	}
	return sum / float64(len(indices))
}
