package predict

import (
	"errors"
	"fmt"
	"sort"
)

// DecisionTree is a CART regression tree grown on squared error. Every feature
// is searched in column order and thresholds sit halfway between consecutive
// distinct values.
type DecisionTree struct {
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int

	root     *treeNode
	features int
}

type treeNode struct {
	feature   int
	threshold float64
	value     float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) leaf() bool { return n.left == nil }

// Fit grows the tree on X and y.
func (m *DecisionTree) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("no training samples")
	}
	if len(y) != len(X) {
		return fmt.Errorf("%d samples but %d targets", len(X), len(y))
	}
	m.features = len(X[0])
	for i, row := range X {
		if len(row) != m.features {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), m.features)
		}
	}
	if m.MinSamplesSplit < 2 {
		m.MinSamplesSplit = 2
	}
	if m.MinSamplesLeaf < 1 {
		m.MinSamplesLeaf = 1
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	m.root = m.grow(X, y, idx, 0)
	return nil
}

// Depth returns the number of split levels below the root.
func (m *DecisionTree) Depth() int { return depth(m.root) }

// Leaves returns the number of leaf nodes.
func (m *DecisionTree) Leaves() int { return leaves(m.root) }

func depth(n *treeNode) int {
	if n == nil || n.leaf() {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

func leaves(n *treeNode) int {
	if n == nil {
		return 0
	}
	if n.leaf() {
		return 1
	}
	return leaves(n.left) + leaves(n.right)
}

func (m *DecisionTree) grow(X [][]float64, y []float64, idx []int, level int) *treeNode {
	sum, sq := 0.0, 0.0
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	n := float64(len(idx))
	node := &treeNode{value: sum / n}
	impurity := sq - sum*sum/n
	if len(idx) < m.MinSamplesSplit || (m.MaxDepth > 0 && level >= m.MaxDepth) || impurity <= 1e-12*n {
		return node
	}
	feature, threshold, ok := m.bestSplit(X, y, idx, impurity)
	if !ok {
		return node
	}
	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}
	node.feature, node.threshold = feature, threshold
	node.left = m.grow(X, y, left, level+1)
	node.right = m.grow(X, y, right, level+1)
	return node
}

// bestSplit returns the feature and threshold minimizing the summed squared
// error of the two children. Ties keep the earliest feature and threshold.
func (m *DecisionTree) bestSplit(X [][]float64, y []float64, idx []int, parent float64) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	best := parent
	order := make([]int, len(idx))
	for f := 0; f < m.features; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var totSum, totSq float64
		for _, i := range order {
			totSum += y[i]
			totSq += y[i] * y[i]
		}
		var lSum, lSq float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			lSum += y[i]
			lSq += y[i] * y[i]
			nl := k + 1
			nr := len(order) - nl
			if nl < m.MinSamplesLeaf || nr < m.MinSamplesLeaf {
				continue
			}
			lo, hi := X[i][f], X[order[k+1]][f]
			if lo == hi {
				continue
			}
			rSum, rSq := totSum-lSum, totSq-lSq
			sse := (lSq - lSum*lSum/float64(nl)) + (rSq - rSum*rSum/float64(nr))
			if sse < best-1e-12 {
				best = sse
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				// adjacent floats round the midpoint up; the split must still separate lo from hi
				if bestThreshold == hi {
					bestThreshold = lo
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict walks each sample down to a leaf.
func (m *DecisionTree) Predict(X [][]float64) ([]float64, error) {
	if m.root == nil {
		return nil, errors.New("model is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != m.features {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), m.features)
		}
		n := m.root
		for !n.leaf() {
			if row[n.feature] <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		out[i] = n.value
	}
	return out, nil
}
