package boost

import (
	"math"
	"sort"
)

// A regression tree fit to per-row gradients and hessians. Grown leaf-wise:
// the leaf with the largest split gain is split first, until the leaf budget
// is exhausted or no split improves the objective.
type tree struct {
	nodes []treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      int // child node index, -1 for leaf
	right     int
	value     float64 // leaf output, already shrunk by the learning rate
}

type leafCandidate struct {
	node      int
	rows      []int
	sumG      float64
	sumH      float64
	bestGain  float64
	bestFeat  int
	bestThr   float64
	bestLeft  []int
	bestRight []int
}

func buildTree(rows [][]float64, grad, hess []float64, include []int, p Params) tree {
	t := tree{}

	root := newCandidate(&t, include, grad, hess, p)
	findBestSplit(root, rows, grad, hess, p)
	leaves := []*leafCandidate{root}

	for len(leaves) < p.NumLeaves {
		best := -1
		for i, leaf := range leaves {
			if leaf.bestGain > 0 && (best == -1 || leaf.bestGain > leaves[best].bestGain) {
				best = i
			}
		}
		if best == -1 {
			break
		}

		leaf := leaves[best]
		node := &t.nodes[leaf.node]
		node.feature = leaf.bestFeat
		node.threshold = leaf.bestThr

		left := newCandidate(&t, leaf.bestLeft, grad, hess, p)
		right := newCandidate(&t, leaf.bestRight, grad, hess, p)
		t.nodes[leaf.node].left = left.node
		t.nodes[leaf.node].right = right.node

		findBestSplit(left, rows, grad, hess, p)
		findBestSplit(right, rows, grad, hess, p)

		leaves[best] = left
		leaves = append(leaves, right)
	}

	return t
}

func newCandidate(t *tree, rows []int, grad, hess []float64, p Params) *leafCandidate {
	var sumG, sumH float64
	for _, i := range rows {
		sumG += grad[i]
		sumH += hess[i]
	}

	t.nodes = append(t.nodes, treeNode{
		left:  -1,
		right: -1,
		value: -p.LearningRate * sumG / (sumH + p.Lambda),
	})

	return &leafCandidate{
		node: len(t.nodes) - 1,
		rows: rows,
		sumG: sumG,
		sumH: sumH,
	}
}

// findBestSplit scans every feature for the threshold maximizing the
// regularized gain. Rows with a missing feature value always go left.
func findBestSplit(leaf *leafCandidate, rows [][]float64, grad, hess []float64, p Params) {
	if len(leaf.rows) < 2*p.MinDataInLeaf || len(leaf.rows) < 2 {
		return
	}

	parentScore := leaf.sumG * leaf.sumG / (leaf.sumH + p.Lambda)

	order := make([]int, len(leaf.rows))
	for feat := 0; feat < len(rows[leaf.rows[0]]); feat++ {
		copy(order, leaf.rows)

		var missing []int
		present := order[:0]
		for _, i := range order {
			if math.IsNaN(rows[i][feat]) {
				missing = append(missing, i)
			} else {
				present = append(present, i)
			}
		}
		sort.Slice(present, func(a, b int) bool {
			return rows[present[a]][feat] < rows[present[b]][feat]
		})

		// Missing rows are glued to the low end so they follow the left
		// branch at prediction time.
		sumGLeft, sumHLeft := 0.0, 0.0
		for _, i := range missing {
			sumGLeft += grad[i]
			sumHLeft += hess[i]
		}

		for pos, i := range present {
			sumGLeft += grad[i]
			sumHLeft += hess[i]

			if pos+1 >= len(present) {
				break
			}
			v, next := rows[i][feat], rows[present[pos+1]][feat]
			if v == next {
				continue
			}

			nLeft := len(missing) + pos + 1
			nRight := len(leaf.rows) - nLeft
			if nLeft < p.MinDataInLeaf || nRight < p.MinDataInLeaf {
				continue
			}

			sumGRight := leaf.sumG - sumGLeft
			sumHRight := leaf.sumH - sumHLeft
			gain := sumGLeft*sumGLeft/(sumHLeft+p.Lambda) +
				sumGRight*sumGRight/(sumHRight+p.Lambda) - parentScore
			if gain <= leaf.bestGain {
				continue
			}

			leaf.bestGain = gain
			leaf.bestFeat = feat
			leaf.bestThr = (v + next) / 2

			leaf.bestLeft = append(append([]int(nil), missing...), present[:pos+1]...)
			leaf.bestRight = append([]int(nil), present[pos+1:]...)
		}
	}
}

func (t tree) predict(row []float64) float64 {
	node := 0
	for t.nodes[node].left != -1 {
		n := t.nodes[node]
		v := row[n.feature]
		if math.IsNaN(v) || v <= n.threshold {
			node = n.left
		} else {
			node = n.right
		}
	}
	return t.nodes[node].value
}
