package model

import (
	"math"
	"math/rand"
	"sort"
)

// A small bagged ensemble of depth-bounded CART trees. Fitting is seeded by
// the caller so identical inputs always produce identical probabilities.

type treeNode struct {
	leaf      bool
	prob      float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

type forest struct {
	trees []*treeNode
}

type forestConfig struct {
	trees    int
	maxDepth int
	minLeaf  int
}

func fitForest(X [][]float64, y []int, cfg forestConfig, rng *rand.Rand) *forest {
	n := len(X)
	f := &forest{trees: make([]*treeNode, 0, cfg.trees)}

	// Random forest convention: consider sqrt(d) features per split.
	mtry := int(math.Ceil(math.Sqrt(float64(len(X[0])))))

	for t := 0; t < cfg.trees; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, growTree(X, y, indices, 0, cfg, mtry, rng))
	}
	return f
}

func (f *forest) predict(row []float64) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predictRow(row)
	}
	return sum / float64(len(f.trees))
}

func (n *treeNode) predictRow(row []float64) float64 {
	node := n
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.prob
}

func growTree(X [][]float64, y []int, indices []int, depth int, cfg forestConfig, mtry int, rng *rand.Rand) *treeNode {
	positives := 0
	for _, i := range indices {
		positives += y[i]
	}
	prob := float64(positives) / float64(len(indices))

	if depth >= cfg.maxDepth || positives == 0 || positives == len(indices) || len(indices) < 2*cfg.minLeaf {
		return &treeNode{leaf: true, prob: prob}
	}

	feature, threshold, ok := bestSplit(X, y, indices, mtry, cfg.minLeaf, rng)
	if !ok {
		return &treeNode{leaf: true, prob: prob}
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(X, y, left, depth+1, cfg, mtry, rng),
		right:     growTree(X, y, right, depth+1, cfg, mtry, rng),
	}
}

func bestSplit(X [][]float64, y []int, indices []int, mtry, minLeaf int, rng *rand.Rand) (int, float64, bool) {
	d := len(X[0])
	candidates := rng.Perm(d)
	if mtry < d {
		candidates = candidates[:mtry]
	}
	sort.Ints(candidates)

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	for _, feature := range candidates {
		values := make([]float64, 0, len(indices))
		for _, i := range indices {
			values = append(values, X[i][feature])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			leftN, leftPos, rightN, rightPos := 0, 0, 0, 0
			for _, i := range indices {
				if X[i][feature] <= threshold {
					leftN++
					leftPos += y[i]
				} else {
					rightN++
					rightPos += y[i]
				}
			}
			if leftN < minLeaf || rightN < minLeaf {
				continue
			}

			gini := weightedGini(leftN, leftPos, rightN, rightPos)
			if gini < bestGini {
				bestGini = gini
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func weightedGini(leftN, leftPos, rightN, rightPos int) float64 {
	total := float64(leftN + rightN)
	return float64(leftN)/total*gini(leftN, leftPos) + float64(rightN)/total*gini(rightN, rightPos)
}

func gini(n, pos int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
