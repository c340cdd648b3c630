package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// Default tree hyper-parameters.
const (
	defaultTreeMaxDepth        = 10
	defaultTreeMinSamplesSplit = 2
	defaultTreeMinSamplesLeaf  = 1
	minImpurityDecrease        = 1e-12
)

// DecisionTree is a CART classifier using Gini impurity. Nodes are stored
// flat in pre-order; children are absolute indices. MaxFeatures bounds the
// features examined per split; 0 means all.
type DecisionTree struct {
	Nodes       []TreeNode `json:"nodes"`
	Importances []float64  `json:"importances"`
	Dim         int        `json:"dim"`

	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features"`
	Seed            int64 `json:"seed"`

	rng *rand.Rand
}

// TreeNode is one split or leaf. Value is the fraction of class 1 among the
// training samples that reached the node.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	IsLeaf     bool    `json:"is_leaf"`
	Value      float64 `json:"value"`
	Samples    int     `json:"samples"`
}

// NewDecisionTree returns a tree with default hyper-parameters.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{
		MaxDepth:        defaultTreeMaxDepth,
		MinSamplesSplit: defaultTreeMinSamplesSplit,
		MinSamplesLeaf:  defaultTreeMinSamplesLeaf,
	}
}

// Algorithm implements Classifier.
func (dt *DecisionTree) Algorithm() string { return AlgorithmDecisionTree }

// Fit implements Classifier.
func (dt *DecisionTree) Fit(x [][]float64, y []int) error {
	dim, err := validateTrainingSet(x, y)
	if err != nil {
		return err
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	dt.fitIndices(x, y, idx, dim)
	return nil
}

// fitIndices grows the tree on the rows named by idx, which may repeat rows
// (bootstrap samples).
func (dt *DecisionTree) fitIndices(x [][]float64, y []int, idx []int, dim int) {
	if dt.rng == nil {
		dt.rng = rand.New(rand.NewSource(dt.Seed)) //nolint:gosec // reproducible model fitting
	}
	dt.Dim = dim
	dt.Nodes = dt.Nodes[:0]
	dt.Importances = make([]float64, dim)
	dt.build(x, y, idx, 0)

	var total float64
	for _, v := range dt.Importances {
		total += v
	}
	if total > 0 {
		for i := range dt.Importances {
			dt.Importances[i] /= total
		}
	}
}

func (dt *DecisionTree) build(x [][]float64, y []int, idx []int, depth int) int {
	positives := 0
	for _, i := range idx {
		positives += y[i]
	}
	n := len(idx)
	value := float64(positives) / float64(n)

	self := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		IsLeaf:     true,
		Value:      value,
		Samples:    n,
	})

	if positives == 0 || positives == n {
		return self
	}
	if dt.MaxDepth > 0 && depth >= dt.MaxDepth {
		return self
	}
	if n < dt.MinSamplesSplit || n < 2*dt.minLeaf() {
		return self
	}

	split, ok := dt.findBestSplit(x, y, idx, positives)
	if !ok {
		return self
	}

	left := make([]int, 0, split.leftCount)
	right := make([]int, 0, n-split.leftCount)
	for _, i := range idx {
		if x[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	dt.Importances[split.feature] += split.decrease

	leftIdx := dt.build(x, y, left, depth+1)
	rightIdx := dt.build(x, y, right, depth+1)

	node := &dt.Nodes[self]
	node.IsLeaf = false
	node.FeatureIdx = split.feature
	node.Threshold = split.threshold
	node.LeftChild = leftIdx
	node.RightChild = rightIdx
	return self
}

type splitCandidate struct {
	feature   int
	threshold float64
	leftCount int
	decrease  float64
}

func (dt *DecisionTree) findBestSplit(x [][]float64, y []int, idx []int, positives int) (splitCandidate, bool) {
	n := len(idx)
	parentImpurity := float64(n) * gini(positives, n)
	minLeaf := dt.minLeaf()

	best := splitCandidate{feature: -1}
	bestImpurity := math.MaxFloat64

	sorted := make([]int, n)
	for _, feature := range dt.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return x[sorted[a]][feature] < x[sorted[b]][feature]
		})

		leftPos := 0
		for i := 0; i < n-1; i++ {
			leftPos += y[sorted[i]]
			leftN := i + 1
			rightN := n - leftN
			cur := x[sorted[i]][feature]
			next := x[sorted[i+1]][feature]
			if cur == next {
				continue
			}
			if leftN < minLeaf || rightN < minLeaf {
				continue
			}
			impurity := float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(positives-leftPos, rightN)
			if impurity < bestImpurity {
				bestImpurity = impurity
				best = splitCandidate{
					feature:   feature,
					threshold: cur + (next-cur)/2,
					leftCount: leftN,
				}
			}
		}
	}

	if best.feature == -1 {
		return best, false
	}
	best.decrease = parentImpurity - bestImpurity
	if best.decrease <= minImpurityDecrease {
		return best, false
	}
	return best, true
}

// candidateFeatures draws MaxFeatures distinct features, or all of them.
func (dt *DecisionTree) candidateFeatures() []int {
	if dt.MaxFeatures <= 0 || dt.MaxFeatures >= dt.Dim {
		all := make([]int, dt.Dim)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return dt.rng.Perm(dt.Dim)[:dt.MaxFeatures]
}

func (dt *DecisionTree) minLeaf() int {
	if dt.MinSamplesLeaf < 1 {
		return 1
	}
	return dt.MinSamplesLeaf
}

// PredictProba implements Classifier.
func (dt *DecisionTree) PredictProba(x []float64) (float64, error) {
	leaf, err := dt.leaf(x)
	if err != nil {
		return 0, err
	}
	return leaf.Value, nil
}

// Predict implements Classifier.
func (dt *DecisionTree) Predict(x []float64) (int, error) {
	p, err := dt.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return classOf(p), nil
}

// FeatureImportances implements FeatureImporter.
func (dt *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(dt.Importances))
	copy(out, dt.Importances)
	return out
}

func (dt *DecisionTree) leaf(x []float64) (TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return TreeNode{}, ErrNotTrained
	}
	if len(x) != dt.Dim {
		return TreeNode{}, ErrDimension
	}
	i := 0
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[i]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(x) {
			return TreeNode{}, errInvalidTree
		}
		if x[node.FeatureIdx] <= node.Threshold {
			i = node.LeftChild
		} else {
			i = node.RightChild
		}
		if i <= 0 || i >= len(dt.Nodes) {
			return TreeNode{}, errInvalidTree
		}
	}
	return TreeNode{}, errInvalidTree
}

func gini(positives, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
