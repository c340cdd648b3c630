package classifier

import (
	"math"
	"math/rand"
)

// Default forest hyper-parameters.
const (
	DefaultTrees           = 200
	DefaultMaxDepth        = 10
	DefaultMinSamplesSplit = 5
	DefaultMinSamplesLeaf  = 2
	DefaultSeed            = 42
)

// Option applies a configuration option to a RandomForest.
type Option func(*RandomForest)

// WithTrees sets the number of trees.
func WithTrees(n int) Option {
	return func(f *RandomForest) {
		if n > 0 {
			f.Trees = n
		}
	}
}

// WithMaxDepth sets the depth limit of every tree. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *RandomForest) {
		if depth >= 0 {
			f.MaxDepth = depth
		}
	}
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForest) {
		if n >= 2 {
			f.MinSamplesSplit = n
		}
	}
}

// WithMinSamplesLeaf sets the smallest allowed leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForest) {
		if n >= 1 {
			f.MinSamplesLeaf = n
		}
	}
}

// WithMaxFeatures sets the features examined per split. Zero selects
// floor(sqrt(dim)).
func WithMaxFeatures(n int) Option {
	return func(f *RandomForest) {
		if n >= 0 {
			f.MaxFeatures = n
		}
	}
}

// WithSeed fixes the random state used for bootstrapping and feature draws.
func WithSeed(seed int64) Option {
	return func(f *RandomForest) {
		f.Seed = seed
	}
}

// WithBootstrap toggles sampling rows with replacement per tree.
func WithBootstrap(enabled bool) Option {
	return func(f *RandomForest) {
		f.Bootstrap = enabled
	}
}

// RandomForest is a bagged ensemble of decision trees. Probabilities are the
// mean of the trees' leaf values.
type RandomForest struct {
	Trees           int             `json:"n_estimators"`
	MaxDepth        int             `json:"max_depth"`
	MinSamplesSplit int             `json:"min_samples_split"`
	MinSamplesLeaf  int             `json:"min_samples_leaf"`
	MaxFeatures     int             `json:"max_features"`
	Bootstrap       bool            `json:"bootstrap"`
	Seed            int64           `json:"seed"`
	Dim             int             `json:"dim"`
	Estimators      []*DecisionTree `json:"estimators"`
	Importances     []float64       `json:"importances"`
}

// NewRandomForest returns a forest with default hyper-parameters.
func NewRandomForest(opts ...Option) *RandomForest {
	f := &RandomForest{
		Trees:           DefaultTrees,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		MinSamplesLeaf:  DefaultMinSamplesLeaf,
		Bootstrap:       true,
		Seed:            DefaultSeed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Algorithm implements Classifier.
func (f *RandomForest) Algorithm() string { return AlgorithmRandomForest }

// Fit implements Classifier.
func (f *RandomForest) Fit(x [][]float64, y []int) error {
	dim, err := validateTrainingSet(x, y)
	if err != nil {
		return err
	}

	maxFeatures := f.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(dim)))))
	}

	rng := rand.New(rand.NewSource(f.Seed)) //nolint:gosec // reproducible model fitting
	f.Dim = dim
	f.Estimators = make([]*DecisionTree, 0, f.Trees)
	f.Importances = make([]float64, dim)

	n := len(x)
	idx := make([]int, n)
	for t := 0; t < f.Trees; t++ {
		treeSeed := rng.Int63()
		for i := range idx {
			if f.Bootstrap {
				idx[i] = rng.Intn(n)
			} else {
				idx[i] = i
			}
		}

		tree := &DecisionTree{
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: f.MinSamplesSplit,
			MinSamplesLeaf:  f.MinSamplesLeaf,
			MaxFeatures:     maxFeatures,
			Seed:            treeSeed,
		}
		tree.fitIndices(x, y, idx, dim)
		f.Estimators = append(f.Estimators, tree)

		for i, v := range tree.Importances {
			f.Importances[i] += v
		}
	}

	var total float64
	for _, v := range f.Importances {
		total += v
	}
	if total > 0 {
		for i := range f.Importances {
			f.Importances[i] /= total
		}
	}
	return nil
}

// PredictProba implements Classifier.
func (f *RandomForest) PredictProba(x []float64) (float64, error) {
	if len(f.Estimators) == 0 {
		return 0, ErrNotTrained
	}
	var sum float64
	for _, tree := range f.Estimators {
		p, err := tree.PredictProba(x)
		if err != nil {
			return 0, err
		}
		sum += p
	}
	return sum / float64(len(f.Estimators)), nil
}

// Predict implements Classifier.
func (f *RandomForest) Predict(x []float64) (int, error) {
	p, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return classOf(p), nil
}

// FeatureImportances implements FeatureImporter.
func (f *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, len(f.Importances))
	copy(out, f.Importances)
	return out
}
