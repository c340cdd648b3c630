// Package classifier provides the pluggable binary classification capability
// used by training and inference, plus the feature scaler that travels with it.
package classifier

import (
	"errors"
	"fmt"
)

// Sentinel kinds for classifier errors.
var (
	ErrNotTrained       = errors.New("model not trained")
	ErrEmptyTrainingSet = errors.New("features or labels empty")
	ErrSizeMismatch     = errors.New("features and labels size mismatch")
	ErrDimension        = errors.New("feature dimension mismatch")
	ErrUnknownAlgorithm = errors.New("unsupported model type")
	ErrNonBinaryLabel   = errors.New("labels must be 0 or 1")
)

var errInvalidTree = errors.New("invalid tree state")

// Classifier is any binary model that can be fit and queried. Class 1 is
// the positive class.
type Classifier interface {
	// Algorithm names the implementation for persistence.
	Algorithm() string
	// Fit trains on rows x with labels y in {0,1}.
	Fit(x [][]float64, y []int) error
	// Predict returns the class of one row.
	Predict(x []float64) (int, error)
	// PredictProba returns the probability of class 1 for one row.
	PredictProba(x []float64) (float64, error)
}

// FeatureImporter is implemented by classifiers that can rank their inputs.
type FeatureImporter interface {
	FeatureImportances() []float64
}

// Algorithm names.
const (
	AlgorithmRandomForest = "random_forest"
	AlgorithmDecisionTree = "decision_tree"
)

// New returns an untrained classifier for algorithm.
func New(algorithm string) (Classifier, error) {
	switch algorithm {
	case AlgorithmRandomForest:
		return NewRandomForest(), nil
	case AlgorithmDecisionTree:
		return NewDecisionTree(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

func validateTrainingSet(x [][]float64, y []int) (int, error) {
	if len(x) == 0 || len(y) == 0 {
		return 0, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return 0, ErrSizeMismatch
	}
	dim := len(x[0])
	if dim == 0 {
		return 0, ErrDimension
	}
	for i := range x {
		if len(x[i]) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimension, i, len(x[i]), dim)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("%w: row %d has label %d", ErrNonBinaryLabel, i, y[i])
		}
	}
	return dim, nil
}

func classOf(proba float64) int {
	if proba > 0.5 {
		return 1
	}
	return 0
}
