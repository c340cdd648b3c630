// Package training turns labelled records into a fitted, evaluated model.
package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/schema"
)

// Defaults for the split.
const (
	DefaultTestSize = 0.25
	DefaultSeed     = 42

	// minPerClass is the smallest class that can appear on both sides of the split.
	minPerClass = 2
)

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithTestSize sets the held-out fraction.
func WithTestSize(f float64) Option {
	return func(t *Trainer) {
		t.testSize = f
	}
}

// WithSeed sets the split seed. The forest seed is set separately through
// WithForestOptions.
func WithSeed(seed int64) Option {
	return func(t *Trainer) {
		t.seed = seed
	}
}

// WithStandardize toggles feature standardization.
func WithStandardize(enabled bool) Option {
	return func(t *Trainer) {
		t.standardize = enabled
	}
}

// WithScaleBeforeSplit fits the scaler on every record, test rows included.
// It exists to reproduce reference numbers and leaks test statistics.
func WithScaleBeforeSplit(enabled bool) Option {
	return func(t *Trainer) {
		t.scaleBeforeSplit = enabled
	}
}

// WithForestOptions passes options to the random forest.
func WithForestOptions(opts ...classifier.Option) Option {
	return func(t *Trainer) {
		t.forestOpts = append(t.forestOpts, opts...)
	}
}

// WithClock overrides the time source used to stamp artifacts.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		if now != nil {
			t.now = now
		}
	}
}

// Trainer fits a standardized random forest and evaluates it on a
// stratified hold-out.
type Trainer struct {
	testSize         float64
	seed             int64
	standardize      bool
	scaleBeforeSplit bool
	forestOpts       []classifier.Option
	now              func() time.Time
}

// New constructs a Trainer with default configuration.
func New(opts ...Option) *Trainer {
	t := &Trainer{
		testSize:    DefaultTestSize,
		seed:        DefaultSeed,
		standardize: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Train fits a model on records and evaluates it on a held-out split.
func (t *Trainer) Train(ctx context.Context, records []model.Record) (*classifier.Trained, *Report, error) {
	const op = "training.train"
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if t.testSize <= 0 || t.testSize >= 1 {
		return nil, nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("test size must be in (0, 1), got %g", t.testSize))
	}
	if err := checkClasses(records); err != nil {
		return nil, nil, errs.WrapKind(op, errs.ErrInsufficientData, err)
	}

	vectors, y := schema.FromRecords(records)
	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		x[i] = v
	}

	rng := rand.New(rand.NewSource(t.seed)) //nolint:gosec // reproducible split
	trainIdx, testIdx := StratifiedSplit(y, t.testSize, rng)
	trainX, trainY := pick(x, y, trainIdx)
	testX, testY := pick(x, y, testIdx)

	pipeline := classifier.Pipeline{}
	fitX := trainX
	if t.standardize {
		basis := trainX
		if t.scaleBeforeSplit {
			basis = x
		}
		scaler, err := classifier.FitScaler(basis)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if fitX, err = scaler.TransformAll(trainX); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		pipeline.Scaler = scaler
	}

	forest := classifier.NewRandomForest(t.forestOpts...)
	if err := forest.Fit(fitX, trainY); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	pipeline.Model = forest

	report := &Report{
		ModelID:           uuid.NewString(),
		CreatedAt:         t.now().UTC(),
		TrainSize:         len(trainIdx),
		TestSize:          len(testIdx),
		Importances:       namedImportances(schema.Names(), pipeline.FeatureImportances()),
		Standardized:      t.standardize,
		ScaledBeforeSplit: t.standardize && t.scaleBeforeSplit,
	}
	if err := report.evaluate(&pipeline, testX, testY); err != nil {
		return nil, nil, fmt.Errorf("%s: evaluate: %w", op, err)
	}

	m := &classifier.Trained{
		ID:          report.ModelID,
		CreatedAt:   report.CreatedAt,
		Features:    schema.Names(),
		Fingerprint: schema.Fingerprint(),
		Pipeline:    pipeline,
		Evaluation: classifier.Evaluation{
			Accuracy:    report.Accuracy,
			TrainSize:   report.TrainSize,
			TestSize:    report.TestSize,
			Importances: report.ImportanceMap(),
		},
	}
	return m, report, nil
}

func checkClasses(records []model.Record) error {
	if len(records) == 0 {
		return errors.New("no records")
	}
	var pass, fail int
	for _, r := range records {
		if r.Result == model.Pass {
			pass++
		} else {
			fail++
		}
	}
	if pass < minPerClass || fail < minPerClass {
		return fmt.Errorf("need at least %d records of each class, got %d Pass and %d Fail", minPerClass, pass, fail)
	}
	return nil
}
