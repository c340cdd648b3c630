package service

import (
	"math/rand"

	"github.com/okian/edupredict/internal/config"
	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/training"
	"github.com/okian/edupredict/pkg/logger"
	"github.com/okian/edupredict/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDatasetPath sets the default dataset CSV location.
func WithDatasetPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.datasetPath = path
		}
	}
}

// WithModelPath sets the default artifact location.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithReportPath sets where training reports are written as YAML.
func WithReportPath(path string) Option {
	return func(s *Service) {
		s.reportPath = path
	}
}

// WithHistoryDB sets the sqlite file for prediction history. An empty path
// disables history.
func WithHistoryDB(path string) Option {
	return func(s *Service) {
		s.historyDB = path
	}
}

// WithHistoryWorkers sets the number of history writer workers.
func WithHistoryWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWorkers = n
		}
	}
}

// WithHistoryQueueSize bounds the number of pending history writes.
func WithHistoryQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyQueueSize = n
		}
	}
}

// WithDedupeSize bounds the number of request IDs remembered.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithModelCacheSize bounds the number of artifacts kept in memory.
func WithModelCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithRecordCount sets the default number of generated records.
func WithRecordCount(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.recordCount = n
		}
	}
}

// WithRand sets the random source used for dataset generation.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithTrainerOptions appends training options.
func WithTrainerOptions(opts ...training.Option) Option {
	return func(s *Service) {
		s.trainerOpts = append(s.trainerOpts, opts...)
	}
}

// FromConfig translates a loaded Config into service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithDatasetPath(cfg.DatasetPath),
		WithModelPath(cfg.ModelPath),
		WithReportPath(cfg.ReportPath),
		WithHistoryDB(cfg.HistoryDB),
		WithModelCacheSize(cfg.ModelCacheSize),
		WithRecordCount(cfg.RecordCount),
		WithHistoryWorkers(cfg.HistoryWorkers),
		WithHistoryQueueSize(cfg.HistoryQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithTrainerOptions(
			training.WithTestSize(cfg.TestSize),
			training.WithSeed(cfg.Seed),
			training.WithStandardize(cfg.Standardize),
			training.WithScaleBeforeSplit(cfg.ScaleBeforeSplit),
			training.WithForestOptions(
				classifier.WithTrees(cfg.Trees),
				classifier.WithMaxDepth(cfg.MaxDepth),
				classifier.WithMinSamplesSplit(cfg.MinSamplesSplit),
				classifier.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
				classifier.WithSeed(cfg.Seed),
			),
		),
	}
}

// MetricsOptions translates the metrics settings of cfg for metrics.Configure.
func MetricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	}
}
