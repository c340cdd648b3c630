// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and EDUPREDICT_* env vars over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"

	"github.com/okian/edupredict/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, also writes JSON logs to a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address for serve, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatasetPath is where generate writes and train reads the CSV.
	DatasetPath string `koanf:"dataset_path"`

	// ModelPath is where train writes and predict reads the artifact.
	ModelPath string `koanf:"model_path"`

	// ReportPath, when set, receives the training report as YAML.
	ReportPath string `koanf:"report_path"`

	// HistoryDB is the sqlite file holding served predictions. Empty disables history.
	HistoryDB string `koanf:"history_db"`

	// RecordCount is the default number of generated records.
	RecordCount int `koanf:"record_count"`

	// Forest hyper-parameters.
	Trees           int `koanf:"n_estimators"`
	MaxDepth        int `koanf:"max_depth"`
	MinSamplesSplit int `koanf:"min_samples_split"`
	MinSamplesLeaf  int `koanf:"min_samples_leaf"`

	// TestSize is the held-out fraction, in (0, 1).
	TestSize float64 `koanf:"test_size"`

	// Seed drives the split and the forest.
	Seed int64 `koanf:"seed"`

	// Standardize enables the feature scaler.
	Standardize bool `koanf:"standardize"`

	// ScaleBeforeSplit fits the scaler on all records before splitting.
	ScaleBeforeSplit bool `koanf:"scale_before_split"`

	// ModelCacheSize bounds the number of artifacts kept in memory by serve.
	ModelCacheSize int `koanf:"model_cache_size"`

	// HistoryWorkers is the number of goroutines writing prediction history.
	HistoryWorkers int `koanf:"history_workers"`

	// HistoryQueueSize bounds pending history writes.
	HistoryQueueSize int `koanf:"history_queue_size"`

	// DedupeSize is the number of recent request IDs remembered so a retried
	// request is recorded once.
	DedupeSize int `koanf:"dedupe_size"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram bounds, in seconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		DatasetPath:     "data/student_performance.csv",
		ModelPath:       "models/student_model.json.gz",
		HistoryDB:       "data/predictions.db",
		RecordCount:     1000,
		Trees:           200,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		TestSize:        0.25,
		Seed:            42,
		Standardize:     true,
		ModelCacheSize:  4,

		HistoryWorkers:   2,
		HistoryQueueSize: 1024,
		DedupeSize:       50_000,

		MetricsEnabled:   true,
		MetricsNamespace: "edupredict",
		MetricsSubsystem: "pipeline",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatasetPath == "":
		return fmt.Errorf("%w: dataset_path must not be empty", ErrInvalidConfig)
	case c.ModelPath == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.RecordCount < 0:
		return fmt.Errorf("%w: record_count must be >= 0, got %d", ErrInvalidConfig, c.RecordCount)
	case c.Trees < 1:
		return fmt.Errorf("%w: n_estimators must be >= 1, got %d", ErrInvalidConfig, c.Trees)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.MinSamplesSplit < 2:
		return fmt.Errorf("%w: min_samples_split must be >= 2, got %d", ErrInvalidConfig, c.MinSamplesSplit)
	case c.MinSamplesLeaf < 1:
		return fmt.Errorf("%w: min_samples_leaf must be >= 1, got %d", ErrInvalidConfig, c.MinSamplesLeaf)
	case c.TestSize <= 0 || c.TestSize >= 1:
		return fmt.Errorf("%w: test_size must be in (0, 1), got %g", ErrInvalidConfig, c.TestSize)
	case c.ModelCacheSize < 1:
		return fmt.Errorf("%w: model_cache_size must be >= 1, got %d", ErrInvalidConfig, c.ModelCacheSize)
	case c.HistoryWorkers < 1:
		return fmt.Errorf("%w: history_workers must be >= 1, got %d", ErrInvalidConfig, c.HistoryWorkers)
	case c.HistoryQueueSize < 1:
		return fmt.Errorf("%w: history_queue_size must be >= 1, got %d", ErrInvalidConfig, c.HistoryQueueSize)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be >= 1, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	if err := metrics.ValidateBuckets(c.MetricsBuckets); err != nil {
		return fmt.Errorf("%w: metrics_buckets: %w", ErrInvalidConfig, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
