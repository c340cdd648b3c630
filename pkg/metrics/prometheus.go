// Package metrics provides Prometheus metrics for the edupredict pipeline.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Dataset generation
	recordsGenerated *prometheus.CounterVec

	// Training
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	modelAccuracy    prometheus.Gauge
	trainingRecords  *prometheus.GaugeVec

	// Inference
	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	predictionErrors  *prometheus.CounterVec
	modelLoads        *prometheus.CounterVec

	// History
	historyQueueSize *prometheus.GaugeVec
	historyEnqueued  *prometheus.CounterVec
	historyWrites    *prometheus.CounterVec
	historyWorkers   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// The global manager and the registry it writes to. Both are swapped
// together by Configure.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // process-wide metrics
	globalRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // process-wide metrics
)

func init() { //nolint:gochecknoinits // metrics are usable before Configure
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before metrics are served. A registry passed
// in opts is ignored.
func Configure(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(reg))...)
	globalRegistry.Store(reg)
	globalManager.Store(m)
	return m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "edupredict",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_generated_total",
		Help:      "Synthetic student records generated, by result label",
	}, []string{"result"})

	m.trainingRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_runs_total",
		Help:      "Training runs by outcome (ok, error)",
	}, []string{"outcome"})

	m.trainingDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_duration_seconds",
		Help:      "Wall time of a full training run",
		Buckets:   m.histogramBuckets,
	})

	m.modelAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_accuracy_ratio",
		Help:      "Held-out accuracy of the most recently trained model",
	})

	m.trainingRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_records",
		Help:      "Records used by the last training run, by split",
	}, []string{"split"})

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_total",
		Help:      "Predictions served, by predicted label",
	}, []string{"result"})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_seconds",
		Help:      "Latency of a single prediction including feature parsing",
		Buckets:   m.histogramBuckets,
	})

	m.predictionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_errors_total",
		Help:      "Rejected prediction requests, by error kind",
	}, []string{"kind"})

	m.modelLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_loads_total",
		Help:      "Model artifact loads, by source (disk, cache)",
	}, []string{"source"})

	m.historyQueueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "history",
		Name:      "queue_entries",
		Help:      "Prediction history queue length and capacity",
	}, []string{"kind"})

	m.historyEnqueued = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "history",
		Name:      "enqueued_total",
		Help:      "History entries offered to the queue, by outcome (accepted, full, closed)",
	}, []string{"outcome"})

	m.historyWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "history",
		Name:      "writes_total",
		Help:      "History entries written by workers, by outcome (ok, error)",
	}, []string{"outcome"})

	m.historyWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "history",
		Name:      "workers",
		Help:      "Running history writer workers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint, error type and severity",
	}, []string{"endpoint", "type", "severity"})
}

// RecordGenerated counts generated records with the given result label.
func (m *Manager) RecordGenerated(result string, n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.recordsGenerated.WithLabelValues(result).Add(float64(n))
}

// RecordTraining records the outcome of a training run.
func (m *Manager) RecordTraining(outcome string, seconds float64) {
	if !m.enabled {
		return
	}
	m.trainingRuns.WithLabelValues(outcome).Inc()
	m.trainingDuration.Observe(seconds)
}

// SetModelAccuracy publishes the held-out accuracy of the latest model.
func (m *Manager) SetModelAccuracy(accuracy float64) {
	if !m.enabled {
		return
	}
	m.modelAccuracy.Set(accuracy)
}

// SetTrainingRecords publishes split sizes of the latest training run.
func (m *Manager) SetTrainingRecords(train, test int) {
	if !m.enabled {
		return
	}
	m.trainingRecords.WithLabelValues("train").Set(float64(train))
	m.trainingRecords.WithLabelValues("test").Set(float64(test))
}

// RecordPrediction counts a served prediction and its latency.
func (m *Manager) RecordPrediction(result string, seconds float64) {
	if !m.enabled {
		return
	}
	m.predictions.WithLabelValues(result).Inc()
	m.predictionLatency.Observe(seconds)
}

// RecordPredictionError counts a rejected prediction.
func (m *Manager) RecordPredictionError(kind string) {
	if !m.enabled {
		return
	}
	m.predictionErrors.WithLabelValues(kind).Inc()
}

// RecordModelLoad counts a model load from disk or cache.
func (m *Manager) RecordModelLoad(source string) {
	if !m.enabled {
		return
	}
	m.modelLoads.WithLabelValues(source).Inc()
}

// UpdateHistoryQueue publishes the history queue length and capacity.
func (m *Manager) UpdateHistoryQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.historyQueueSize.WithLabelValues("size").Set(float64(size))
	m.historyQueueSize.WithLabelValues("capacity").Set(float64(capacity))
}

// RecordHistoryEnqueue counts an offer to the history queue.
func (m *Manager) RecordHistoryEnqueue(outcome string) {
	if !m.enabled {
		return
	}
	m.historyEnqueued.WithLabelValues(outcome).Inc()
}

// RecordHistoryWrite counts a history write.
func (m *Manager) RecordHistoryWrite(outcome string) {
	if !m.enabled {
		return
	}
	m.historyWrites.WithLabelValues(outcome).Inc()
}

// UpdateHistoryWorkers publishes the number of running history workers.
func (m *Manager) UpdateHistoryWorkers(n int) {
	if !m.enabled {
		return
	}
	m.historyWorkers.Set(float64(n))
}

// RecordHTTPRequest counts an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordHTTPError counts an error response.
func (m *Manager) RecordHTTPError(endpoint, errorType, severity string) {
	if !m.enabled {
		return
	}
	m.httpErrors.WithLabelValues(endpoint, errorType, severity).Inc()
}

// Package-level helpers delegate to the global manager.

// RecordGenerated counts generated records on the global manager.
func RecordGenerated(result string, n int) { globalManager.Load().RecordGenerated(result, n) }

// RecordTraining records a training run on the global manager.
func RecordTraining(outcome string, seconds float64) {
	globalManager.Load().RecordTraining(outcome, seconds)
}

// SetModelAccuracy sets the accuracy gauge on the global manager.
func SetModelAccuracy(accuracy float64) { globalManager.Load().SetModelAccuracy(accuracy) }

// SetTrainingRecords sets the split-size gauges on the global manager.
func SetTrainingRecords(train, test int) { globalManager.Load().SetTrainingRecords(train, test) }

// RecordPrediction counts a prediction on the global manager.
func RecordPrediction(result string, seconds float64) {
	globalManager.Load().RecordPrediction(result, seconds)
}

// RecordPredictionError counts a rejected prediction on the global manager.
func RecordPredictionError(kind string) { globalManager.Load().RecordPredictionError(kind) }

// RecordModelLoad counts a model load on the global manager.
func RecordModelLoad(source string) { globalManager.Load().RecordModelLoad(source) }

// UpdateHistoryQueue publishes history queue gauges on the global manager.
func UpdateHistoryQueue(size, capacity int) { globalManager.Load().UpdateHistoryQueue(size, capacity) }

// RecordHistoryEnqueue counts a history queue offer on the global manager.
func RecordHistoryEnqueue(outcome string) { globalManager.Load().RecordHistoryEnqueue(outcome) }

// RecordHistoryWrite counts a history write on the global manager.
func RecordHistoryWrite(outcome string) { globalManager.Load().RecordHistoryWrite(outcome) }

// UpdateHistoryWorkers publishes the worker gauge on the global manager.
func UpdateHistoryWorkers(n int) { globalManager.Load().UpdateHistoryWorkers(n) }

// RecordHTTPRequest counts an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	globalManager.Load().RecordHTTPRequest(endpoint, method, statusCode, seconds)
}

// RecordHTTPError counts an error response on the global manager.
func RecordHTTPError(endpoint, errorType, severity string) {
	globalManager.Load().RecordHTTPError(endpoint, errorType, severity)
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return globalRegistry.Load()
}

// CounterValue sums a counter family from g across all label sets.
// Gauges are summed the same way.
func CounterValue(g prometheus.Gatherer, name string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGather, err)
	}
	var total float64
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			total += counterOrGauge(metric)
		}
	}
	return total, nil
}

func counterOrGauge(metric *dto.Metric) float64 {
	if c := metric.GetCounter(); c != nil {
		return c.GetValue()
	}
	if g := metric.GetGauge(); g != nil {
		return g.GetValue()
	}
	return 0
}
