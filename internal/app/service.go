// Package service orchestrates dataset generation, training and serving
// predictions on top of the domain packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/edupredict/internal/adapters/artifact"
	"github.com/okian/edupredict/internal/adapters/csvstore"
	"github.com/okian/edupredict/internal/adapters/mq/queue"
	"github.com/okian/edupredict/internal/adapters/mq/worker"
	"github.com/okian/edupredict/internal/adapters/repository"
	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/dataset"
	"github.com/okian/edupredict/internal/domain/dedupe"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/predict"
	"github.com/okian/edupredict/internal/domain/schema"
	"github.com/okian/edupredict/internal/domain/training"
	"github.com/okian/edupredict/pkg/logger"
	"github.com/okian/edupredict/pkg/metrics"
)

// Default service configuration.
const (
	DefaultDatasetPath      = "data/student_performance.csv"
	DefaultModelPath        = "models/student_model.json.gz"
	DefaultRecordCount      = 1000
	DefaultHistoryWorkers   = 2
	DefaultHistoryQueueSize = 1024
)

// Service wires the generator, trainer, predictor and prediction history.
type Service struct {
	logger logger.Logger

	datasetPath string
	modelPath   string
	reportPath  string
	historyDB   string
	recordCount int
	cacheSize   int
	trainerOpts []training.Option

	historyWorkers   int
	historyQueueSize int
	dedupeSize       int

	rngMu sync.Mutex
	rng   *rand.Rand

	cache  *artifact.Cache
	dedupe dedupe.Deduper

	mu      sync.RWMutex
	started bool
	store   repository.Store
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
}

// New constructs a Service with default configuration.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger:           logger.Nop(),
		datasetPath:      DefaultDatasetPath,
		modelPath:        DefaultModelPath,
		recordCount:      DefaultRecordCount,
		cacheSize:        artifact.DefaultCacheSize,
		historyWorkers:   DefaultHistoryWorkers,
		historyQueueSize: DefaultHistoryQueueSize,
		dedupeSize:       dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // synthetic data only
	}
	cache, err := artifact.NewCache(s.cacheSize)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	s.dedupe = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s, nil
}

// DatasetPath returns the default dataset location.
func (s *Service) DatasetPath() string { return s.datasetPath }

// ModelPath returns the default artifact location.
func (s *Service) ModelPath() string { return s.modelPath }

// RecordCount returns the default number of generated records.
func (s *Service) RecordCount() int { return s.recordCount }

// Generate writes count synthetic records to out. An empty out uses the
// configured dataset path.
func (s *Service) Generate(ctx context.Context, count int, out string) (dataset.Summary, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Summary{}, err
	}
	if out == "" {
		out = s.datasetPath
	}

	s.rngMu.Lock()
	records, err := dataset.NewGenerator(s.rng).Generate(count)
	s.rngMu.Unlock()
	if err != nil {
		return dataset.Summary{}, err
	}
	if err := csvstore.Write(out, records); err != nil {
		return dataset.Summary{}, err
	}

	summary := dataset.Summarize(records)
	metrics.RecordGenerated(string(model.Pass), summary.Pass)
	metrics.RecordGenerated(string(model.Fail), summary.Fail)
	s.logger.Info(ctx, "dataset generated",
		logger.String("path", out),
		logger.Int("records", summary.Total),
		logger.Float64("pass_rate", summary.PassRate()))
	return summary, nil
}

// Train fits a model on the dataset at data, saves the artifact to out and,
// when a report path is known, the evaluation report as YAML. Empty paths
// fall back to the configured ones.
func (s *Service) Train(ctx context.Context, data, out, report string) (*classifier.Trained, *training.Report, error) {
	if data == "" {
		data = s.datasetPath
	}
	if out == "" {
		out = s.modelPath
	}
	if report == "" {
		report = s.reportPath
	}

	records, err := csvstore.Read(data)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	m, rep, err := training.New(s.trainerOpts...).Train(ctx, records)
	if err != nil {
		metrics.RecordTraining("error", time.Since(start).Seconds())
		return nil, nil, err
	}
	if err := artifact.Save(out, m); err != nil {
		metrics.RecordTraining("error", time.Since(start).Seconds())
		return nil, nil, err
	}
	s.cache.Invalidate(out)
	if rep.ScaledBeforeSplit {
		s.logger.Warn(ctx, "scaler fit on all records before the split; evaluation will be optimistic",
			logger.String("model_id", m.ID))
	}

	if report != "" {
		if err := rep.SaveYAML(report); err != nil {
			s.logger.Warn(ctx, "failed to write training report", logger.String("path", report), logger.Error(err))
		}
	}

	metrics.RecordTraining("ok", time.Since(start).Seconds())
	metrics.SetModelAccuracy(rep.Accuracy)
	metrics.SetTrainingRecords(rep.TrainSize, rep.TestSize)
	s.logger.Info(ctx, "model trained",
		logger.String("model_id", m.ID),
		logger.String("path", out),
		logger.Float64("accuracy", rep.Accuracy),
		logger.Int("train_size", rep.TrainSize),
		logger.Int("test_size", rep.TestSize))
	return m, rep, nil
}

// PredictArgs parses command-line arguments, either one JSON object or four
// positional values, and classifies them with the artifact at path.
func (s *Service) PredictArgs(ctx context.Context, path string, args []string) (predict.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return predict.Prediction{}, err
	}
	if path == "" {
		path = s.modelPath
	}
	v, err := predict.ParseArgs(args)
	if err != nil {
		metrics.RecordPredictionError(errs.KindName(err))
		return predict.Prediction{}, err
	}
	served, err := s.predictWith(ctx, path, predict.Request{Features: v})
	return served.Prediction, err
}

// Predict classifies req with the configured artifact and records the
// result in the prediction history when it is enabled. A request ID seen
// before is served again without a second history entry.
func (s *Service) Predict(ctx context.Context, req predict.Request) (predict.Served, error) {
	return s.predictWith(ctx, s.modelPath, req)
}

func (s *Service) predictWith(ctx context.Context, path string, req predict.Request) (predict.Served, error) {
	start := time.Now()
	m, err := s.cache.Load(path)
	if err != nil {
		metrics.RecordPredictionError(errs.KindName(err))
		return predict.Served{}, err
	}
	p, err := predict.Predict(m, req.Features)
	if err != nil {
		metrics.RecordPredictionError(errs.KindName(err))
		return predict.Served{}, err
	}
	metrics.RecordPrediction(string(p.Result), time.Since(start).Seconds())

	served := predict.Served{
		Prediction: p,
		ModelID:    m.ID,
		StudentID:  req.StudentID,
		RequestID:  req.RequestID,
	}
	s.record(ctx, served, req.Features)
	return served, nil
}

func (s *Service) record(ctx context.Context, served predict.Served, v schema.Vector) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	if served.RequestID != "" && s.dedupe.SeenAndRecord(ctx, served.RequestID) {
		metrics.RecordHistoryEnqueue("duplicate")
		s.logger.Debug(ctx, "duplicate request not recorded", logger.String("request_id", served.RequestID))
		return
	}
	e := repository.Entry{
		StudentID:       served.StudentID,
		ModelID:         served.ModelID,
		Attendance:      v[0],
		StudyHours:      v[1],
		PreviousMarks:   v[2],
		AssignmentScore: v[3],
		Result:          string(served.Result),
		Probability:     served.Probability,
	}
	if !q.Enqueue(ctx, e) {
		if served.RequestID != "" {
			s.dedupe.Unrecord(ctx, served.RequestID)
		}
		s.logger.Warn(ctx, "prediction history entry dropped", logger.String("student_id", served.StudentID))
	}
}

// CurrentModel returns the artifact currently served.
func (s *Service) CurrentModel(_ context.Context) (*classifier.Trained, error) {
	return s.cache.Load(s.modelPath)
}

// History returns stored predictions for studentID, or the most recent
// predictions across all students when studentID is empty.
func (s *Service) History(ctx context.Context, studentID string, limit int) ([]repository.Entry, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, errs.WrapKind("service.history", errs.ErrNotFound, ErrHistoryDisabled)
	}
	if studentID == "" {
		return store.Recent(ctx, limit)
	}
	return store.History(ctx, studentID, limit)
}

// Start opens the prediction history, when configured, and starts its
// writers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if s.historyDB != "" {
		store, err := repository.Open(ctx, s.historyDB)
		if err != nil {
			return fmt.Errorf("open prediction history: %w", err)
		}
		q := queue.NewInMemoryQueue(queue.WithCapacity(s.historyQueueSize))
		pool := worker.NewPool(s.historyWorkers, q, store, worker.WithLogger(s.logger))
		pool.Start(ctx)
		s.store, s.queue, s.pool = store, q, pool
	}
	s.started = true

	s.logger.Info(ctx, "service started",
		logger.String("model_path", s.modelPath),
		logger.Bool("history", s.store != nil),
		logger.Int("history_workers", s.historyWorkers))
	return nil
}

// Stop drains pending history writes and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	var errList []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	s.store, s.queue, s.pool = nil, nil, nil

	s.logger.Info(ctx, "service stopped")
	return errors.Join(errList...)
}

// GetStats returns runtime statistics.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"model_path":    s.modelPath,
		"cached_models": s.cache.Len(),
		"history":       s.store != nil,
		"request_ids":   s.dedupe.Size(),
	}
	if s.queue != nil {
		stats["history_queue"] = s.queue.Len(ctx)
		stats["history_queue_capacity"] = s.queue.Cap()
	}
	if s.store != nil {
		if n, err := s.store.Count(ctx); err == nil {
			stats["history_entries"] = n
		}
	}
	return stats
}
