// Package worker drains the history queue into the prediction store.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/edupredict/internal/adapters/mq/queue"
	"github.com/okian/edupredict/pkg/logger"
	"github.com/okian/edupredict/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultWriteTimeout = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Write outcomes reported to metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Entry is what workers read off the queue.
type Entry = queue.Entry

// Writer persists one history entry.
type Writer interface {
	Save(ctx context.Context, e Entry) (int64, error)
}

// Queue defines how workers receive entries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Entry
}

// Worker writes queued entries until the queue is closed and drained.
type Worker struct {
	queue        Queue
	writer       Writer
	name         string
	writeTimeout time.Duration
	logger       logger.Logger
	done         chan struct{}
}

// NewWorker creates a new worker with configuration options.
func NewWorker(q Queue, w Writer, opts ...Option) *Worker {
	wk := &Worker{
		queue:        q,
		writer:       w,
		name:         "history-writer",
		writeTimeout: defaultWriteTimeout,
		logger:       logger.Nop(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(wk)
	}
	wk.logger = wk.logger.Named(wk.name)
	return wk
}

// Run processes entries until the queue channel closes. Entries still
// buffered when ctx is cancelled are written with a fresh deadline each so
// shutdown does not lose accepted history.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for e := range w.queue.Dequeue(ctx) {
		base := ctx
		if ctx.Err() != nil {
			base = context.WithoutCancel(ctx)
		}
		if err := w.write(base, e); err != nil {
			w.logger.Error(ctx, "history write failed", logger.String("student_id", e.StudentID), logger.Error(err))
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) write(ctx context.Context, e Entry) error { //nolint:gocritic // hugeParam: entries are passed by value for channel semantics
	writeCtx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	if _, err := w.writer.Save(writeCtx, e); err != nil {
		metrics.RecordHistoryWrite(outcomeError)
		return fmt.Errorf("save history for %q: %w", e.StudentID, err)
	}
	metrics.RecordHistoryWrite(outcomeOK)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
	start   sync.Once
}

// NewPool creates a new worker pool. A count below one uses the default.
func NewPool(count int, q Queue, w Writer, opts ...Option) *Pool {
	if count < 1 {
		count = defaultWorkerCount
	}
	probe := &Worker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}
	pool := &Pool{
		workers: make([]*Worker, count),
		queue:   q,
		logger:  probe.logger.Named("history-pool"),
	}
	for i := range pool.workers {
		workerOpts := append([]Option{WithName("history-writer-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewWorker(q, w, workerOpts...)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start runs all workers. Calling it twice has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.start.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		metrics.UpdateHistoryWorkers(len(p.workers))
	})
}

// Shutdown closes the queue, if it can be closed, and waits for the workers
// to drain it or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("history workers did not drain: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateHistoryWorkers(0)
	return nil
}
