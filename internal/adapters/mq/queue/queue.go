// Package queue buffers prediction history entries between the request path
// and the history writers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/edupredict/internal/adapters/repository"
	"github.com/okian/edupredict/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Enqueue outcomes reported to metrics.
const (
	outcomeAccepted  = "accepted"
	outcomeFull      = "full"
	outcomeClosed    = "closed"
	outcomeCancelled = "cancelled"
)

// Entry is the payload type flowing through the queue.
type Entry = repository.Entry

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an entry to the queue.
	// Returns false if the queue is full or closed and the entry was dropped.
	Enqueue(ctx context.Context, e Entry) bool

	// Dequeue returns a channel that receives entries as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Entry

	// Len returns the current number of queued entries.
	Len(ctx context.Context) int

	// Close stops accepting entries. Queued entries remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	entries  chan Entry
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.entries = make(chan Entry, q.capacity)
	metrics.UpdateHistoryQueue(0, q.capacity)
	return q
}

// Enqueue adds an entry to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Entry) bool { //nolint:gocritic // hugeParam: entries are passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordHistoryEnqueue(outcomeClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordHistoryEnqueue(outcomeCancelled)
		return false
	}

	select {
	case q.entries <- e:
		metrics.RecordHistoryEnqueue(outcomeAccepted)
		metrics.UpdateHistoryQueue(len(q.entries), q.capacity)
		return true
	default:
		metrics.RecordHistoryEnqueue(outcomeFull)
		return false
	}
}

// Dequeue returns the receive side of the queue. Consumers should range over
// it; the context is accepted for interface symmetry.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Entry {
	return q.entries
}

// Len returns the current number of queued entries.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.entries)
	metrics.UpdateHistoryQueue(size, q.capacity)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting entries.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.entries)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
