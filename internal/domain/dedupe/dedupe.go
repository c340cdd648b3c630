// Package dedupe remembers recent request IDs so a retried prediction
// request is recorded in the history at most once.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize is the number of IDs remembered when no size is given.
const DefaultMaxSize = 50_000

// Deduper records seen request IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later retry is recorded. Used when the entry
	// was marked as seen but could not be queued.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of remembered IDs.
	Size() int64
}

// lruDeduper keeps the most recently added IDs; the oldest is evicted once
// maxSize is reached.
type lruDeduper struct {
	maxSize int
	seen    *lru.Cache[string, struct{}]
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	// The size is always positive here, so New cannot fail.
	d.seen, _ = lru.New[string, struct{}](d.maxSize)
	return d
}

// SeenAndRecord implements Deduper.
func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	seen, _ := d.seen.ContainsOrAdd(id, struct{}{})
	return seen
}

// Unrecord implements Deduper.
func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.seen.Remove(id)
}

// Size implements Deduper.
func (d *lruDeduper) Size() int64 {
	return int64(d.seen.Len())
}
