package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/pkg/metrics"
)

// DefaultCacheSize is the number of artifacts kept in memory.
const DefaultCacheSize = 4

// Model load sources reported to metrics.
const (
	SourceDisk  = "disk"
	SourceCache = "cache"
)

type cached struct {
	model   *classifier.Trained
	modTime time.Time
	size    int64
}

// Cache keeps recently loaded artifacts keyed by path. An entry is reused
// only while the file's size and modification time are unchanged, so a
// retrained artifact replaced on disk is picked up on the next lookup.
type Cache struct {
	entries *lru.Cache[string, cached]
}

// NewCache returns a cache holding up to size artifacts.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cached](size)
	if err != nil {
		return nil, fmt.Errorf("artifact.cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Load returns the artifact at path, reading it from disk when it is not
// cached or has changed.
func (c *Cache) Load(path string) (*classifier.Trained, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.WrapKind("artifact.cache", errs.ErrNotFound, err)
		}
		return nil, fmt.Errorf("artifact.cache: %w", err)
	}

	if e, ok := c.entries.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		metrics.RecordModelLoad(SourceCache)
		return e.model, nil
	}

	m, err := Load(path)
	if err != nil {
		c.entries.Remove(path)
		return nil, err
	}
	metrics.RecordModelLoad(SourceDisk)
	c.entries.Add(path, cached{model: m, modTime: info.ModTime(), size: info.Size()})
	return m, nil
}

// Invalidate drops path from the cache.
func (c *Cache) Invalidate(path string) {
	c.entries.Remove(path)
}

// Len reports the number of cached artifacts.
func (c *Cache) Len() int {
	return c.entries.Len()
}
