package metrics

import "errors"

var (
	// ErrGather wraps a failure to read metric families from a registry.
	ErrGather = errors.New("metrics gather failed")
	// ErrInvalidBuckets marks histogram bounds prometheus would reject.
	ErrInvalidBuckets = errors.New("invalid histogram buckets")
)
