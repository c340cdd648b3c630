package dedupe

// Option applies a configuration option to the deduper.
type Option func(*lruDeduper)

// WithMaxSize sets the maximum number of IDs to keep in memory. Values
// below one keep the default.
func WithMaxSize(maxSize int) Option {
	return func(d *lruDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
