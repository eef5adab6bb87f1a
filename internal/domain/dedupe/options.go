package dedupe

import "time"

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids; the oldest is evicted first.
// maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets ids after ttl so a request can be repeated later.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		d.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
