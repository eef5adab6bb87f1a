package worker

import "github.com/shaanlabs/Tekista/pkg/logger"

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if log != nil {
			w.logger = log
		}
	}
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger shared by the pool and its workers.
func WithPoolLogger(log logger.Logger) PoolOption {
	return func(p *Pool) {
		if log != nil {
			p.logger = log
		}
	}
}
