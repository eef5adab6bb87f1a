// Package worker runs queued allocation requests on a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Handler executes one request.
type Handler interface {
	Handle(ctx context.Context, r model.Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, r model.Request) error

func (f HandlerFunc) Handle(ctx context.Context, r model.Request) error { return f(ctx, r) }

// Queue is where workers read requests from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Request
}

// InMemoryWorker drains a Queue into a Handler.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	busy      *atomic.Int64
	processed *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		handler:   h,
		name:      "worker",
		busy:      new(atomic.Int64),
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes requests until ctx ends, Shutdown is called or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "request failed",
					logger.String("request_id", r.ID),
					logger.String("kind", string(r.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after its current request.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r model.Request) error {
	w.busy.Add(1)
	start := time.Now()
	defer func() {
		w.busy.Add(-1)
		w.processed.Add(1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, r); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", string(r.Kind))
		return fmt.Errorf("%s %s: %w", r.Kind, r.ID, err)
	}
	return nil
}

// Pool manages a fixed set of workers reading the same queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	busy      atomic.Int64
	processed atomic.Int64
	lastTick  time.Time

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates count workers. count < 1 means twice the CPU count.
func NewPool(count int, q Queue, h Handler, opts ...PoolOption) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * 2
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, count),
		queue:    q,
		lastTick: time.Now(),
		shutdown: make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, h, WithName("worker-"+strconv.Itoa(i)), WithLogger(p.logger))
		w.busy = &p.busy
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(count)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(count)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Start launches every worker and the metrics updater.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.runMetrics(ctx)
}

// Processed returns the number of requests handled so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

func (p *Pool) runMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			total := p.processed.Load()
			if dt := now.Sub(p.lastTick).Seconds(); dt > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(total-last) / dt)
			}
			last, p.lastTick = total, now
			busy := int(p.busy.Load())
			metrics.UpdateWorkerActiveCount(busy)
			metrics.UpdateWorkerIdleCount(len(p.workers) - busy)
		}
	}
}

// Shutdown closes the queue when it can be closed and waits for workers to
// drain it. Workers on a queue without Close stop after their current request.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	} else {
		for _, w := range p.workers {
			close(w.shutdown)
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	var timedOut int
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
		}
	}
	if timedOut > 0 {
		p.logger.Warn(ctx, "workers did not stop in time", logger.Int("count", timedOut))
		return fmt.Errorf("%d workers still running: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
