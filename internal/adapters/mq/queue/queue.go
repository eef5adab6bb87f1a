// Package queue buffers asynchronous allocation requests between the API
// and the worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

const defaultCapacity = 10000

// Request is the payload flowing through the queue.
type Request = model.Request

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds r or returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, r Request) error
	// Dequeue returns a channel closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Request
	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a bounded channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.requests <- r:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("%d pending: %w", q.capacity, ErrFull)
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for r := range q.requests {
			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len() int {
	return len(q.requests)
}

// Close stops intake. Pending requests remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
