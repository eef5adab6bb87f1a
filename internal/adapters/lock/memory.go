package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// MemoryLocker is an in-process Locker. Each key in use owns a one-slot
// channel; the entry is dropped once nobody holds or waits for the key.
type MemoryLocker struct {
	slots *xsync.Map[string, *slot]
}

// slot is a key's channel plus the number of holders and waiters. refs is
// only touched inside Compute.
type slot struct {
	ch   chan struct{}
	refs int
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: xsync.NewMap[string, *slot]()}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s, _ := l.slots.Compute(key, func(old *slot, loaded bool) (*slot, xsync.ComputeOp) {
		if !loaded {
			old = &slot{ch: make(chan struct{}, 1)}
		}
		old.refs++
		return old, xsync.UpdateOp
	})

	start := time.Now()
	select {
	case s.ch <- struct{}{}:
		metrics.RecordLockWait(float64(time.Since(start).Microseconds()) / 1000)
		return func() {
			<-s.ch
			l.leave(key)
		}, nil
	case <-ctx.Done():
		l.leave(key)
		metrics.RecordLockFailure()
		return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
	}
}

// leave drops one reference to key and removes the slot with the last one.
func (l *MemoryLocker) leave(key string) {
	l.slots.Compute(key, func(old *slot, loaded bool) (*slot, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.refs--
		if old.refs <= 0 {
			return nil, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}

// Len is the number of keys currently held or waited for.
func (l *MemoryLocker) Len() int { return l.slots.Size() }
