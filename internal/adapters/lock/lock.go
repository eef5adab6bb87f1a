// Package lock provides keyed mutual exclusion for read-modify-write
// sequences on a single entity, in-process or across instances via Redis.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the context ends before the lock is held.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work per key. The returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// WorkerKey is the lock key guarding a worker's derived state.
func WorkerKey(workerID string) string { return "worker:" + workerID }

// ItemKey is the lock key guarding an item's assignment.
func ItemKey(itemID string) string { return "item:" + itemID }
