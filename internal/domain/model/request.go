package model

import "time"

// RequestKind selects what a queued request asks for.
type RequestKind string

// Request kinds.
const (
	RequestAssign   RequestKind = "assign"
	RequestBackfill RequestKind = "backfill"
)

// Request is an asynchronous allocation request processed by the worker pool.
type Request struct {
	ID         string // unique id for idempotency
	Kind       RequestKind
	ItemID     string // for assign
	WorkerID   string // for backfill
	Strategy   string
	EnqueuedAt time.Time
}
