// Package repository defines the persistence contracts of the allocation
// engine and an in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
)

// WorkerFilter narrows ListWorkers. Zero values match everything.
type WorkerFilter struct {
	OrganizationID string
	AvailableOnly  bool
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	OrganizationID string
	Status         model.ItemStatus
	// NotHeldBy skips items ever assigned to this worker.
	NotHeldBy string
}

// Workers reads and writes worker profiles.
type Workers interface {
	CreateWorker(ctx context.Context, w model.Worker) error
	Worker(ctx context.Context, id string) (model.Worker, error)
	ListWorkers(ctx context.Context, f WorkerFilter) ([]model.Worker, error)
	// UpdateWorker applies fn to the stored worker atomically.
	UpdateWorker(ctx context.Context, id string, fn func(w *model.Worker) error) (model.Worker, error)
}

// Items reads and writes work items.
type Items interface {
	CreateItem(ctx context.Context, it model.WorkItem) error
	Item(ctx context.Context, id string) (model.WorkItem, error)
	ListItems(ctx context.Context, f ItemFilter) ([]model.WorkItem, error)
}

// Assignments owns assignment records and the state transitions that must
// change items, assignments and workload together.
type Assignments interface {
	Assignment(ctx context.Context, id string) (model.Assignment, error)
	// ActiveAssignment returns the active assignment of an item or ErrNotFound.
	ActiveAssignment(ctx context.Context, itemID string) (model.Assignment, error)
	AssignmentsByWorker(ctx context.Context, workerID string) ([]model.Assignment, error)
	AssignmentsByItem(ctx context.Context, itemID string) ([]model.Assignment, error)

	// CommitAssignment claims an open item: it appends a, moves the item to
	// assigned and adds a.EstimatedHours to the worker, or changes nothing and
	// returns ErrItemNotOpen.
	CommitAssignment(ctx context.Context, a model.Assignment) error

	// ReleaseItem cancels the item's active assignment with reason, returns
	// its estimated hours to the worker (floored at zero) and sets the item
	// to next. released is false when the item had no active assignment.
	ReleaseItem(ctx context.Context, itemID string, next model.ItemStatus, reason string, at time.Time) (released model.Assignment, ok bool, err error)

	// CompleteAssignment marks an active assignment completed, completes the
	// item and subtracts actualHours from the worker (floored at zero).
	CompleteAssignment(ctx context.Context, id string, actualHours float64, at time.Time) (model.Assignment, error)

	// ApplyCompletionGrowth runs fn on the assignment's worker once per
	// assignment. applied is false when growth was already recorded.
	ApplyCompletionGrowth(ctx context.Context, assignmentID string, fn func(w *model.Worker)) (applied bool, err error)
}

// Performance stores the append-only performance log.
type Performance interface {
	// RecordPerformance appends rec and copies its score, completion count
	// and average completion time onto the worker.
	RecordPerformance(ctx context.Context, rec model.PerformanceRecord) error
	LatestPerformance(ctx context.Context, workerID string) (model.PerformanceRecord, error)
	PerformanceHistory(ctx context.Context, workerID string, since time.Time) ([]model.PerformanceRecord, error)
	// SuccessHistory is the on-time tally of the worker's completed items,
	// maintained as assignments complete.
	SuccessHistory(ctx context.Context, workerID string) (*scoring.SuccessHistory, error)
}

// Totals is a point-in-time count used for gauges.
type Totals struct {
	Workers           int
	OpenItems         int
	ActiveAssignments int
}

// Store is the full persistence contract.
type Store interface {
	Workers
	Items
	Assignments
	Performance
	Totals(ctx context.Context) Totals
}
