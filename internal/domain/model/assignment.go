package model

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Assignment binds an item to a worker. Records are never deleted.
type Assignment struct {
	ID       string
	ItemID   string
	WorkerID string
	Strategy string

	SkillMatch       float64
	WorkloadScore    float64
	PerformanceScore float64
	ExperienceScore  float64
	OverallScore     float64
	EstimatedHours   float64
	ActualHours      *float64

	Status             AssignmentStatus
	Reason             string
	ReassignedAt       *time.Time
	ReassignmentReason string
	SkillGrowthApplied bool

	AssignedAt  time.Time
	CompletedAt *time.Time
}

// Clone returns a copy that shares no pointers.
func (a Assignment) Clone() Assignment {
	if a.ActualHours != nil {
		h := *a.ActualHours
		a.ActualHours = &h
	}
	if a.ReassignedAt != nil {
		t := *a.ReassignedAt
		a.ReassignedAt = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}

// CompletedOnTime reports whether a completed assignment finished on or
// before due. Items without a due date never count as on time.
func (a Assignment) CompletedOnTime(due *time.Time) bool {
	return a.CompletedAt != nil && due != nil && !a.CompletedAt.After(*due)
}
