package model

import "time"

// EventType names a domain event.
type EventType string

// Domain events emitted by the engine.
const (
	EventAssignmentCreated    EventType = "assignment.created"
	EventAssignmentReassigned EventType = "assignment.reassigned"
	EventAssignmentCompleted  EventType = "assignment.completed"
	EventPerformanceUpdated   EventType = "performance.updated"
)

// Event is published to external collaborators such as notifiers.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	ItemID       string         `json:"item_id,omitempty"`
	WorkerID     string         `json:"worker_id,omitempty"`
	AssignmentID string         `json:"assignment_id,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
