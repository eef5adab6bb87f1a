package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority of a work item.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a string to a Priority. Empty means medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// ItemStatus is the lifecycle state of a work item.
type ItemStatus string

// Item statuses.
const (
	ItemOpen       ItemStatus = "open"
	ItemAssigned   ItemStatus = "assigned"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemCancelled  ItemStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s ItemStatus) Terminal() bool {
	return s == ItemCompleted || s == ItemCancelled
}

// Difficulty bounds.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// WorkItem is a discrete unit of work.
type WorkItem struct {
	ID             string
	OrganizationID string
	ProjectID      string
	Title          string
	RequiredSkills []string
	Difficulty     int
	Priority       Priority
	DueDate        *time.Time
	Status         ItemStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Overdue reports whether the due date is strictly before now.
func (it WorkItem) Overdue(now time.Time) bool {
	return it.DueDate != nil && it.DueDate.Before(now)
}

// Clone returns a copy that shares no slices or pointers.
func (it WorkItem) Clone() WorkItem {
	if it.RequiredSkills != nil {
		it.RequiredSkills = append([]string(nil), it.RequiredSkills...)
	}
	if it.DueDate != nil {
		d := *it.DueDate
		it.DueDate = &d
	}
	return it
}
