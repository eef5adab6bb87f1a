// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Worker profile defaults.
const (
	DefaultExperienceLevel  = 1
	DefaultPerformanceScore = 50.0
	DefaultMaxWeeklyHours   = 40.0
	MaxExperienceLevel      = 10
)

// Worker is an agent that can be assigned items.
type Worker struct {
	ID             string
	OrganizationID string
	Name           string

	// Skills maps skill name to proficiency (0..~110). Nil means no skill profile.
	Skills           map[string]float64
	ExperienceLevel  int
	PerformanceScore float64

	WorkloadHours  float64
	MaxWeeklyHours float64
	Available      bool

	TasksCompleted int
	// AvgCompletionTime is the mean actual hours per completed item; 0 means no history.
	AvgCompletionTime float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSkillProfile reports whether the worker carries a skill map.
func (w Worker) HasSkillProfile() bool { return w.Skills != nil }

// AvailableCapacity returns the remaining weekly hours, never negative.
func (w Worker) AvailableCapacity() float64 {
	return max(0, w.MaxWeeklyHours-w.WorkloadHours)
}

// Overloaded reports whether the worker is at or above capacity.
func (w Worker) Overloaded() bool {
	return w.WorkloadHours >= w.MaxWeeklyHours
}

// Clone returns a deep copy safe to hand across layers.
func (w Worker) Clone() Worker {
	if w.Skills != nil {
		skills := make(map[string]float64, len(w.Skills))
		for k, v := range w.Skills {
			skills[k] = v
		}
		w.Skills = skills
	}
	return w
}

// SkillKey returns the comparison key of a skill name.
func SkillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
