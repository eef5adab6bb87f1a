// Package types contains the result types returned by the engine's service API.
package types

import (
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/performance"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/skills"
)

// NewWorker is the input for registering a worker. Zero values take defaults.
type NewWorker struct {
	ID              string             `json:"id,omitempty"`
	OrganizationID  string             `json:"organization_id"`
	Name            string             `json:"name"`
	Skills          map[string]float64 `json:"skills,omitempty"`
	ExperienceLevel int                `json:"experience_level,omitempty"`
	MaxWeeklyHours  float64            `json:"max_weekly_hours,omitempty"`
	Available       *bool              `json:"available,omitempty"`
}

// NewItem is the input for creating a work item. Difficulty 0 means unset.
type NewItem struct {
	ID             string     `json:"id,omitempty"`
	OrganizationID string     `json:"organization_id"`
	ProjectID      string     `json:"project_id,omitempty"`
	Title          string     `json:"title"`
	RequiredSkills []string   `json:"required_skills,omitempty"`
	Difficulty     int        `json:"difficulty,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// Enqueued acknowledges an asynchronous request.
type Enqueued struct {
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

// Outcome of an assignment attempt.
type Outcome string

// Outcomes.
const (
	OutcomeAssigned         Outcome = "assigned"
	OutcomeNoSuitableWorker Outcome = "no_suitable_worker"
)

// AssignmentResult is returned by auto-assignment and reassignment.
type AssignmentResult struct {
	Outcome      Outcome `json:"outcome"`
	ItemID       string  `json:"item_id"`
	AssignmentID string  `json:"assignment_id,omitempty"`
	WorkerID     string  `json:"worker_id,omitempty"`
	Strategy     string  `json:"strategy"`

	SkillMatch       float64 `json:"skill_match,omitempty"`
	WorkloadScore    float64 `json:"workload_score,omitempty"`
	PerformanceScore float64 `json:"performance_score,omitempty"`
	ExperienceScore  float64 `json:"experience_score,omitempty"`
	OverallScore     float64 `json:"overall_score,omitempty"`
	EstimatedHours   float64 `json:"estimated_hours,omitempty"`
	Reason           string  `json:"reason,omitempty"`

	CandidatesEvaluated int `json:"candidates_evaluated"`
	BelowSkillThreshold int `json:"below_skill_threshold"`
}

// Assigned reports whether a worker was chosen.
func (r AssignmentResult) Assigned() bool { return r.Outcome == OutcomeAssigned }

// Candidate is one scored worker in a diagnostic ranking.
type Candidate struct {
	WorkerID            string  `json:"worker_id"`
	Name                string  `json:"name"`
	SkillMatch          float64 `json:"skill_match"`
	WorkloadScore       float64 `json:"workload_score"`
	PerformanceScore    float64 `json:"performance_score"`
	ExperienceScore     float64 `json:"experience_score"`
	OverallScore        float64 `json:"overall_score"`
	EstimatedHours      float64 `json:"estimated_hours"`
	WorkloadHours       float64 `json:"workload_hours"`
	Reason              string  `json:"reason"`
	BelowSkillThreshold bool    `json:"below_skill_threshold"`
}

// CompletionResult reports the performance movement caused by a completion.
type CompletionResult struct {
	AssignmentID  string             `json:"assignment_id"`
	WorkerID      string             `json:"worker_id"`
	OldScore      float64            `json:"old_score"`
	NewScore      float64            `json:"new_score"`
	ScoreChange   float64            `json:"score_change"`
	AccuracyRatio float64            `json:"accuracy_ratio"`
	SkillGrowth   map[string]float64 `json:"skill_growth,omitempty"`
}

// Recommendation is an open item ranked for a worker.
type Recommendation struct {
	ItemID         string                           `json:"item_id"`
	Title          string                           `json:"title"`
	ProjectID      string                           `json:"project_id"`
	Difficulty     int                              `json:"difficulty"`
	Priority       string                           `json:"priority"`
	DueDate        *time.Time                       `json:"due_date,omitempty"`
	RequiredSkills []string                         `json:"required_skills"`
	Score          float64                          `json:"score"`
	Components     scoring.RecommendationComponents `json:"components"`
}

// WorkerProfile is the read model of a worker.
type WorkerProfile struct {
	WorkerID          string             `json:"worker_id"`
	OrganizationID    string             `json:"organization_id"`
	Name              string             `json:"name"`
	Skills            map[string]float64 `json:"skills"`
	TopSkills         []skills.Skill     `json:"top_skills"`
	ExperienceLevel   int                `json:"experience_level"`
	PerformanceScore  float64            `json:"performance_score"`
	WorkloadHours     float64            `json:"workload_hours"`
	MaxWeeklyHours    float64            `json:"max_weekly_hours"`
	AvailableCapacity float64            `json:"available_capacity"`
	Available         bool               `json:"available"`
	TasksCompleted    int                `json:"tasks_completed"`
	AvgCompletionTime float64            `json:"avg_completion_time"`
	Insights          []string           `json:"insights,omitempty"`
}

// SkillPatch edits a worker's skill profile. Nil fields are left unchanged.
type SkillPatch struct {
	Set             map[string]float64 `json:"set,omitempty"`
	Remove          []string           `json:"remove,omitempty"`
	ExperienceLevel *int               `json:"experience_level,omitempty"`
	MaxWeeklyHours  *float64           `json:"max_weekly_hours,omitempty"`
	Available       *bool              `json:"available,omitempty"`
}

// LearningPath is a worker's development plan: strengths to build on, skills
// to practise and gaps open work exposes.
type LearningPath struct {
	WorkerID        string         `json:"worker_id"`
	TopSkills       []skills.Skill `json:"top_skills"`
	Recommendations []skills.Focus `json:"recommendations"`
	SkillGaps       []skills.Gap   `json:"skill_gaps"`
	SuggestedFocus  *string        `json:"suggested_focus"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// PerformanceSummary is a worker's current score with recent movement.
type PerformanceSummary struct {
	WorkerID         string               `json:"worker_id"`
	PerformanceScore float64              `json:"performance_score"`
	TasksCompleted   int                  `json:"tasks_completed"`
	Latest           *performance.Metrics `json:"latest_metrics,omitempty"`
	Trend            performance.Trend    `json:"trend"`
	Statistics       Statistics           `json:"statistics"`
}

// Statistics aggregates a worker's assignment history.
type Statistics struct {
	TotalAssignments      int     `json:"total_assignments"`
	Active                int     `json:"active"`
	Completed             int     `json:"completed"`
	Cancelled             int     `json:"cancelled"`
	AvgEstimationAccuracy float64 `json:"avg_estimation_accuracy"`
	AvgSkillMatch         float64 `json:"avg_skill_match"`
	AvgDifficulty         float64 `json:"avg_difficulty"`
	AvgCompletionHours    float64 `json:"avg_completion_hours"`
}

// ScanReport summarises one auto-assign scan.
type ScanReport struct {
	Scanned    int  `json:"scanned"`
	Assigned   int  `json:"assigned"`
	NoSuitable int  `json:"no_suitable"`
	Failed     int  `json:"failed"`
	Cancelled  bool `json:"cancelled"`
}
