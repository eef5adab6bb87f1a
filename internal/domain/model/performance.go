package model

import "time"

// PerformanceRecord is an append-only snapshot of a worker's metrics.
type PerformanceRecord struct {
	ID           string
	WorkerID     string
	AssignmentID string

	TasksCompleted     int
	OnTimeRatio        float64
	SkillAccuracy      float64
	DifficultyFactor   float64
	AvgCompletionTime  float64
	AvgCompletionSpeed float64

	PerformanceScore float64
	ScoreChange      float64
	CreatedAt        time.Time
}
