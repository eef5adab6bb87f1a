// Package performance computes rolling worker metrics and the scalar
// performance score from completed assignments.
package performance

import (
	"sort"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

const (
	neutralRatio     = 0.5
	onTimeWeight     = 0.5
	accuracyWeight   = 0.3
	difficultyWeight = 0.2
	maxScore         = 100.0
	hoursPerDay      = 24.0
	// TrendWindow is the look-back of Trend summaries.
	TrendWindow = 30 * 24 * time.Hour
)

// Completion is one completed assignment joined with its item.
type Completion struct {
	Difficulty  int
	DueDate     *time.Time
	CompletedAt time.Time
	ActualHours float64
	SkillMatch  float64
}

// FromAssignment joins a completed assignment with its item.
func FromAssignment(a model.Assignment, it model.WorkItem) Completion {
	c := Completion{Difficulty: it.Difficulty, DueDate: it.DueDate, SkillMatch: a.SkillMatch}
	if a.CompletedAt != nil {
		c.CompletedAt = *a.CompletedAt
	}
	if a.ActualHours != nil {
		c.ActualHours = *a.ActualHours
	}
	return c
}

// OnTime reports completion on or before the due date. No due date is not on time.
func (c Completion) OnTime() bool {
	return c.DueDate != nil && !c.CompletedAt.After(*c.DueDate)
}

// Metrics are the rolling values behind a performance score.
type Metrics struct {
	TasksCompleted     int     `json:"tasks_completed"`
	OnTimeRatio        float64 `json:"on_time_ratio"`
	SkillAccuracy      float64 `json:"skill_accuracy"`
	DifficultyFactor   float64 `json:"difficulty_factor"`
	AvgCompletionTime  float64 `json:"avg_completion_time"`
	AvgCompletionSpeed float64 `json:"avg_completion_speed"`
}

// Compute derives metrics from completions. Ratios default to 0.5 when
// there is nothing to average.
func Compute(cs []Completion) Metrics {
	m := Metrics{
		TasksCompleted:   len(cs),
		OnTimeRatio:      neutralRatio,
		SkillAccuracy:    neutralRatio,
		DifficultyFactor: neutralRatio,
	}
	if len(cs) == 0 {
		return m
	}

	var onTime, withDifficulty, withDue int
	var accuracy, difficulty, hours, speed float64
	for _, c := range cs {
		if c.OnTime() {
			onTime++
		}
		accuracy += c.SkillMatch
		hours += c.ActualHours
		if c.Difficulty > 0 {
			difficulty += float64(c.Difficulty) / model.MaxDifficulty
			withDifficulty++
		}
		if c.DueDate != nil {
			speed += CompletionSpeedDays(*c.DueDate, c.CompletedAt)
			withDue++
		}
	}

	n := float64(len(cs))
	m.OnTimeRatio = float64(onTime) / n
	m.SkillAccuracy = accuracy / n
	m.AvgCompletionTime = hours / n
	if withDifficulty > 0 {
		m.DifficultyFactor = difficulty / float64(withDifficulty)
	}
	if withDue > 0 {
		m.AvgCompletionSpeed = speed / float64(withDue)
	}
	return m
}

// Score is 100*(0.5*onTime + 0.3*skillAccuracy + 0.2*difficulty), clamped to [0,100].
func Score(m Metrics) float64 {
	s := (onTimeWeight*m.OnTimeRatio + accuracyWeight*m.SkillAccuracy + difficultyWeight*m.DifficultyFactor) * maxScore
	return max(0, min(maxScore, s))
}

// CompletionSpeedDays is how many days before the due date work finished;
// negative when late.
func CompletionSpeedDays(due, completed time.Time) float64 {
	return due.Sub(completed).Hours() / hoursPerDay
}

// Direction of a score trend.
type Direction string

// Trend directions.
const (
	TrendUp   Direction = "up"
	TrendDown Direction = "down"
	TrendFlat Direction = "flat"
)

// Trend summarises score movement across a window of records.
type Trend struct {
	Direction  Direction `json:"direction"`
	Change     float64   `json:"change"`
	PeriodDays int       `json:"period_days"`
}

// TrendOf compares the first and last score among records created at or
// after since. Fewer than two records is flat.
func TrendOf(records []model.PerformanceRecord, since time.Time) Trend {
	window := Since(records, since)
	t := Trend{Direction: TrendFlat, PeriodDays: int(TrendWindow.Hours() / hoursPerDay)}
	if len(window) < 2 {
		return t
	}
	t.Change = window[len(window)-1].PerformanceScore - window[0].PerformanceScore
	switch {
	case t.Change > 0:
		t.Direction = TrendUp
	case t.Change < 0:
		t.Direction = TrendDown
	}
	return t
}

// Since returns the records created at or after since, oldest first.
func Since(records []model.PerformanceRecord, since time.Time) []model.PerformanceRecord {
	out := make([]model.PerformanceRecord, 0, len(records))
	for _, r := range records {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Insights flags notable conditions of a worker.
func Insights(w model.Worker) []string {
	var out []string
	if w.Overloaded() {
		out = append(out, "Currently overloaded; consider reassigning work")
	}
	switch {
	case w.PerformanceScore < 60:
		out = append(out, "Performance below target; prefer items matching existing strengths")
	case w.PerformanceScore > 85:
		out = append(out, "High performer; ready for more challenging items")
	}
	return out
}
