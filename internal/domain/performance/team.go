package performance

import (
	"sort"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

const teamTopN = 5

// Member is a worker's line in a team summary.
type Member struct {
	WorkerID         string  `json:"worker_id"`
	Name             string  `json:"name"`
	PerformanceScore float64 `json:"performance_score"`
	TasksCompleted   int     `json:"tasks_completed"`
}

// TeamSummary aggregates a set of workers.
type TeamSummary struct {
	Members        int      `json:"members"`
	AverageScore   float64  `json:"average_score"`
	TotalCompleted int      `json:"total_completed"`
	Overloaded     int      `json:"overloaded"`
	TopPerformers  []Member `json:"top_performers"`
	NeedsAttention []Member `json:"needs_attention"`
}

// Team summarises workers; top performers are ordered by score then ID.
func Team(workers []model.Worker) TeamSummary {
	s := TeamSummary{Members: len(workers)}
	if len(workers) == 0 {
		return s
	}

	members := make([]Member, 0, len(workers))
	total := 0.0
	for _, w := range workers {
		total += w.PerformanceScore
		s.TotalCompleted += w.TasksCompleted
		if w.Overloaded() {
			s.Overloaded++
		}
		members = append(members, Member{
			WorkerID: w.ID, Name: w.Name,
			PerformanceScore: w.PerformanceScore, TasksCompleted: w.TasksCompleted,
		})
	}
	s.AverageScore = total / float64(len(workers))

	sort.Slice(members, func(i, j int) bool {
		if members[i].PerformanceScore != members[j].PerformanceScore {
			return members[i].PerformanceScore > members[j].PerformanceScore
		}
		return members[i].WorkerID < members[j].WorkerID
	})
	s.TopPerformers = append([]Member(nil), members[:min(teamTopN, len(members))]...)
	for _, m := range members {
		if m.PerformanceScore < 60 {
			s.NeedsAttention = append(s.NeedsAttention, m)
		}
	}
	return s
}
