package api

import (
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

type itemView struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	ProjectID      string     `json:"project_id,omitempty"`
	Title          string     `json:"title"`
	RequiredSkills []string   `json:"required_skills"`
	Difficulty     int        `json:"difficulty,omitempty"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newItemView(it model.WorkItem) itemView {
	req := it.RequiredSkills
	if req == nil {
		req = []string{}
	}
	return itemView{
		ID:             it.ID,
		OrganizationID: it.OrganizationID,
		ProjectID:      it.ProjectID,
		Title:          it.Title,
		RequiredSkills: req,
		Difficulty:     it.Difficulty,
		Priority:       string(it.Priority),
		DueDate:        it.DueDate,
		Status:         string(it.Status),
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

type performanceRecordView struct {
	AssignmentID       string    `json:"assignment_id,omitempty"`
	TasksCompleted     int       `json:"tasks_completed"`
	OnTimeRatio        float64   `json:"on_time_ratio"`
	SkillAccuracy      float64   `json:"skill_accuracy"`
	DifficultyFactor   float64   `json:"difficulty_factor"`
	AvgCompletionTime  float64   `json:"avg_completion_time"`
	AvgCompletionSpeed float64   `json:"avg_completion_speed"`
	PerformanceScore   float64   `json:"performance_score"`
	ScoreChange        float64   `json:"score_change"`
	CreatedAt          time.Time `json:"created_at"`
}

func newPerformanceRecordViews(recs []model.PerformanceRecord) []performanceRecordView {
	out := make([]performanceRecordView, 0, len(recs))
	for _, r := range recs {
		out = append(out, performanceRecordView{
			AssignmentID:       r.AssignmentID,
			TasksCompleted:     r.TasksCompleted,
			OnTimeRatio:        r.OnTimeRatio,
			SkillAccuracy:      r.SkillAccuracy,
			DifficultyFactor:   r.DifficultyFactor,
			AvgCompletionTime:  r.AvgCompletionTime,
			AvgCompletionSpeed: r.AvgCompletionSpeed,
			PerformanceScore:   r.PerformanceScore,
			ScoreChange:        r.ScoreChange,
			CreatedAt:          r.CreatedAt,
		})
	}
	return out
}
