package service

import (
	"context"
	"fmt"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

// FeedbackLoop folds a completed assignment back into the worker's score and
// skills.
type FeedbackLoop struct {
	*deps
	tracker *Tracker
	ledger  *Ledger

	// backfill, when set, asks for new work for the worker.
	backfill func(ctx context.Context, workerID string) error
}

// OnCompleted recomputes performance, grows skills, publishes the
// completion events and requests a backfill.
func (f *FeedbackLoop) OnCompleted(ctx context.Context, a model.Assignment, it model.WorkItem) (types.CompletionResult, error) {
	res := types.CompletionResult{AssignmentID: a.ID, WorkerID: a.WorkerID}

	rc, err := f.tracker.Recompute(ctx, a.WorkerID, a.ID)
	if err != nil {
		return res, fmt.Errorf("recompute performance of %s: %w", a.WorkerID, err)
	}
	res.OldScore = rc.Previous
	res.NewScore = rc.Record.PerformanceScore
	if !rc.Appended {
		res.NewScore = rc.Previous
	}
	res.ScoreChange = res.NewScore - res.OldScore

	growth, err := f.ledger.ApplyTaskCompletionSkillGrowth(ctx, a, it)
	if err != nil {
		return res, fmt.Errorf("skill growth for %s: %w", a.ID, err)
	}
	res.SkillGrowth = growth

	hours := 0.0
	if a.ActualHours != nil {
		hours = *a.ActualHours
	}
	f.publish(ctx, model.Event{
		Type:         model.EventAssignmentCompleted,
		ItemID:       a.ItemID,
		WorkerID:     a.WorkerID,
		AssignmentID: a.ID,
		Attributes: map[string]any{
			"actual_hours":    hours,
			"estimated_hours": a.EstimatedHours,
			"on_time":         a.CompletedOnTime(it.DueDate),
		},
	})
	if rc.Appended {
		f.publish(ctx, model.Event{
			Type:         model.EventPerformanceUpdated,
			WorkerID:     a.WorkerID,
			AssignmentID: a.ID,
			Attributes: map[string]any{
				"old_score":    res.OldScore,
				"new_score":    res.NewScore,
				"score_change": res.ScoreChange,
			},
		})
	}

	if f.backfill != nil {
		if err := f.backfill(ctx, a.WorkerID); err != nil {
			f.log.Warn(ctx, "backfill request failed",
				logger.String("worker_id", a.WorkerID),
				logger.Error(err),
			)
		}
	}
	return res, nil
}
