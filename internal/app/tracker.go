package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/performance"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// Tracker maintains the performance log of workers.
type Tracker struct {
	*deps
}

// Recomputation is the outcome of Tracker.Recompute.
type Recomputation struct {
	Previous float64
	Record   model.PerformanceRecord
	Appended bool
}

// Recompute derives a worker's metrics from their completed assignments and
// appends a performance record. Calls that would not change the latest
// record append nothing.
func (t *Tracker) Recompute(ctx context.Context, workerID, assignmentID string) (Recomputation, error) {
	release, err := t.acquire(ctx, lock.WorkerKey(workerID))
	if err != nil {
		return Recomputation{}, err
	}
	defer release()

	var out Recomputation
	err = t.withRetry(ctx, "recompute", func(ctx context.Context) error {
		r, err := t.recomputeOnce(ctx, workerID, assignmentID)
		out = r
		return err
	})
	if err != nil {
		metrics.RecordErrorByComponent("tracker", "recompute")
		return Recomputation{}, err
	}
	if out.Appended {
		metrics.RecordPerformanceChange(out.Record.ScoreChange)
		t.log.Debug(ctx, "performance recomputed",
			logger.String("worker_id", workerID),
			logger.Float64("score", out.Record.PerformanceScore),
			logger.Float64("change", out.Record.ScoreChange),
		)
	}
	return out, nil
}

func (t *Tracker) recomputeOnce(ctx context.Context, workerID, assignmentID string) (Recomputation, error) {
	w, err := t.store.Worker(ctx, workerID)
	if err != nil {
		return Recomputation{}, err
	}
	completions, err := t.completions(ctx, workerID)
	if err != nil {
		return Recomputation{}, err
	}
	m := performance.Compute(completions)
	score := performance.Score(m)

	latest, err := t.store.LatestPerformance(ctx, workerID)
	hasLatest := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Recomputation{}, err
	}
	if hasLatest && latest.TasksCompleted == m.TasksCompleted && latest.PerformanceScore == score {
		return Recomputation{Previous: latest.PerformanceScore, Record: latest}, nil
	}
	if !hasLatest && m.TasksCompleted == 0 {
		return Recomputation{Previous: w.PerformanceScore}, nil
	}

	rec := model.PerformanceRecord{
		ID:                 t.newID(),
		WorkerID:           workerID,
		AssignmentID:       assignmentID,
		TasksCompleted:     m.TasksCompleted,
		OnTimeRatio:        m.OnTimeRatio,
		SkillAccuracy:      m.SkillAccuracy,
		DifficultyFactor:   m.DifficultyFactor,
		AvgCompletionTime:  m.AvgCompletionTime,
		AvgCompletionSpeed: m.AvgCompletionSpeed,
		PerformanceScore:   score,
		ScoreChange:        score - w.PerformanceScore,
		CreatedAt:          t.now(),
	}
	if err := t.store.RecordPerformance(ctx, rec); err != nil {
		return Recomputation{}, err
	}
	return Recomputation{Previous: w.PerformanceScore, Record: rec, Appended: true}, nil
}

// completions loads the completed assignments of a worker with their items.
func (t *Tracker) completions(ctx context.Context, workerID string) ([]performance.Completion, error) {
	as, err := t.store.AssignmentsByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	var out []performance.Completion
	for _, a := range as {
		if a.Status != model.AssignmentCompleted {
			continue
		}
		it, err := t.store.Item(ctx, a.ItemID)
		if err != nil {
			return nil, fmt.Errorf("item of assignment %s: %w", a.ID, err)
		}
		out = append(out, performance.FromAssignment(a, it))
	}
	return out, nil
}

// History returns the performance records of the last days days, oldest first.
func (t *Tracker) History(ctx context.Context, workerID string, days int) ([]model.PerformanceRecord, error) {
	if days < 1 {
		return nil, fmt.Errorf("days %d: %w", days, ErrInvalidArgument)
	}
	if _, err := t.store.Worker(ctx, workerID); err != nil {
		return nil, translate(err)
	}
	since := t.now().AddDate(0, 0, -days)
	recs, err := t.store.PerformanceHistory(ctx, workerID, since)
	if err != nil {
		return nil, translate(err)
	}
	return performance.Since(recs, since), nil
}

// Trends lays out the last days days of performance records as chart series.
func (t *Tracker) Trends(ctx context.Context, workerID string, days int) (performance.Series, error) {
	recs, err := t.History(ctx, workerID, days)
	if err != nil {
		return performance.Series{}, err
	}
	return performance.SeriesOf(recs, days), nil
}

// Summary reports the current score, latest metrics, 30-day trend and
// assignment statistics of a worker.
func (t *Tracker) Summary(ctx context.Context, workerID string) (types.PerformanceSummary, error) {
	w, err := t.store.Worker(ctx, workerID)
	if err != nil {
		return types.PerformanceSummary{}, translate(err)
	}
	out := types.PerformanceSummary{
		WorkerID:         w.ID,
		PerformanceScore: w.PerformanceScore,
		TasksCompleted:   w.TasksCompleted,
	}

	latest, err := t.store.LatestPerformance(ctx, workerID)
	switch {
	case err == nil:
		out.Latest = &performance.Metrics{
			TasksCompleted:     latest.TasksCompleted,
			OnTimeRatio:        latest.OnTimeRatio,
			SkillAccuracy:      latest.SkillAccuracy,
			DifficultyFactor:   latest.DifficultyFactor,
			AvgCompletionTime:  latest.AvgCompletionTime,
			AvgCompletionSpeed: latest.AvgCompletionSpeed,
		}
	case !errors.Is(err, repository.ErrNotFound):
		return types.PerformanceSummary{}, translate(err)
	}

	since := t.now().Add(-performance.TrendWindow)
	recs, err := t.store.PerformanceHistory(ctx, workerID, since)
	if err != nil {
		return types.PerformanceSummary{}, translate(err)
	}
	out.Trend = performance.TrendOf(recs, since)

	if out.Statistics, err = t.Statistics(ctx, workerID); err != nil {
		return types.PerformanceSummary{}, err
	}
	return out, nil
}

// Statistics aggregates a worker's assignment history.
func (t *Tracker) Statistics(ctx context.Context, workerID string) (types.Statistics, error) {
	as, err := t.store.AssignmentsByWorker(ctx, workerID)
	if err != nil {
		return types.Statistics{}, translate(err)
	}
	var (
		s                                     types.Statistics
		accuracy, match, difficulty, hours    float64
		withActual, withDifficulty, completed int
	)
	s.TotalAssignments = len(as)
	for _, a := range as {
		switch a.Status {
		case model.AssignmentActive:
			s.Active++
			continue
		case model.AssignmentCancelled:
			s.Cancelled++
			continue
		}
		completed++
		match += a.SkillMatch
		if a.ActualHours != nil {
			withActual++
			accuracy += AccuracyRatio(a)
			hours += *a.ActualHours
		}
		it, err := t.store.Item(ctx, a.ItemID)
		if err != nil {
			return types.Statistics{}, translate(err)
		}
		if it.Difficulty > 0 {
			withDifficulty++
			difficulty += float64(it.Difficulty)
		}
	}
	s.Completed = completed
	if completed > 0 {
		s.AvgSkillMatch = match / float64(completed)
	}
	if withActual > 0 {
		s.AvgEstimationAccuracy = accuracy / float64(withActual)
		s.AvgCompletionHours = hours / float64(withActual)
	}
	if withDifficulty > 0 {
		s.AvgDifficulty = difficulty / float64(withDifficulty)
	}
	return s, nil
}

// TeamSummary aggregates the workers of an organization.
func (t *Tracker) TeamSummary(ctx context.Context, orgID string) (performance.TeamSummary, error) {
	if orgID == "" {
		return performance.TeamSummary{}, fmt.Errorf("organization id required: %w", ErrInvalidArgument)
	}
	workers, err := t.store.ListWorkers(ctx, repository.WorkerFilter{OrganizationID: orgID})
	if err != nil {
		return performance.TeamSummary{}, translate(err)
	}
	if len(workers) == 0 {
		return performance.TeamSummary{}, fmt.Errorf("organization %s has no workers: %w", orgID, ErrNotFound)
	}
	return performance.Team(workers), nil
}
