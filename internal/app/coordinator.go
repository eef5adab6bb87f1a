package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// Coordinator picks workers for items and moves assignments through their
// lifecycle.
type Coordinator struct {
	*deps
	weights  scoring.AssignmentWeights
	feedback *FeedbackLoop
}

type scored struct {
	worker model.Worker
	comps  scoring.Components
}

func (c *Coordinator) strategy(name string) (scoring.Strategy, error) {
	s, err := scoring.ParseStrategy(name, c.weights)
	if err != nil {
		return nil, classify(ErrInvalidArgument, err)
	}
	return s, nil
}

// AutoAssign assigns the best eligible worker to an open item. When nobody
// clears the skill floor the result carries OutcomeNoSuitableWorker and no
// error.
func (c *Coordinator) AutoAssign(ctx context.Context, itemID, strategyName string) (types.AssignmentResult, error) {
	strat, err := c.strategy(strategyName)
	if err != nil {
		return types.AssignmentResult{}, err
	}
	if _, err := c.openItem(ctx, itemID); err != nil {
		return types.AssignmentResult{}, err
	}

	release, err := c.acquire(ctx, lock.ItemKey(itemID))
	if err != nil {
		return types.AssignmentResult{}, err
	}
	defer release()
	return c.assignLocked(ctx, itemID, strat)
}

func (c *Coordinator) openItem(ctx context.Context, itemID string) (model.WorkItem, error) {
	it, err := c.store.Item(ctx, itemID)
	if err != nil {
		return model.WorkItem{}, translate(err)
	}
	if it.Status != model.ItemOpen {
		return model.WorkItem{}, fmt.Errorf("item %s is %s: %w", itemID, it.Status, ErrInvalidState)
	}
	return it, nil
}

// assignLocked expects the item lock to be held.
func (c *Coordinator) assignLocked(ctx context.Context, itemID string, strat scoring.Strategy) (types.AssignmentResult, error) {
	result, err := retryValue(ctx, c.deps, "auto_assign", func(ctx context.Context) (types.AssignmentResult, error) {
		return c.assignOnce(ctx, itemID, strat)
	})
	if err != nil {
		metrics.RecordErrorByComponent("coordinator", "auto_assign")
		return types.AssignmentResult{}, err
	}

	metrics.RecordAssignment(strat.Name(), string(result.Outcome))
	if !result.Assigned() {
		c.log.Info(ctx, "no suitable worker",
			logger.String("item_id", itemID),
			logger.Int("evaluated", result.CandidatesEvaluated),
			logger.Int("below_skill_threshold", result.BelowSkillThreshold),
		)
		return result, nil
	}

	c.log.Info(ctx, "item assigned",
		logger.String("item_id", itemID),
		logger.String("worker_id", result.WorkerID),
		logger.String("strategy", result.Strategy),
		logger.Float64("overall", result.OverallScore),
	)
	c.publish(ctx, model.Event{
		Type:         model.EventAssignmentCreated,
		ItemID:       itemID,
		WorkerID:     result.WorkerID,
		AssignmentID: result.AssignmentID,
		Attributes: map[string]any{
			"strategy":        result.Strategy,
			"overall_score":   result.OverallScore,
			"estimated_hours": result.EstimatedHours,
			"reason":          result.Reason,
		},
	})
	return result, nil
}

func (c *Coordinator) assignOnce(ctx context.Context, itemID string, strat scoring.Strategy) (types.AssignmentResult, error) {
	it, err := c.openItem(ctx, itemID)
	if err != nil {
		return types.AssignmentResult{}, err
	}
	workers, err := c.store.ListWorkers(ctx, repository.WorkerFilter{
		OrganizationID: it.OrganizationID,
		AvailableOnly:  true,
	})
	if err != nil {
		return types.AssignmentResult{}, err
	}

	start := time.Now()
	eligible, below := rank(workers, it, strat)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordCandidatesEvaluated(len(eligible) + len(below))
	metrics.RecordBelowSkillFloor(len(below))

	result := types.AssignmentResult{
		Outcome:             types.OutcomeNoSuitableWorker,
		ItemID:              it.ID,
		Strategy:            strat.Name(),
		CandidatesEvaluated: len(eligible) + len(below),
		BelowSkillThreshold: len(below),
	}
	if len(eligible) == 0 {
		return result, nil
	}

	best := eligible[0]
	a := model.Assignment{
		ID:               c.newID(),
		ItemID:           it.ID,
		WorkerID:         best.worker.ID,
		Strategy:         strat.Name(),
		SkillMatch:       best.comps.SkillMatch,
		WorkloadScore:    best.comps.Workload,
		PerformanceScore: best.comps.Performance,
		ExperienceScore:  best.comps.Experience,
		OverallScore:     best.comps.Overall,
		EstimatedHours:   best.comps.EstimatedHours,
		Status:           model.AssignmentActive,
		Reason:           best.comps.Reason,
		AssignedAt:       c.now(),
	}
	if err := c.store.CommitAssignment(ctx, a); err != nil {
		return types.AssignmentResult{}, err
	}

	result.Outcome = types.OutcomeAssigned
	result.AssignmentID = a.ID
	result.WorkerID = a.WorkerID
	result.SkillMatch = a.SkillMatch
	result.WorkloadScore = a.WorkloadScore
	result.PerformanceScore = a.PerformanceScore
	result.ExperienceScore = a.ExperienceScore
	result.OverallScore = a.OverallScore
	result.EstimatedHours = a.EstimatedHours
	result.Reason = a.Reason
	return result, nil
}

// rank scores every worker with a skill profile and splits them at the
// skill floor. Both slices are ordered best first.
func rank(workers []model.Worker, it model.WorkItem, strat scoring.Strategy) (eligible, below []scored) {
	for _, w := range workers {
		if !w.HasSkillProfile() {
			continue
		}
		s := scored{worker: w, comps: scoring.Evaluate(w, it, strat)}
		if scoring.MeetsSkillFloor(s.comps.SkillMatch) {
			eligible = append(eligible, s)
		} else {
			below = append(below, s)
		}
	}
	sortScored(eligible)
	sortScored(below)
	return eligible, below
}

// sortScored orders by overall score, then lighter workload, then worker ID.
func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if a.comps.Overall != b.comps.Overall {
			return a.comps.Overall > b.comps.Overall
		}
		if a.worker.WorkloadHours != b.worker.WorkloadHours {
			return a.worker.WorkloadHours < b.worker.WorkloadHours
		}
		return a.worker.ID < b.worker.ID
	})
}

// Reassign cancels the item's active assignment, returns its hours to the
// previous worker and assigns the item again.
func (c *Coordinator) Reassign(ctx context.Context, itemID, reason, strategyName string) (types.AssignmentResult, error) {
	strat, err := c.strategy(strategyName)
	if err != nil {
		return types.AssignmentResult{}, err
	}
	it, err := c.store.Item(ctx, itemID)
	if err != nil {
		return types.AssignmentResult{}, translate(err)
	}
	if it.Status.Terminal() {
		return types.AssignmentResult{}, fmt.Errorf("item %s is %s: %w", itemID, it.Status, ErrInvalidState)
	}

	release, err := c.acquire(ctx, lock.ItemKey(itemID))
	if err != nil {
		return types.AssignmentResult{}, err
	}
	defer release()

	var (
		previous model.Assignment
		released bool
	)
	err = c.withRetry(ctx, "reassign", func(ctx context.Context) error {
		cur, err := c.store.Item(ctx, itemID)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return fmt.Errorf("item %s is %s: %w", itemID, cur.Status, ErrInvalidState)
		}
		previous, released, err = c.store.ReleaseItem(ctx, itemID, model.ItemOpen, reason, c.now())
		return err
	})
	if err != nil {
		return types.AssignmentResult{}, err
	}

	if released {
		metrics.RecordReassignment()
		c.log.Info(ctx, "assignment cancelled for reassignment",
			logger.String("item_id", itemID),
			logger.String("assignment_id", previous.ID),
			logger.String("worker_id", previous.WorkerID),
			logger.String("reason", reason),
		)
		c.publish(ctx, model.Event{
			Type:         model.EventAssignmentReassigned,
			ItemID:       itemID,
			WorkerID:     previous.WorkerID,
			AssignmentID: previous.ID,
			Attributes:   map[string]any{"reason": reason},
		})
	}
	return c.assignLocked(ctx, itemID, strat)
}

// CompleteAssignment closes an active assignment with the hours actually
// spent and runs the feedback loop.
func (c *Coordinator) CompleteAssignment(ctx context.Context, assignmentID string, actualHours float64) (types.CompletionResult, error) {
	if actualHours < 0 || math.IsNaN(actualHours) || math.IsInf(actualHours, 0) {
		return types.CompletionResult{}, fmt.Errorf("actual hours %v: %w", actualHours, ErrInvalidArgument)
	}
	a, err := c.store.Assignment(ctx, assignmentID)
	if err != nil {
		return types.CompletionResult{}, translate(err)
	}
	if a.Status != model.AssignmentActive {
		return types.CompletionResult{}, fmt.Errorf("assignment %s is %s: %w", assignmentID, a.Status, ErrInvalidState)
	}

	release, err := c.acquire(ctx, lock.ItemKey(a.ItemID))
	if err != nil {
		return types.CompletionResult{}, err
	}
	completed, err := retryValue(ctx, c.deps, "complete", func(ctx context.Context) (model.Assignment, error) {
		return c.store.CompleteAssignment(ctx, assignmentID, actualHours, c.now())
	})
	release()
	if err != nil {
		return types.CompletionResult{}, err
	}

	it, err := c.store.Item(ctx, completed.ItemID)
	if err != nil {
		return types.CompletionResult{}, translate(err)
	}
	accuracy := AccuracyRatio(completed)
	metrics.RecordCompletion(accuracy)
	c.log.Info(ctx, "assignment completed",
		logger.String("assignment_id", completed.ID),
		logger.String("worker_id", completed.WorkerID),
		logger.Float64("actual_hours", actualHours),
		logger.Float64("accuracy", accuracy),
	)

	res, err := c.feedback.OnCompleted(ctx, completed, it)
	res.AssignmentID = completed.ID
	res.WorkerID = completed.WorkerID
	res.AccuracyRatio = accuracy
	return res, err
}

// AccuracyRatio compares estimated and actual hours of an assignment; 1 is
// a perfect estimate and 0 means either figure is missing.
func AccuracyRatio(a model.Assignment) float64 {
	if a.ActualHours == nil {
		return 0
	}
	return scoring.AccuracyRatio(a.EstimatedHours, *a.ActualHours)
}

// RankCandidates scores every worker with a skill profile for an item. Workers
// below the skill floor are flagged rather than dropped and follow the
// eligible ones. topN <= 0 returns everyone.
func (c *Coordinator) RankCandidates(ctx context.Context, itemID, strategyName string, topN int) ([]types.Candidate, error) {
	strat, err := c.strategy(strategyName)
	if err != nil {
		return nil, err
	}
	it, err := c.store.Item(ctx, itemID)
	if err != nil {
		return nil, translate(err)
	}
	workers, err := c.store.ListWorkers(ctx, repository.WorkerFilter{
		OrganizationID: it.OrganizationID,
		AvailableOnly:  true,
	})
	if err != nil {
		return nil, translate(err)
	}

	eligible, below := rank(workers, it, strat)
	out := make([]types.Candidate, 0, len(eligible)+len(below))
	for _, group := range [][]scored{eligible, below} {
		for _, s := range group {
			out = append(out, types.Candidate{
				WorkerID:            s.worker.ID,
				Name:                s.worker.Name,
				SkillMatch:          s.comps.SkillMatch,
				WorkloadScore:       s.comps.Workload,
				PerformanceScore:    s.comps.Performance,
				ExperienceScore:     s.comps.Experience,
				OverallScore:        s.comps.Overall,
				EstimatedHours:      s.comps.EstimatedHours,
				WorkloadHours:       s.worker.WorkloadHours,
				Reason:              s.comps.Reason,
				BelowSkillThreshold: !scoring.MeetsSkillFloor(s.comps.SkillMatch),
			})
		}
	}
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// isSkippable reports errors a batch caller can ignore because another
// writer got to the item first.
func isSkippable(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrConflict)
}
