package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/skills"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// Ledger owns worker skill profiles.
type Ledger struct {
	*deps
}

// IncrementSkill grows one skill by amount and returns its new proficiency.
func (l *Ledger) IncrementSkill(ctx context.Context, workerID, skill string, amount float64) (float64, error) {
	if strings.TrimSpace(skill) == "" {
		return 0, fmt.Errorf("skill name required: %w", ErrInvalidArgument)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount %v: %w", amount, ErrInvalidArgument)
	}
	var before, after float64
	_, err := l.store.UpdateWorker(ctx, workerID, func(w *model.Worker) error {
		if w.Skills == nil {
			w.Skills = make(map[string]float64)
		}
		if key, ok := skills.Key(w.Skills, skill); ok {
			before = w.Skills[key]
		}
		_, after = skills.Increment(w.Skills, skill, amount)
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	metrics.RecordSkillGrowth(after - before)
	return after, nil
}

// ApplyTaskCompletionSkillGrowth grows every skill the item required. It runs
// at most once per assignment; repeat calls return a nil map.
func (l *Ledger) ApplyTaskCompletionSkillGrowth(ctx context.Context, a model.Assignment, it model.WorkItem) (map[string]float64, error) {
	amount := skills.CompletionGrowth(it.Difficulty, it.Priority, a.CompletedOnTime(it.DueDate))
	var gained map[string]float64
	err := l.withRetry(ctx, "skill_growth", func(ctx context.Context) error {
		gained = make(map[string]float64)
		applied, err := l.store.ApplyCompletionGrowth(ctx, a.ID, func(w *model.Worker) {
			seen := make(map[string]struct{}, len(it.RequiredSkills))
			for _, name := range it.RequiredSkills {
				k := model.SkillKey(name)
				if k == "" {
					continue
				}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				before := 0.0
				if key, ok := skills.Key(w.Skills, name); ok {
					before = w.Skills[key]
				}
				key, after := skills.Increment(w.Skills, name, amount)
				gained[key] = after - before
			}
		})
		if !applied {
			gained = nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, g := range gained {
		total += g
	}
	metrics.RecordSkillGrowth(total)
	if gained != nil {
		l.log.Debug(ctx, "skill growth applied",
			logger.String("worker_id", a.WorkerID),
			logger.String("assignment_id", a.ID),
			logger.Int("skills", len(gained)),
			logger.Float64("points", total),
		)
	}
	return gained, nil
}

// TopSkills returns the n strongest skills of a worker.
func (l *Ledger) TopSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error) {
	return l.ranked(ctx, workerID, n, skills.Top)
}

// WeakestSkills returns the n weakest skills of a worker.
func (l *Ledger) WeakestSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error) {
	return l.ranked(ctx, workerID, n, skills.Weakest)
}

func (l *Ledger) ranked(ctx context.Context, workerID string, n int, pick func(map[string]float64, int) []skills.Skill) ([]skills.Skill, error) {
	if n < 1 {
		return nil, fmt.Errorf("limit %d: %w", n, ErrInvalidArgument)
	}
	w, err := l.store.Worker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	return pick(w.Skills, n), nil
}

// UpdateSkillProfile applies a patch to a worker. Removals run before sets.
func (l *Ledger) UpdateSkillProfile(ctx context.Context, workerID string, p types.SkillPatch) (model.Worker, error) {
	if err := validatePatch(p); err != nil {
		return model.Worker{}, err
	}
	w, err := l.store.UpdateWorker(ctx, workerID, func(w *model.Worker) error {
		if len(p.Set) > 0 && w.Skills == nil {
			w.Skills = make(map[string]float64, len(p.Set))
		}
		for _, name := range p.Remove {
			skills.Remove(w.Skills, name)
		}
		for name, v := range p.Set {
			skills.Put(w.Skills, name, v)
		}
		if p.ExperienceLevel != nil {
			w.ExperienceLevel = *p.ExperienceLevel
		}
		if p.MaxWeeklyHours != nil {
			w.MaxWeeklyHours = *p.MaxWeeklyHours
		}
		if p.Available != nil {
			w.Available = *p.Available
		}
		return nil
	})
	if err != nil {
		return model.Worker{}, translate(err)
	}
	return w, nil
}

func validatePatch(p types.SkillPatch) error {
	if err := validateSkills(p.Set); err != nil {
		return err
	}
	if p.ExperienceLevel != nil && (*p.ExperienceLevel < 1 || *p.ExperienceLevel > model.MaxExperienceLevel) {
		return fmt.Errorf("experience level %d outside 1..%d: %w", *p.ExperienceLevel, model.MaxExperienceLevel, ErrInvalidArgument)
	}
	if p.MaxWeeklyHours != nil && !(*p.MaxWeeklyHours > 0) {
		return fmt.Errorf("max weekly hours %v: %w", *p.MaxWeeklyHours, ErrInvalidArgument)
	}
	return nil
}

func validateSkills(m map[string]float64) error {
	for name, v := range m {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty skill name: %w", ErrInvalidArgument)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("skill %s proficiency %v: %w", name, v, ErrInvalidArgument)
		}
	}
	return nil
}

// SkillRecommendations suggests skills the worker uses often but is weak at.
func (l *Ledger) SkillRecommendations(ctx context.Context, workerID string, limit int) ([]skills.Focus, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrInvalidArgument)
	}
	w, err := l.store.Worker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	as, err := l.store.AssignmentsByWorker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	u := skills.NewUsage()
	for _, a := range as {
		it, err := l.store.Item(ctx, a.ItemID)
		if err != nil {
			return nil, translate(err)
		}
		u.Add(it.RequiredSkills)
	}
	return skills.FocusAreas(u, w.Skills, limit), nil
}

// SkillGaps lists skills that open items of the worker's organization need
// and the worker barely has.
func (l *Ledger) SkillGaps(ctx context.Context, workerID string) ([]skills.Gap, error) {
	w, err := l.store.Worker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	open, err := l.store.ListItems(ctx, repository.ItemFilter{
		OrganizationID: w.OrganizationID,
		Status:         model.ItemOpen,
	})
	if err != nil {
		return nil, translate(err)
	}
	return skills.Gaps(open, w.Skills), nil
}

const (
	pathTopSkills       = 3
	pathRecommendations = 5
	pathGaps            = 3
)

// LearningPath combines the worker's top skills, focus areas and the widest
// gaps into one plan. The first focus area is the suggested next step.
func (l *Ledger) LearningPath(ctx context.Context, workerID string) (types.LearningPath, error) {
	top, err := l.TopSkills(ctx, workerID, pathTopSkills)
	if err != nil {
		return types.LearningPath{}, err
	}
	focus, err := l.SkillRecommendations(ctx, workerID, pathRecommendations)
	if err != nil {
		return types.LearningPath{}, err
	}
	gaps, err := l.SkillGaps(ctx, workerID)
	if err != nil {
		return types.LearningPath{}, err
	}
	if len(gaps) > pathGaps {
		gaps = gaps[:pathGaps]
	}

	p := types.LearningPath{
		WorkerID:        workerID,
		TopSkills:       top,
		Recommendations: focus,
		SkillGaps:       gaps,
		GeneratedAt:     l.now(),
	}
	if len(focus) > 0 {
		next := focus[0].Skill
		p.SuggestedFocus = &next
	}
	return p, nil
}

// SkillsByCategory groups a worker's skills by catalogue category.
func (l *Ledger) SkillsByCategory(ctx context.Context, workerID string) (map[string]map[string]float64, error) {
	w, err := l.store.Worker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	return skills.ByCategory(w.Skills), nil
}
