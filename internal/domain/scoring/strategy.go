package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

// Strategy names.
const (
	StrategyHybrid          = "hybrid"
	StrategySkillMatch      = "skill_match"
	StrategyWorkloadBalance = "workload_balance"
	StrategyPerformance     = "performance"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("unknown assignment strategy")

// AssignmentWeights weight the hybrid composite.
type AssignmentWeights struct {
	Skill       float64
	Workload    float64
	Performance float64
	Experience  float64
}

// DefaultAssignmentWeights returns 0.40/0.30/0.20/0.10.
func DefaultAssignmentWeights() AssignmentWeights {
	return AssignmentWeights{Skill: 0.40, Workload: 0.30, Performance: 0.20, Experience: 0.10}
}

// Components are the sub-scores of one worker/item pair.
type Components struct {
	SkillMatch           float64
	Workload             float64
	Performance          float64
	Experience           float64
	DifficultyAdjustment float64

	Overall        float64
	EstimatedHours float64
	Reason         string
}

// Strategy turns components into an overall score.
type Strategy interface {
	Name() string
	Overall(c Components) float64
}

// Hybrid blends every dimension and applies the difficulty adjustment.
type Hybrid struct {
	Weights AssignmentWeights
}

// Name implements Strategy.
func (Hybrid) Name() string { return StrategyHybrid }

// Overall implements Strategy.
func (h Hybrid) Overall(c Components) float64 {
	w := h.Weights
	base := w.Skill*c.SkillMatch + w.Workload*c.Workload + w.Performance*c.Performance + w.Experience*c.Experience
	return base * c.DifficultyAdjustment
}

type skillMatchOnly struct{}

func (skillMatchOnly) Name() string                 { return StrategySkillMatch }
func (skillMatchOnly) Overall(c Components) float64 { return c.SkillMatch }

type workloadBalance struct{}

func (workloadBalance) Name() string                 { return StrategyWorkloadBalance }
func (workloadBalance) Overall(c Components) float64 { return c.Workload }

type performanceFirst struct{}

func (performanceFirst) Name() string                 { return StrategyPerformance }
func (performanceFirst) Overall(c Components) float64 { return c.Performance }

// ParseStrategy returns the strategy for name. Empty selects hybrid.
func ParseStrategy(name string, w AssignmentWeights) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyHybrid:
		return Hybrid{Weights: w}, nil
	case StrategySkillMatch:
		return skillMatchOnly{}, nil
	case StrategyWorkloadBalance:
		return workloadBalance{}, nil
	case StrategyPerformance:
		return performanceFirst{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Evaluate computes every sub-score of worker for item under strategy.
func Evaluate(w model.Worker, it model.WorkItem, s Strategy) Components {
	c := Components{
		SkillMatch:           SkillMatch(w.Skills, it.RequiredSkills),
		Workload:             WorkloadScore(w.WorkloadHours, w.MaxWeeklyHours),
		Performance:          PerformanceComponent(w.PerformanceScore),
		Experience:           ExperienceScore(w.ExperienceLevel),
		DifficultyAdjustment: DifficultyAdjustment(it.Difficulty, w.ExperienceLevel),
		EstimatedHours:       EstimatedHours(it.Difficulty, w.AvgCompletionTime, w.ExperienceLevel),
	}
	c.Overall = s.Overall(c)
	c.Reason = Reason(c)
	return c
}
