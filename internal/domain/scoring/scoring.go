// Package scoring holds the pure fitness functions used to match workers to
// work items. Every function is total and deterministic.
package scoring

import (
	"github.com/shaanlabs/Tekista/internal/domain/model"
)

// Scoring constants.
const (
	// SkillFloor is the minimum skill match a candidate needs to be assigned.
	SkillFloor = 0.5

	maxPerformanceScore = 100.0

	hardTaskRatio       = 1.5
	easyTaskRatio       = 0.5
	hardTaskAdjustment  = 0.5
	easyTaskAdjustment  = 0.8
	neutralAdjustment   = 1.0
	baselineDifficulty  = 5.0
	baselineExperience  = 5.0
	defaultAvgHours     = 8.0
	defaultTaskDuration = 5
)

// SkillMatch returns the fraction of distinct required skills the worker has,
// compared case-insensitively. Nothing required yields 1; an empty skill map
// with requirements yields 0.
func SkillMatch(skills map[string]float64, required []string) float64 {
	return coverage(skills, required, 1.0)
}

func coverage(skills map[string]float64, required []string, whenNoneRequired float64) float64 {
	want := distinctKeys(required)
	if len(want) == 0 {
		return whenNoneRequired
	}
	if len(skills) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(skills))
	for name := range skills {
		have[model.SkillKey(name)] = struct{}{}
	}
	matched := 0
	for k := range want {
		if _, ok := have[k]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

func distinctKeys(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		if k := model.SkillKey(n); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// MeetsSkillFloor reports whether a skill match is eligible for assignment.
func MeetsSkillFloor(match float64) bool {
	return match >= SkillFloor
}

// WorkloadScore is 1 - current/max, and 0 once the worker is at capacity.
func WorkloadScore(current, maxHours float64) float64 {
	if maxHours <= 0 || current >= maxHours {
		return 0
	}
	if current <= 0 {
		return 1
	}
	return 1 - current/maxHours
}

// ExperienceScore normalises an experience level to [0,1].
func ExperienceScore(level int) float64 {
	if level <= 0 {
		return 0
	}
	return min(float64(level)/model.MaxExperienceLevel, 1)
}

// PerformanceComponent normalises a 0..100 performance score to [0,1].
func PerformanceComponent(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return min(score/maxPerformanceScore, 1)
}

// DifficultyAdjustment damps items that are far harder or easier than the
// worker's experience. Experience below 1 counts as 1.
func DifficultyAdjustment(difficulty, experience int) float64 {
	ratio := float64(difficulty) / float64(max(experience, 1))
	switch {
	case ratio > hardTaskRatio:
		return hardTaskAdjustment
	case ratio < easyTaskRatio:
		return easyTaskAdjustment
	default:
		return neutralAdjustment
	}
}

// EstimatedHours predicts the hours a worker needs for an item. Without
// history the difficulty itself is the estimate.
func EstimatedHours(difficulty int, avgCompletionTime float64, experience int) float64 {
	if avgCompletionTime <= 0 {
		return float64(difficulty)
	}
	exp := float64(max(experience, 1))
	return avgCompletionTime * (float64(difficulty) / baselineDifficulty) * (baselineExperience / exp)
}

// AccuracyRatio compares estimated and actual hours: min(a/e, e/a), or 0 when
// either side is missing.
func AccuracyRatio(estimated, actual float64) float64 {
	if estimated <= 0 || actual <= 0 {
		return 0
	}
	return min(actual/estimated, estimated/actual)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
