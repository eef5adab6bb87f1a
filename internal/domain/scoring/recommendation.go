package scoring

import (
	"math"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

const (
	maxPriorityBoost = 1.5
	overdueBoost     = 1.2
	maxRecommend     = 100.0
	similarDiffRange = 2
	noHistoryRate    = 0.5
)

// RecommendationWeights weight the recommendation composite.
type RecommendationWeights struct {
	SkillOverlap      float64
	CompletionTimeFit float64
	SuccessRate       float64
	WorkloadFit       float64
	ExperienceMatch   float64
}

// DefaultRecommendationWeights returns 0.30/0.20/0.20/0.15/0.15.
func DefaultRecommendationWeights() RecommendationWeights {
	return RecommendationWeights{
		SkillOverlap:      0.30,
		CompletionTimeFit: 0.20,
		SuccessRate:       0.20,
		WorkloadFit:       0.15,
		ExperienceMatch:   0.15,
	}
}

// RecommendationComponents break down an item's recommendation score.
type RecommendationComponents struct {
	SkillOverlap          float64 `json:"skill_overlap"`
	CompletionTimeFit     float64 `json:"completion_time_fit"`
	HistoricalSuccessRate float64 `json:"historical_success_rate"`
	WorkloadFit           float64 `json:"workload_fit"`
	ExperienceMatch       float64 `json:"experience_match"`
	PriorityBoost         float64 `json:"priority_boost"`
}

// SkillOverlap is SkillMatch with a neutral 0.5 when nothing is required.
func SkillOverlap(skills map[string]float64, required []string) float64 {
	return coverage(skills, required, 0.5)
}

func taskHours(difficulty int) float64 {
	if difficulty <= 0 {
		return defaultTaskDuration
	}
	return float64(difficulty)
}

// CompletionTimeFit rates how an item's expected hours compare to the worker's
// average, peaking when they are equal.
func CompletionTimeFit(difficulty int, avgCompletionTime float64) float64 {
	avg := avgCompletionTime
	if avg <= 0 {
		avg = defaultAvgHours
	}
	ratio := taskHours(difficulty) / avg
	var fit float64
	switch {
	case ratio < 0.5:
		fit = 0.7 + ratio*0.3
	case ratio > 2:
		fit = 0.5 - (ratio-2)*0.1
	default:
		fit = 1 - math.Abs(1-ratio)*0.2
	}
	return clamp01(fit)
}

// WorkloadFit prefers items that use 50-80% of the remaining capacity.
func WorkloadFit(w model.Worker, difficulty int) float64 {
	if w.Overloaded() {
		return 0
	}
	capacity := w.AvailableCapacity()
	est := taskHours(difficulty)
	if capacity <= 0 || est > capacity {
		return 0
	}
	util := est / capacity
	switch {
	case util >= 0.5 && util <= 0.8:
		return 1
	case util < 0.5:
		return 0.7
	default:
		return 0.9
	}
}

// ExperienceMatch rates difficulty against experience, peaking at parity.
func ExperienceMatch(difficulty, experience int) float64 {
	exp := experience
	if exp <= 0 {
		exp = int(baselineExperience)
	}
	ratio := taskHours(difficulty) / float64(exp)
	var m float64
	switch {
	case ratio < 0.5:
		m = 0.6 + ratio*0.4
	case ratio > 1.5:
		m = 1 - (ratio-1.5)*0.2
	default:
		m = 1 - math.Abs(1-ratio)*0.1
	}
	return clamp01(m)
}

// PriorityBoost multiplies urgent and overdue items, capped at 1.5.
func PriorityBoost(it model.WorkItem, now time.Time) float64 {
	boost := 1.0
	switch it.Priority {
	case model.PriorityLow:
		boost = 0.8
	case model.PriorityHigh:
		boost = 1.3
	}
	if it.Overdue(now) {
		boost *= overdueBoost
	}
	return min(boost, maxPriorityBoost)
}

// RecommendationScore combines components into a 0..100 score.
func RecommendationScore(c RecommendationComponents, w RecommendationWeights) float64 {
	s := c.SkillOverlap*w.SkillOverlap +
		c.CompletionTimeFit*w.CompletionTimeFit +
		c.HistoricalSuccessRate*w.SuccessRate +
		c.WorkloadFit*w.WorkloadFit +
		c.ExperienceMatch*w.ExperienceMatch
	return max(0, min(maxRecommend, s*c.PriorityBoost*maxRecommend))
}

// SuccessHistory tallies a worker's completed items by project and difficulty
// so similar-item success lookups are constant time.
type SuccessHistory struct {
	byProject map[string]*[model.MaxDifficulty + 1]tally
	overall   tally
}

type tally struct {
	onTime int
	total  int
}

// NewSuccessHistory returns an empty history.
func NewSuccessHistory() *SuccessHistory {
	return &SuccessHistory{byProject: make(map[string]*[model.MaxDifficulty + 1]tally)}
}

// Add records one completed item.
func (h *SuccessHistory) Add(projectID string, difficulty int, onTime bool) {
	h.overall.add(onTime)
	d := min(max(difficulty, 0), model.MaxDifficulty)
	row, ok := h.byProject[projectID]
	if !ok {
		row = new([model.MaxDifficulty + 1]tally)
		h.byProject[projectID] = row
	}
	row[d].add(onTime)
}

// Clone returns an independent copy.
func (h *SuccessHistory) Clone() *SuccessHistory {
	c := &SuccessHistory{byProject: make(map[string]*[model.MaxDifficulty + 1]tally, len(h.byProject)), overall: h.overall}
	for p, row := range h.byProject {
		cp := *row
		c.byProject[p] = &cp
	}
	return c
}

func (t *tally) add(onTime bool) {
	t.total++
	if onTime {
		t.onTime++
	}
}

// Total is the number of completed items recorded.
func (h *SuccessHistory) Total() int { return h.overall.total }

// OnTimeRatio is the overall on-time fraction, 0.5 with no history.
func (h *SuccessHistory) OnTimeRatio() float64 {
	if h.overall.total == 0 {
		return noHistoryRate
	}
	return float64(h.overall.onTime) / float64(h.overall.total)
}

// HistoricalSuccessRate is the on-time fraction over completed items in the
// same project with difficulty within ±2, falling back to the overall ratio.
func (h *SuccessHistory) HistoricalSuccessRate(projectID string, difficulty int) float64 {
	if row, ok := h.byProject[projectID]; ok {
		d := difficulty
		if d <= 0 {
			d = defaultTaskDuration
		}
		var sum tally
		for i := max(d-similarDiffRange, 0); i <= min(d+similarDiffRange, model.MaxDifficulty); i++ {
			sum.onTime += row[i].onTime
			sum.total += row[i].total
		}
		if sum.total > 0 {
			return float64(sum.onTime) / float64(sum.total)
		}
	}
	return h.OnTimeRatio()
}

// Recommend computes the components and score of item for worker.
func Recommend(w model.Worker, it model.WorkItem, h *SuccessHistory, weights RecommendationWeights, now time.Time) (RecommendationComponents, float64) {
	c := RecommendationComponents{
		SkillOverlap:          SkillOverlap(w.Skills, it.RequiredSkills),
		CompletionTimeFit:     CompletionTimeFit(it.Difficulty, w.AvgCompletionTime),
		HistoricalSuccessRate: h.HistoricalSuccessRate(it.ProjectID, it.Difficulty),
		WorkloadFit:           WorkloadFit(w, it.Difficulty),
		ExperienceMatch:       ExperienceMatch(it.Difficulty, w.ExperienceLevel),
		PriorityBoost:         PriorityBoost(it, now),
	}
	return c, RecommendationScore(c, weights)
}
