package performance

import (
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

const percent = 100.0

// Series is a chart-ready view of performance records. Ratio columns are
// percentages.
type Series struct {
	PeriodDays        int          `json:"period_days"`
	DataPoints        int          `json:"data_points"`
	Dates             []time.Time  `json:"dates"`
	Scores            []float64    `json:"performance_scores"`
	OnTimeRatios      []float64    `json:"on_time_ratios"`
	SkillAccuracies   []float64    `json:"skill_accuracies"`
	DifficultyFactors []float64    `json:"difficulty_factors"`
	Statistics        *SeriesStats `json:"statistics,omitempty"`
}

// SeriesStats summarises the score column.
type SeriesStats struct {
	Average float64 `json:"average_score"`
	Max     float64 `json:"max_score"`
	Min     float64 `json:"min_score"`
	Range   float64 `json:"score_range"`
}

// SeriesOf lays out records, which must be oldest first, column by column.
// Statistics is nil without records.
func SeriesOf(records []model.PerformanceRecord, periodDays int) Series {
	n := len(records)
	s := Series{
		PeriodDays:        periodDays,
		DataPoints:        n,
		Dates:             make([]time.Time, 0, n),
		Scores:            make([]float64, 0, n),
		OnTimeRatios:      make([]float64, 0, n),
		SkillAccuracies:   make([]float64, 0, n),
		DifficultyFactors: make([]float64, 0, n),
	}
	if n == 0 {
		return s
	}

	st := SeriesStats{Max: records[0].PerformanceScore, Min: records[0].PerformanceScore}
	sum := 0.0
	for _, r := range records {
		s.Dates = append(s.Dates, r.CreatedAt)
		s.Scores = append(s.Scores, r.PerformanceScore)
		s.OnTimeRatios = append(s.OnTimeRatios, r.OnTimeRatio*percent)
		s.SkillAccuracies = append(s.SkillAccuracies, r.SkillAccuracy*percent)
		s.DifficultyFactors = append(s.DifficultyFactors, r.DifficultyFactor*percent)
		sum += r.PerformanceScore
		st.Max = max(st.Max, r.PerformanceScore)
		st.Min = min(st.Min, r.PerformanceScore)
	}
	st.Average = sum / float64(n)
	st.Range = st.Max - st.Min
	s.Statistics = &st
	return s
}
