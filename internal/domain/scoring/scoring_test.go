package scoring

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestSkillMatch(t *testing.T) {
	Convey("Given skill match", t, func() {
		Convey("Nothing required is a full match, even with no skills", func() {
			So(SkillMatch(nil, nil), ShouldEqual, 1.0)
			So(SkillMatch(map[string]float64{}, []string{}), ShouldEqual, 1.0)
		})

		Convey("No skills against requirements is zero", func() {
			So(SkillMatch(nil, []string{"Go"}), ShouldEqual, 0.0)
		})

		Convey("Comparison ignores case in both directions", func() {
			skills := map[string]float64{"Python": 10, "sql": 5}
			So(SkillMatch(skills, []string{"python", "SQL"}), ShouldEqual, 1.0)
			So(SkillMatch(map[string]float64{"PYTHON": 1}, []string{"Python"}), ShouldEqual,
				SkillMatch(map[string]float64{"python": 1}, []string{"PYTHON"}))
		})

		Convey("Duplicates in the requirement list count once", func() {
			So(SkillMatch(map[string]float64{"Go": 1}, []string{"Go", "go", "Kubernetes"}), ShouldEqual, 0.5)
		})

		Convey("Partial coverage is a fraction", func() {
			So(SkillMatch(map[string]float64{"Go": 1}, []string{"Go", "Rust", "C"}), ShouldAlmostEqual, 1.0/3, eps)
		})

		Convey("The floor is inclusive at 0.5", func() {
			So(MeetsSkillFloor(0.5), ShouldBeTrue)
			So(MeetsSkillFloor(0.49), ShouldBeFalse)
		})
	})
}

func TestWorkloadScore(t *testing.T) {
	Convey("Given workload scoring", t, func() {
		So(WorkloadScore(0, 40), ShouldEqual, 1.0)
		So(WorkloadScore(10, 40), ShouldEqual, 0.75)
		So(WorkloadScore(40, 40), ShouldEqual, 0.0)
		So(WorkloadScore(50, 40), ShouldEqual, 0.0)
		So(WorkloadScore(5, 0), ShouldEqual, 0.0)

		Convey("It is monotonically non-increasing in current hours", func() {
			prev := WorkloadScore(0, 40)
			for h := 0.5; h <= 45; h += 0.5 {
				cur := WorkloadScore(h, 40)
				So(cur, ShouldBeLessThanOrEqualTo, prev)
				prev = cur
			}
		})
	})
}

func TestExperienceAndPerformance(t *testing.T) {
	Convey("Given normalisers", t, func() {
		So(ExperienceScore(5), ShouldEqual, 0.5)
		So(ExperienceScore(12), ShouldEqual, 1.0)
		So(ExperienceScore(0), ShouldEqual, 0.0)
		So(PerformanceComponent(85), ShouldEqual, 0.85)
		So(PerformanceComponent(130), ShouldEqual, 1.0)
		So(PerformanceComponent(-1), ShouldEqual, 0.0)
	})
}

func TestDifficultyAdjustment(t *testing.T) {
	Convey("Given the difficulty adjustment", t, func() {
		So(DifficultyAdjustment(8, 4), ShouldEqual, 0.5)  // ratio 2
		So(DifficultyAdjustment(6, 4), ShouldEqual, 1.0)  // ratio 1.5 is not above
		So(DifficultyAdjustment(2, 5), ShouldEqual, 0.8)  // ratio 0.4
		So(DifficultyAdjustment(5, 10), ShouldEqual, 1.0) // ratio 0.5 is not below
		So(DifficultyAdjustment(3, 0), ShouldEqual, 0.5)  // experience treated as 1

		Convey("It only yields the three documented values", func() {
			r := rand.New(rand.NewSource(7))
			for range 500 {
				v := DifficultyAdjustment(r.Intn(12), r.Intn(12))
				So(v == 0.5 || v == 0.8 || v == 1.0, ShouldBeTrue)
			}
		})
	})
}

func TestEstimatedHours(t *testing.T) {
	Convey("Given hour estimates", t, func() {
		Convey("Without history the difficulty is returned", func() {
			So(EstimatedHours(7, 0, 3), ShouldEqual, 7.0)
		})
		Convey("With history it scales by difficulty and experience", func() {
			// 8 * (5/5) * (5/5)
			So(EstimatedHours(5, 8, 5), ShouldEqual, 8.0)
			// 10 * (4/5) * (5/2)
			So(EstimatedHours(4, 10, 2), ShouldAlmostEqual, 20.0, eps)
		})
	})
}

func TestAccuracyRatio(t *testing.T) {
	Convey("Given accuracy ratios", t, func() {
		So(AccuracyRatio(10, 10), ShouldEqual, 1.0)
		So(AccuracyRatio(10, 0), ShouldEqual, 0.0)
		So(AccuracyRatio(0, 4), ShouldEqual, 0.0)

		Convey("It is symmetric and bounded by one", func() {
			r := rand.New(rand.NewSource(11))
			for range 200 {
				e, a := r.Float64()*40+0.1, r.Float64()*40+0.1
				v := AccuracyRatio(e, a)
				So(v, ShouldAlmostEqual, AccuracyRatio(a, e), eps)
				So(v, ShouldBeLessThanOrEqualTo, 1.0)
				So(v, ShouldBeGreaterThan, 0.0)
			}
		})
	})
}

func TestStrategies(t *testing.T) {
	Convey("Given a worker and an item", t, func() {
		w := model.Worker{
			Skills:           map[string]float64{"Go": 30, "SQL": 20},
			ExperienceLevel:  5,
			PerformanceScore: 80,
			WorkloadHours:    10,
			MaxWeeklyHours:   40,
		}
		it := model.WorkItem{RequiredSkills: []string{"go", "sql"}, Difficulty: 5}

		Convey("Hybrid weights every dimension", func() {
			s, err := ParseStrategy("", DefaultAssignmentWeights())
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, StrategyHybrid)

			c := Evaluate(w, it, s)
			want := 0.40*1 + 0.30*0.75 + 0.20*0.8 + 0.10*0.5
			So(c.Overall, ShouldAlmostEqual, want, eps)
			So(c.EstimatedHours, ShouldEqual, 5.0)
			So(c.Reason, ShouldEqual, "Excellent skill match | Low workload")
		})

		Convey("Hybrid applies the difficulty adjustment", func() {
			it.Difficulty = 9
			s, _ := ParseStrategy(StrategyHybrid, DefaultAssignmentWeights())
			c := Evaluate(w, it, s)
			So(c.DifficultyAdjustment, ShouldEqual, 0.5)
			So(c.Overall, ShouldAlmostEqual, (0.40+0.30*0.75+0.20*0.8+0.10*0.5)*0.5, eps)
		})

		Convey("Single-dimension strategies return that dimension", func() {
			for name, want := range map[string]float64{
				StrategySkillMatch:      1.0,
				StrategyWorkloadBalance: 0.75,
				StrategyPerformance:     0.8,
			} {
				s, err := ParseStrategy(name, DefaultAssignmentWeights())
				So(err, ShouldBeNil)
				So(Evaluate(w, it, s).Overall, ShouldEqual, want)
			}
		})

		Convey("Unknown strategies are rejected", func() {
			_, err := ParseStrategy("random", DefaultAssignmentWeights())
			So(errors.Is(err, ErrUnknownStrategy), ShouldBeTrue)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given reasons", t, func() {
		So(Reason(Components{}), ShouldEqual, "Suitable match")
		So(Reason(Components{SkillMatch: 0.7, Workload: 0.5, Performance: 0.9, Experience: 0.8}), ShouldEqual,
			"Good skill match | Moderate workload | High performer | Experienced")
	})
}

func TestRecommendationComponents(t *testing.T) {
	Convey("Given recommendation components", t, func() {
		Convey("Skill overlap is neutral when nothing is required", func() {
			So(SkillOverlap(map[string]float64{"Go": 1}, nil), ShouldEqual, 0.5)
			So(SkillOverlap(nil, []string{"Go"}), ShouldEqual, 0.0)
		})

		Convey("Completion time fit peaks at parity", func() {
			So(CompletionTimeFit(8, 8), ShouldEqual, 1.0)
			So(CompletionTimeFit(8, 0), ShouldEqual, 1.0) // default average of 8h
			So(CompletionTimeFit(2, 8), ShouldAlmostEqual, 0.7+0.25*0.3, eps)
			So(CompletionTimeFit(10, 2), ShouldAlmostEqual, 0.2, eps) // ratio 5
			So(CompletionTimeFit(10, 1), ShouldEqual, 0.0)
		})

		Convey("Workload fit prefers a 50-80% utilisation", func() {
			w := model.Worker{WorkloadHours: 30, MaxWeeklyHours: 40}
			So(WorkloadFit(w, 6), ShouldEqual, 1.0) // 0.6
			So(WorkloadFit(w, 2), ShouldEqual, 0.7) // 0.2
			So(WorkloadFit(w, 9), ShouldEqual, 0.9) // 0.9
			So(WorkloadFit(w, 11), ShouldEqual, 0.0)
			w.WorkloadHours = 40
			So(WorkloadFit(w, 1), ShouldEqual, 0.0)
		})

		Convey("Experience match peaks at parity", func() {
			So(ExperienceMatch(5, 5), ShouldEqual, 1.0)
			So(ExperienceMatch(1, 5), ShouldAlmostEqual, 0.6+0.2*0.4, eps)
			So(ExperienceMatch(10, 2), ShouldAlmostEqual, 0.3, eps)
			So(ExperienceMatch(10, 1), ShouldEqual, 0.0)
		})

		Convey("Priority boost is capped", func() {
			now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
			past := now.Add(-time.Hour)
			So(PriorityBoost(model.WorkItem{Priority: model.PriorityLow}, now), ShouldEqual, 0.8)
			So(PriorityBoost(model.WorkItem{Priority: model.PriorityMedium}, now), ShouldEqual, 1.0)
			So(PriorityBoost(model.WorkItem{Priority: model.PriorityHigh}, now), ShouldEqual, 1.3)
			So(PriorityBoost(model.WorkItem{Priority: model.PriorityMedium, DueDate: &past}, now), ShouldEqual, 1.2)
			So(PriorityBoost(model.WorkItem{Priority: model.PriorityHigh, DueDate: &past}, now), ShouldEqual, 1.5)
		})

		Convey("The composite is reported on a 0-100 scale", func() {
			c := RecommendationComponents{
				SkillOverlap: 1, CompletionTimeFit: 1, HistoricalSuccessRate: 1,
				WorkloadFit: 1, ExperienceMatch: 1, PriorityBoost: 1.5,
			}
			So(RecommendationScore(c, DefaultRecommendationWeights()), ShouldEqual, 100.0)
			c.PriorityBoost = 1
			c.WorkloadFit = 0
			So(RecommendationScore(c, DefaultRecommendationWeights()), ShouldAlmostEqual, 85.0, 1e-6)
		})
	})
}

func TestSuccessHistory(t *testing.T) {
	Convey("Given a success history", t, func() {
		h := NewSuccessHistory()

		Convey("No history is neutral", func() {
			So(h.HistoricalSuccessRate("p1", 5), ShouldEqual, 0.5)
			So(h.Total(), ShouldEqual, 0)
		})

		Convey("Similar items in the same project are preferred", func() {
			h.Add("p1", 4, true)
			h.Add("p1", 7, false)
			h.Add("p1", 1, false) // outside ±2 of 5
			h.Add("p2", 5, false)

			So(h.HistoricalSuccessRate("p1", 5), ShouldEqual, 0.5)
			So(h.HistoricalSuccessRate("p1", 3), ShouldEqual, 0.5)   // 4 on time, 1 late
			So(h.HistoricalSuccessRate("p1", 10), ShouldEqual, 0.25) // falls back to 1 of 4 overall
		})

		Convey("Otherwise the overall on-time ratio applies", func() {
			h.Add("p2", 5, true)
			h.Add("p2", 5, true)
			h.Add("p2", 5, false)
			So(h.HistoricalSuccessRate("p9", 5), ShouldAlmostEqual, 2.0/3, eps)
		})
	})
}

func TestRecommendScoreBounds(t *testing.T) {
	Convey("Given randomised workers and items", t, func() {
		r := rand.New(rand.NewSource(3))
		now := time.Now().UTC()
		for range 300 {
			w := model.Worker{
				Skills:            map[string]float64{"a": 1, "b": 1},
				ExperienceLevel:   r.Intn(11),
				WorkloadHours:     r.Float64() * 50,
				MaxWeeklyHours:    40,
				AvgCompletionTime: r.Float64() * 20,
			}
			due := now.Add(time.Duration(r.Intn(96)-48) * time.Hour)
			it := model.WorkItem{
				RequiredSkills: []string{"a", "c"},
				Difficulty:     r.Intn(11),
				Priority:       []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}[r.Intn(3)],
				DueDate:        &due,
			}
			c, score := Recommend(w, it, NewSuccessHistory(), DefaultRecommendationWeights(), now)
			So(score, ShouldBeBetweenOrEqual, 0.0, 100.0)
			So(c.PriorityBoost, ShouldBeLessThanOrEqualTo, 1.5)
			So(math.IsNaN(score), ShouldBeFalse)
		}
	})
}
