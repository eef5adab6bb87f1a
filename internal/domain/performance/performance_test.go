package performance

import (
	"testing"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestCompute(t *testing.T) {
	Convey("Given no completions", t, func() {
		m := Compute(nil)
		So(m.TasksCompleted, ShouldEqual, 0)
		So(m.OnTimeRatio, ShouldEqual, 0.5)
		So(m.SkillAccuracy, ShouldEqual, 0.5)
		So(m.DifficultyFactor, ShouldEqual, 0.5)
		So(Score(m), ShouldEqual, 50.0)
	})

	Convey("Given a mix of completions", t, func() {
		due := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
		cs := []Completion{
			{Difficulty: 8, DueDate: &due, CompletedAt: due.Add(-48 * time.Hour), ActualHours: 6, SkillMatch: 1},
			{Difficulty: 4, DueDate: &due, CompletedAt: due.Add(24 * time.Hour), ActualHours: 10, SkillMatch: 0.5},
			{Difficulty: 0, CompletedAt: due, ActualHours: 2, SkillMatch: 0.6},
		}
		m := Compute(cs)

		So(m.TasksCompleted, ShouldEqual, 3)
		So(m.OnTimeRatio, ShouldAlmostEqual, 1.0/3, eps)
		So(m.SkillAccuracy, ShouldAlmostEqual, 0.7, eps)
		So(m.DifficultyFactor, ShouldAlmostEqual, 0.6, eps)
		So(m.AvgCompletionTime, ShouldAlmostEqual, 6.0, eps)
		So(m.AvgCompletionSpeed, ShouldAlmostEqual, 0.5, eps) // (+2 - 1) / 2

		want := 100 * (0.5/3 + 0.3*0.7 + 0.2*0.6)
		So(Score(m), ShouldAlmostEqual, want, eps)
	})

	Convey("Score is clamped", t, func() {
		So(Score(Metrics{OnTimeRatio: 3, SkillAccuracy: 3, DifficultyFactor: 3}), ShouldEqual, 100.0)
		So(Score(Metrics{OnTimeRatio: -3}), ShouldEqual, 0.0)
	})

	Convey("Compute is deterministic", t, func() {
		due := time.Now().UTC()
		cs := []Completion{{Difficulty: 5, DueDate: &due, CompletedAt: due, SkillMatch: 0.8}}
		So(Score(Compute(cs)), ShouldEqual, Score(Compute(cs)))
	})
}

func TestFromAssignment(t *testing.T) {
	Convey("Given a completed assignment", t, func() {
		done := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		hours := 3.5
		a := model.Assignment{SkillMatch: 0.75, CompletedAt: &done, ActualHours: &hours}
		c := FromAssignment(a, model.WorkItem{Difficulty: 6})
		So(c.CompletedAt, ShouldEqual, done)
		So(c.ActualHours, ShouldEqual, 3.5)
		So(c.Difficulty, ShouldEqual, 6)
		So(c.OnTime(), ShouldBeFalse)
	})
}

func TestTrend(t *testing.T) {
	Convey("Given performance records", t, func() {
		base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		recs := []model.PerformanceRecord{
			{PerformanceScore: 70, CreatedAt: base.Add(48 * time.Hour)},
			{PerformanceScore: 40, CreatedAt: base.Add(-72 * time.Hour)},
			{PerformanceScore: 55, CreatedAt: base},
		}

		Convey("The window starts at since and is ordered", func() {
			tr := TrendOf(recs, base)
			So(tr.Direction, ShouldEqual, TrendUp)
			So(tr.Change, ShouldEqual, 15.0)
			So(tr.PeriodDays, ShouldEqual, 30)
		})

		Convey("Fewer than two records is flat", func() {
			So(TrendOf(recs, base.Add(time.Hour)).Direction, ShouldEqual, TrendFlat)
		})

		Convey("A drop is down", func() {
			recs[0].PerformanceScore = 20
			So(TrendOf(recs, base).Direction, ShouldEqual, TrendDown)
		})
	})
}

func TestSeries(t *testing.T) {
	Convey("Given no records", t, func() {
		s := SeriesOf(nil, 90)
		So(s.PeriodDays, ShouldEqual, 90)
		So(s.DataPoints, ShouldEqual, 0)
		So(s.Scores, ShouldBeEmpty)
		So(s.Statistics, ShouldBeNil)
	})

	Convey("Given three records", t, func() {
		day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		recs := []model.PerformanceRecord{
			{PerformanceScore: 60, OnTimeRatio: 0.5, SkillAccuracy: 0.4, DifficultyFactor: 0.3, CreatedAt: day},
			{PerformanceScore: 80, OnTimeRatio: 1, SkillAccuracy: 0.8, DifficultyFactor: 0.6, CreatedAt: day.AddDate(0, 0, 1)},
			{PerformanceScore: 70, OnTimeRatio: 0.75, SkillAccuracy: 0.6, DifficultyFactor: 0.5, CreatedAt: day.AddDate(0, 0, 2)},
		}
		s := SeriesOf(recs, 30)

		Convey("Columns keep record order and ratios become percentages", func() {
			So(s.DataPoints, ShouldEqual, 3)
			So(s.Dates[2], ShouldEqual, day.AddDate(0, 0, 2))
			So(s.Scores, ShouldResemble, []float64{60, 80, 70})
			So(s.OnTimeRatios, ShouldResemble, []float64{50, 100, 75})
			So(s.DifficultyFactors[1], ShouldAlmostEqual, 60, eps)
		})

		Convey("Statistics describe the score column", func() {
			So(s.Statistics, ShouldNotBeNil)
			So(s.Statistics.Average, ShouldAlmostEqual, 70, eps)
			So(s.Statistics.Max, ShouldEqual, 80.0)
			So(s.Statistics.Min, ShouldEqual, 60.0)
			So(s.Statistics.Range, ShouldEqual, 20.0)
		})
	})
}

func TestCompletionSpeed(t *testing.T) {
	Convey("Speed is positive when early and negative when late", t, func() {
		due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		So(CompletionSpeedDays(due, due.Add(-36*time.Hour)), ShouldEqual, 1.5)
		So(CompletionSpeedDays(due, due.Add(12*time.Hour)), ShouldEqual, -0.5)
	})
}

func TestTeamAndInsights(t *testing.T) {
	Convey("Given a team", t, func() {
		ws := []model.Worker{
			{ID: "b", PerformanceScore: 90, TasksCompleted: 4, MaxWeeklyHours: 40},
			{ID: "a", PerformanceScore: 90, TasksCompleted: 1, MaxWeeklyHours: 40},
			{ID: "c", PerformanceScore: 30, TasksCompleted: 2, WorkloadHours: 45, MaxWeeklyHours: 40},
		}
		s := Team(ws)
		So(s.Members, ShouldEqual, 3)
		So(s.AverageScore, ShouldEqual, 70.0)
		So(s.TotalCompleted, ShouldEqual, 7)
		So(s.Overloaded, ShouldEqual, 1)
		So(s.TopPerformers[0].WorkerID, ShouldEqual, "a")
		So(s.NeedsAttention, ShouldHaveLength, 1)
		So(Team(nil).Members, ShouldEqual, 0)

		So(Insights(ws[2]), ShouldHaveLength, 2)
		So(Insights(ws[0]), ShouldResemble, []string{"High performer; ready for more challenging items"})
	})
}
