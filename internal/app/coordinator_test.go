package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	service "github.com/shaanlabs/Tekista/internal/app"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/types"
)

func TestAutoAssign(t *testing.T) {
	ctx := context.Background()

	Convey("Given a worker with Python and SQL", t, func() {
		f := newFixture(t)
		f.worker("w", map[string]float64{"Python": 70, "SQL": 40}, 0)

		Convey("An item requiring Python is assigned with a full skill match", func() {
			f.item("i", 3, "python")
			res, err := f.svc.AutoAssign(ctx, "i", "")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, types.OutcomeAssigned)
			So(res.WorkerID, ShouldEqual, "w")
			So(res.SkillMatch, ShouldEqual, 1.0)
			So(res.Strategy, ShouldEqual, scoring.StrategyHybrid)
			So(res.EstimatedHours, ShouldEqual, 3.0)

			it, _ := f.store.Item(ctx, "i")
			So(it.Status, ShouldEqual, model.ItemAssigned)
			w, _ := f.store.Worker(ctx, "w")
			So(w.WorkloadHours, ShouldEqual, 3.0)
			So(f.eventTypes(), ShouldResemble, []model.EventType{model.EventAssignmentCreated})

			Convey("and cannot be assigned twice", func() {
				_, err := f.svc.AutoAssign(ctx, "i", "")
				So(errors.Is(err, service.ErrInvalidState), ShouldBeTrue)
			})
		})

		Convey("Unknown items and strategies are rejected", func() {
			_, err := f.svc.AutoAssign(ctx, "missing", "")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

			f.item("i", 3, "Python")
			_, err = f.svc.AutoAssign(ctx, "i", "round_robin")
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})
	})

	Convey("Given two fully matched workers with different workloads", t, func() {
		f := newFixture(t)
		f.worker("w1", map[string]float64{"Go": 50}, 5)
		f.worker("w2", map[string]float64{"Go": 50}, 35)
		f.item("i", 5, "Go")

		Convey("The lighter loaded worker wins", func() {
			res, err := f.svc.AutoAssign(ctx, "i", scoring.StrategyHybrid)
			So(err, ShouldBeNil)
			So(res.WorkerID, ShouldEqual, "w1")
			So(res.CandidatesEvaluated, ShouldEqual, 2)
		})
	})

	Convey("Given equal candidates", t, func() {
		f := newFixture(t)
		f.worker("b", map[string]float64{"Go": 50}, 0)
		f.worker("a", map[string]float64{"Go": 50}, 0)
		f.item("i", 5, "Go")

		Convey("The lower worker ID breaks the tie", func() {
			res, err := f.svc.AutoAssign(ctx, "i", scoring.StrategySkillMatch)
			So(err, ShouldBeNil)
			So(res.WorkerID, ShouldEqual, "a")
		})
	})

	Convey("Given an item requiring Go and Kubernetes", t, func() {
		f := newFixture(t)
		f.item("i", 5, "Go", "Kubernetes")

		Convey("A candidate matching half the skills is kept", func() {
			f.worker("w", map[string]float64{"Go": 90}, 0)
			res, err := f.svc.AutoAssign(ctx, "i", "")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, types.OutcomeAssigned)
			So(res.SkillMatch, ShouldEqual, 0.5)
		})

		Convey("A candidate below half is filtered and nothing is assigned", func() {
			f.item("j", 5, "Go", "Kubernetes", "Helm", "Terraform", "AWS")
			f.worker("w", map[string]float64{"Go": 90, "Helm": 10}, 0)
			res, err := f.svc.AutoAssign(ctx, "j", "")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, types.OutcomeNoSuitableWorker)
			So(res.BelowSkillThreshold, ShouldEqual, 1)

			it, _ := f.store.Item(ctx, "j")
			So(it.Status, ShouldEqual, model.ItemOpen)

			cands, err := f.svc.RankCandidates(ctx, "j", "", 0)
			So(err, ShouldBeNil)
			So(cands, ShouldHaveLength, 1)
			So(cands[0].BelowSkillThreshold, ShouldBeTrue)
			So(cands[0].SkillMatch, ShouldAlmostEqual, 0.4)
		})

		Convey("Workers without a skill profile or availability are ignored", func() {
			f.worker("bare", nil, 0)
			f.worker("away", map[string]float64{"Go": 90, "Kubernetes": 90}, 0)
			off := false
			_, err := f.svc.UpdateSkillProfile(ctx, "away", types.SkillPatch{Available: &off})
			So(err, ShouldBeNil)

			res, err := f.svc.AutoAssign(ctx, "i", "")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, types.OutcomeNoSuitableWorker)
			So(res.CandidatesEvaluated, ShouldEqual, 0)
		})
	})
}

func TestSkillFloorAcrossRandomPools(t *testing.T) {
	Convey("Across randomized pools no assignment is below the skill floor", t, func() {
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(7, 11))
		catalogue := []string{"Go", "Python", "SQL", "Docker", "React", "Kubernetes"}
		pick := func(n int) []string {
			perm := rng.Perm(len(catalogue))
			out := make([]string, 0, n)
			for _, i := range perm[:n] {
				out = append(out, catalogue[i])
			}
			return out
		}

		for range 40 {
			f := newFixture(t)
			for w := range 1 + rng.IntN(6) {
				sk := map[string]float64{}
				for _, s := range pick(rng.IntN(4)) {
					sk[s] = float64(rng.IntN(100))
				}
				f.worker(fmt.Sprintf("w%d", w), sk, float64(rng.IntN(40)))
			}
			f.item("i", 1+rng.IntN(10), pick(1+rng.IntN(4))...)

			res, err := f.svc.AutoAssign(ctx, "i", "")
			So(err, ShouldBeNil)
			cands, _ := f.svc.RankCandidates(ctx, "i", "", 0)
			if res.Assigned() {
				So(scoring.MeetsSkillFloor(res.SkillMatch), ShouldBeTrue)
				continue
			}
			for _, c := range cands {
				So(c.BelowSkillThreshold, ShouldBeTrue)
			}
		}
	})
}

func TestConcurrentAutoAssign(t *testing.T) {
	Convey("Concurrent assignment of one item commits exactly once", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		for i := range 5 {
			f.worker(fmt.Sprintf("w%d", i), map[string]float64{"Go": 60}, 0)
		}
		f.item("i", 4, "Go")

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			assigned int
			other    []error
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.svc.AutoAssign(ctx, "i", "")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && res.Assigned():
					assigned++
				case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
				default:
					other = append(other, err)
				}
			}()
		}
		wg.Wait()

		So(other, ShouldBeEmpty)
		So(assigned, ShouldEqual, 1)
		as, _ := f.store.AssignmentsByItem(ctx, "i")
		So(as, ShouldHaveLength, 1)
	})
}

func TestTransientStoreFailures(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store whose commits fail transiently", t, func() {
		mem := repository.NewMemoryStore(repository.WithClock(fixedClock))
		flaky := &flakyStore{MemoryStore: mem}
		f := newFixtureWithStore(mem, flaky)
		f.worker("w", map[string]float64{"Go": 60}, 0)
		f.item("i", 4, "Go")

		Convey("Two failures are retried away", func() {
			flaky.remaining.Store(2)
			res, err := f.svc.AutoAssign(ctx, "i", "")
			So(err, ShouldBeNil)
			So(res.Assigned(), ShouldBeTrue)
			So(flaky.calls.Load(), ShouldEqual, 3)
		})

		Convey("Exhausted retries surface as retryable with nothing committed", func() {
			flaky.remaining.Store(100)
			_, err := f.svc.AutoAssign(ctx, "i", "")
			So(errors.Is(err, service.ErrRetryable), ShouldBeTrue)
			So(errors.Is(err, repository.ErrTransient), ShouldBeTrue)
			So(flaky.calls.Load(), ShouldEqual, 3)

			it, _ := mem.Item(ctx, "i")
			So(it.Status, ShouldEqual, model.ItemOpen)
		})
	})
}

func TestReassign(t *testing.T) {
	ctx := context.Background()

	Convey("Given an item assigned to w1", t, func() {
		f := newFixture(t)
		f.worker("w1", map[string]float64{"Go": 60}, 0)
		f.worker("w2", map[string]float64{"Go": 60}, 10)
		f.item("i", 4, "Go")
		first, err := f.svc.AutoAssign(ctx, "i", "")
		So(err, ShouldBeNil)
		So(first.WorkerID, ShouldEqual, "w1")

		Convey("Reassigning after w1 goes away moves the item to w2", func() {
			off := false
			_, err := f.svc.UpdateSkillProfile(ctx, "w1", types.SkillPatch{Available: &off})
			So(err, ShouldBeNil)

			res, err := f.svc.Reassign(ctx, "i", "vacation", "")
			So(err, ShouldBeNil)
			So(res.WorkerID, ShouldEqual, "w2")

			old, _ := f.store.Assignment(ctx, first.AssignmentID)
			So(old.Status, ShouldEqual, model.AssignmentCancelled)
			So(old.ReassignmentReason, ShouldEqual, "vacation")
			So(old.ReassignedAt, ShouldNotBeNil)

			w1, _ := f.store.Worker(ctx, "w1")
			So(w1.WorkloadHours, ShouldEqual, 0.0)
			So(f.eventTypes(), ShouldResemble, []model.EventType{
				model.EventAssignmentCreated, model.EventAssignmentReassigned, model.EventAssignmentCreated,
			})
		})

		Convey("Completed items cannot be reassigned", func() {
			_, err := f.svc.CompleteAssignment(ctx, first.AssignmentID, 4)
			So(err, ShouldBeNil)
			_, err = f.svc.Reassign(ctx, "i", "", "")
			So(errors.Is(err, service.ErrInvalidState), ShouldBeTrue)
		})
	})
}

func TestCompleteAssignment(t *testing.T) {
	ctx := context.Background()

	Convey("Given an assignment of a difficulty 5 item due in two days", t, func() {
		f := newFixture(t)
		f.worker("w", map[string]float64{"Go": 60}, 0)
		due := now.AddDate(0, 0, 2)
		_, err := f.svc.CreateItem(ctx, types.NewItem{
			ID: "i", OrganizationID: "org", ProjectID: "p1", Title: "i",
			RequiredSkills: []string{"go"}, Difficulty: 5, DueDate: &due,
		})
		So(err, ShouldBeNil)
		res, err := f.svc.AutoAssign(ctx, "i", "")
		So(err, ShouldBeNil)
		So(res.EstimatedHours, ShouldEqual, 5.0)
		f.events.Drain()

		Convey("Completing it in 4 hours records accuracy 0.8 and lifts the score", func() {
			done, err := f.svc.CompleteAssignment(ctx, res.AssignmentID, 4)
			So(err, ShouldBeNil)
			So(done.AccuracyRatio, ShouldAlmostEqual, 0.8)
			So(done.OldScore, ShouldEqual, 50.0)
			So(done.NewScore, ShouldAlmostEqual, 90)
			So(done.ScoreChange, ShouldAlmostEqual, 40)
			So(done.SkillGrowth["Go"], ShouldAlmostEqual, 2.16)

			w, _ := f.store.Worker(ctx, "w")
			So(w.WorkloadHours, ShouldEqual, 1.0)
			So(w.TasksCompleted, ShouldEqual, 1)
			So(w.AvgCompletionTime, ShouldEqual, 4.0)
			So(w.Skills["Go"], ShouldAlmostEqual, 62.16)

			a, _ := f.store.Assignment(ctx, res.AssignmentID)
			So(service.AccuracyRatio(a), ShouldAlmostEqual, 0.8)
			So(a.SkillGrowthApplied, ShouldBeTrue)

			So(f.eventTypes(), ShouldResemble, []model.EventType{
				model.EventAssignmentCompleted, model.EventPerformanceUpdated,
			})

			Convey("A second completion is rejected", func() {
				_, err := f.svc.CompleteAssignment(ctx, res.AssignmentID, 4)
				So(errors.Is(err, service.ErrInvalidState), ShouldBeTrue)
			})

			Convey("Recomputing again appends nothing", func() {
				rc, err := f.svc.Recompute(ctx, "w")
				So(err, ShouldBeNil)
				So(rc.Appended, ShouldBeFalse)
				So(rc.Record.PerformanceScore, ShouldAlmostEqual, 90)
				hist, err := f.svc.PerformanceHistory(ctx, "w", 30)
				So(err, ShouldBeNil)
				So(hist, ShouldHaveLength, 1)
			})
		})

		Convey("Completing it in exactly the estimated hours records accuracy 1.0", func() {
			done, err := f.svc.CompleteAssignment(ctx, res.AssignmentID, res.EstimatedHours)
			So(err, ShouldBeNil)
			So(done.AccuracyRatio, ShouldEqual, 1.0)

			a, _ := f.store.Assignment(ctx, res.AssignmentID)
			So(service.AccuracyRatio(a), ShouldEqual, 1.0)
		})

		Convey("Negative hours are invalid", func() {
			_, err := f.svc.CompleteAssignment(ctx, res.AssignmentID, -1)
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("Unknown assignments are not found", func() {
			_, err := f.svc.CompleteAssignment(ctx, "nope", 1)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("AccuracyRatio is zero without actual hours", t, func() {
		So(service.AccuracyRatio(model.Assignment{EstimatedHours: 5}), ShouldEqual, 0.0)
		h := 10.0
		So(service.AccuracyRatio(model.Assignment{EstimatedHours: 5, ActualHours: &h}), ShouldEqual, 0.5)
	})
}

func TestOwedSkillGrowth(t *testing.T) {
	ctx := context.Background()

	Convey("Given a completion whose skill growth write fails once", t, func() {
		mem := repository.NewMemoryStore(repository.WithClock(fixedClock))
		failing := &growthFailStore{MemoryStore: mem}
		f := newFixtureWithStore(mem, failing)
		f.worker("w", map[string]float64{"Go": 60}, 0)
		f.item("i", 5, "Go")
		res, err := f.svc.AutoAssign(ctx, "i", "")
		So(err, ShouldBeNil)

		failing.remaining.Store(1)
		_, err = f.svc.CompleteAssignment(ctx, res.AssignmentID, 4)
		So(err, ShouldNotBeNil)

		a, _ := mem.Assignment(ctx, res.AssignmentID)
		So(a.Status, ShouldEqual, model.AssignmentCompleted)
		So(a.SkillGrowthApplied, ShouldBeFalse)
		w, _ := mem.Worker(ctx, "w")
		So(w.Skills["Go"], ShouldEqual, 60.0)

		Convey("Completing again is rejected", func() {
			_, err := f.svc.CompleteAssignment(ctx, res.AssignmentID, 4)
			So(errors.Is(err, service.ErrInvalidState), ShouldBeTrue)
		})

		Convey("The performance refresh applies the owed growth exactly once", func() {
			So(f.svc.RefreshPerformance(ctx), ShouldBeNil)

			a, _ := mem.Assignment(ctx, res.AssignmentID)
			So(a.SkillGrowthApplied, ShouldBeTrue)
			w, _ := mem.Worker(ctx, "w")
			So(w.Skills["Go"], ShouldBeGreaterThan, 60.0)
			grown := w.Skills["Go"]

			So(f.svc.RefreshPerformance(ctx), ShouldBeNil)
			w, _ = mem.Worker(ctx, "w")
			So(w.Skills["Go"], ShouldEqual, grown)
		})
	})
}
