package model_test

import (
	"testing"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker", t, func() {
		w := model.Worker{
			ID:             "w-1",
			Skills:         map[string]float64{"Python": 40},
			WorkloadHours:  30,
			MaxWeeklyHours: 40,
		}

		convey.Convey("Capacity is the remaining hours", func() {
			convey.So(w.AvailableCapacity(), convey.ShouldEqual, 10.0)
			convey.So(w.Overloaded(), convey.ShouldBeFalse)
		})

		convey.Convey("Capacity never goes negative", func() {
			w.WorkloadHours = 55
			convey.So(w.AvailableCapacity(), convey.ShouldEqual, 0.0)
			convey.So(w.Overloaded(), convey.ShouldBeTrue)
		})

		convey.Convey("Clone does not share the skill map", func() {
			c := w.Clone()
			c.Skills["Python"] = 99
			convey.So(w.Skills["Python"], convey.ShouldEqual, 40.0)
		})

		convey.Convey("A nil skill map means no profile", func() {
			convey.So(w.HasSkillProfile(), convey.ShouldBeTrue)
			convey.So(model.Worker{}.HasSkillProfile(), convey.ShouldBeFalse)
		})
	})
}

func TestWorkItem(t *testing.T) {
	convey.Convey("Given a work item with a due date", t, func() {
		due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		it := model.WorkItem{ID: "i-1", RequiredSkills: []string{"Go"}, DueDate: &due}

		convey.Convey("Overdue is strict", func() {
			convey.So(it.Overdue(due), convey.ShouldBeFalse)
			convey.So(it.Overdue(due.Add(time.Second)), convey.ShouldBeTrue)
			convey.So(model.WorkItem{}.Overdue(due), convey.ShouldBeFalse)
		})

		convey.Convey("Clone copies slices and the due date", func() {
			c := it.Clone()
			c.RequiredSkills[0] = "Rust"
			*c.DueDate = due.Add(time.Hour)
			convey.So(it.RequiredSkills[0], convey.ShouldEqual, "Go")
			convey.So(*it.DueDate, convey.ShouldEqual, due)
		})

		convey.Convey("Terminal statuses", func() {
			convey.So(model.ItemCompleted.Terminal(), convey.ShouldBeTrue)
			convey.So(model.ItemCancelled.Terminal(), convey.ShouldBeTrue)
			convey.So(model.ItemOpen.Terminal(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Priorities parse case-insensitively", t, func() {
		p, err := model.ParsePriority("HIGH")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, model.PriorityHigh)

		p, err = model.ParsePriority("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, model.PriorityMedium)

		_, err = model.ParsePriority("urgent")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestAssignmentOnTime(t *testing.T) {
	convey.Convey("Given a completed assignment", t, func() {
		due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		done := due
		a := model.Assignment{CompletedAt: &done}

		convey.So(a.CompletedOnTime(&due), convey.ShouldBeTrue)
		late := due.Add(time.Minute)
		a.CompletedAt = &late
		convey.So(a.CompletedOnTime(&due), convey.ShouldBeFalse)
		convey.So(a.CompletedOnTime(nil), convey.ShouldBeFalse)
		convey.So(model.Assignment{}.CompletedOnTime(&due), convey.ShouldBeFalse)
	})
}
