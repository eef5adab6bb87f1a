package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaanlabs/Tekista/internal/adapters/events"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	service "github.com/shaanlabs/Tekista/internal/app"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/retry"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

type fixture struct {
	svc    *service.Service
	store  *repository.MemoryStore
	events *events.Recorder
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(repository.WithClock(fixedClock))
	return newFixtureWithStore(store, store, opts...)
}

func newFixtureWithStore(mem *repository.MemoryStore, store repository.Store, opts ...service.Option) *fixture {
	rec := events.NewRecorder(256)
	base := []service.Option{
		service.WithStore(store),
		service.WithClock(fixedClock),
		service.WithRetryPolicy(fastRetry()),
		service.WithPublisher(rec),
		service.WithWorkerCount(2),
	}
	return &fixture{svc: service.New(append(base, opts...)...), store: mem, events: rec}
}

func (f *fixture) worker(id string, skills map[string]float64, workload float64) {
	ctx := context.Background()
	if _, err := f.svc.CreateWorker(ctx, types.NewWorker{
		ID: id, OrganizationID: "org", Name: id, Skills: skills, ExperienceLevel: 5,
	}); err != nil {
		panic(err)
	}
	if workload > 0 {
		if _, err := f.store.UpdateWorker(ctx, id, func(w *model.Worker) error {
			w.WorkloadHours = workload
			return nil
		}); err != nil {
			panic(err)
		}
	}
}

func (f *fixture) item(id string, difficulty int, required ...string) model.WorkItem {
	it, err := f.svc.CreateItem(context.Background(), types.NewItem{
		ID: id, OrganizationID: "org", ProjectID: "p1", Title: id,
		RequiredSkills: required, Difficulty: difficulty,
	})
	if err != nil {
		panic(err)
	}
	return it
}

func (f *fixture) eventTypes() []model.EventType {
	var out []model.EventType
	for _, e := range f.events.Drain() {
		out = append(out, e.Type)
	}
	return out
}

// flakyStore fails the first n commits with a transient error.
type flakyStore struct {
	*repository.MemoryStore
	remaining atomic.Int32
	calls     atomic.Int32
}

func (f *flakyStore) CommitAssignment(ctx context.Context, a model.Assignment) error {
	f.calls.Add(1)
	if f.remaining.Add(-1) >= 0 {
		return fmt.Errorf("commit %s: %w", a.ID, repository.ErrTransient)
	}
	return f.MemoryStore.CommitAssignment(ctx, a)
}

// growthFailStore fails the next n skill growth writes with a permanent error.
type growthFailStore struct {
	*repository.MemoryStore
	remaining atomic.Int32
}

func (g *growthFailStore) ApplyCompletionGrowth(ctx context.Context, assignmentID string, fn func(w *model.Worker)) (bool, error) {
	if g.remaining.Add(-1) >= 0 {
		return false, fmt.Errorf("grow %s: disk full", assignmentID)
	}
	return g.MemoryStore.ApplyCompletionGrowth(ctx, assignmentID, fn)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
