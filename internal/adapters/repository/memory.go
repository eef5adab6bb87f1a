package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
)

// MemoryStore is an in-memory Store guarded by a single RWMutex. Every
// multi-entity transition happens under the write lock, so it is atomic.
type MemoryStore struct {
	mu sync.RWMutex

	workers      map[string]*model.Worker
	items        map[string]*model.WorkItem
	assignments  map[string]*model.Assignment
	activeByItem map[string]string
	byWorker     map[string][]string
	byItem       map[string][]string
	performance  map[string][]model.PerformanceRecord
	successes    map[string]*scoring.SuccessHistory

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		workers:      make(map[string]*model.Worker),
		items:        make(map[string]*model.WorkItem),
		assignments:  make(map[string]*model.Assignment),
		activeByItem: make(map[string]string),
		byWorker:     make(map[string][]string),
		byItem:       make(map[string][]string),
		performance:  make(map[string][]model.PerformanceRecord),
		successes:    make(map[string]*scoring.SuccessHistory),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreateWorker(ctx context.Context, w model.Worker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workers[w.ID]; ok {
		return fmt.Errorf("worker %s: %w", w.ID, ErrAlreadyExists)
	}
	c := w.Clone()
	s.workers[w.ID] = &c
	return nil
}

func (s *MemoryStore) Worker(ctx context.Context, id string) (model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return model.Worker{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[id]
	if !ok {
		return model.Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	return w.Clone(), nil
}

func (s *MemoryStore) ListWorkers(ctx context.Context, f WorkerFilter) ([]model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		if f.OrganizationID != "" && w.OrganizationID != f.OrganizationID {
			continue
		}
		if f.AvailableOnly && !w.Available {
			continue
		}
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateWorker(ctx context.Context, id string, fn func(w *model.Worker) error) (model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return model.Worker{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok {
		return model.Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	c := w.Clone()
	if err := fn(&c); err != nil {
		return model.Worker{}, err
	}
	c.ID = id
	c.UpdatedAt = s.now()
	s.workers[id] = &c
	return c.Clone(), nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, it model.WorkItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return fmt.Errorf("item %s: %w", it.ID, ErrAlreadyExists)
	}
	c := it.Clone()
	s.items[it.ID] = &c
	return nil
}

func (s *MemoryStore) Item(ctx context.Context, id string) (model.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return model.WorkItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return model.WorkItem{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return it.Clone(), nil
}

func (s *MemoryStore) ListItems(ctx context.Context, f ItemFilter) ([]model.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var held map[string]struct{}
	if f.NotHeldBy != "" {
		ids := s.byWorker[f.NotHeldBy]
		held = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			held[s.assignments[id].ItemID] = struct{}{}
		}
	}
	out := make([]model.WorkItem, 0)
	for _, it := range s.items {
		if f.OrganizationID != "" && it.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if _, ok := held[it.ID]; ok {
			continue
		}
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Assignment(ctx context.Context, id string) (model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) ActiveAssignment(ctx context.Context, itemID string) (model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.activeByItem[itemID]
	if !ok {
		return model.Assignment{}, fmt.Errorf("active assignment for item %s: %w", itemID, ErrNotFound)
	}
	return s.assignments[id].Clone(), nil
}

func (s *MemoryStore) AssignmentsByWorker(ctx context.Context, workerID string) ([]model.Assignment, error) {
	return s.assignmentsBy(ctx, s.byWorker, workerID)
}

func (s *MemoryStore) AssignmentsByItem(ctx context.Context, itemID string) ([]model.Assignment, error) {
	return s.assignmentsBy(ctx, s.byItem, itemID)
}

func (s *MemoryStore) assignmentsBy(ctx context.Context, index map[string][]string, key string) ([]model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := index[key]
	out := make([]model.Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.assignments[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) CommitAssignment(ctx context.Context, a model.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[a.ItemID]
	if !ok {
		return fmt.Errorf("item %s: %w", a.ItemID, ErrNotFound)
	}
	w, ok := s.workers[a.WorkerID]
	if !ok {
		return fmt.Errorf("worker %s: %w", a.WorkerID, ErrNotFound)
	}
	if _, exists := s.assignments[a.ID]; exists {
		return fmt.Errorf("assignment %s: %w", a.ID, ErrAlreadyExists)
	}
	if it.Status != model.ItemOpen {
		return fmt.Errorf("item %s is %s: %w", it.ID, it.Status, ErrItemNotOpen)
	}
	if _, busy := s.activeByItem[it.ID]; busy {
		return fmt.Errorf("item %s already has an active assignment: %w", it.ID, ErrItemNotOpen)
	}

	now := s.now()
	c := a.Clone()
	c.Status = model.AssignmentActive
	s.assignments[c.ID] = &c
	s.activeByItem[it.ID] = c.ID
	s.byWorker[c.WorkerID] = append(s.byWorker[c.WorkerID], c.ID)
	s.byItem[c.ItemID] = append(s.byItem[c.ItemID], c.ID)

	it.Status = model.ItemAssigned
	it.UpdatedAt = now
	w.WorkloadHours += c.EstimatedHours
	w.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ReleaseItem(ctx context.Context, itemID string, next model.ItemStatus, reason string, at time.Time) (model.Assignment, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		return model.Assignment{}, false, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}

	var released model.Assignment
	id, hadActive := s.activeByItem[itemID]
	if hadActive {
		a := s.assignments[id]
		a.Status = model.AssignmentCancelled
		a.ReassignedAt = &at
		a.ReassignmentReason = reason
		delete(s.activeByItem, itemID)
		if w, ok := s.workers[a.WorkerID]; ok {
			w.WorkloadHours = max(0, w.WorkloadHours-a.EstimatedHours)
			w.UpdatedAt = s.now()
		}
		released = a.Clone()
	}
	it.Status = next
	it.UpdatedAt = s.now()
	return released, hadActive, nil
}

func (s *MemoryStore) CompleteAssignment(ctx context.Context, id string, actualHours float64, at time.Time) (model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if a.Status != model.AssignmentActive {
		return model.Assignment{}, fmt.Errorf("assignment %s is %s: %w", id, a.Status, ErrNotActive)
	}

	hours := actualHours
	a.Status = model.AssignmentCompleted
	a.CompletedAt = &at
	a.ActualHours = &hours
	delete(s.activeByItem, a.ItemID)

	now := s.now()
	if it, ok := s.items[a.ItemID]; ok {
		it.Status = model.ItemCompleted
		it.UpdatedAt = now

		h, ok := s.successes[a.WorkerID]
		if !ok {
			h = scoring.NewSuccessHistory()
			s.successes[a.WorkerID] = h
		}
		h.Add(it.ProjectID, it.Difficulty, a.CompletedOnTime(it.DueDate))
	}
	if w, ok := s.workers[a.WorkerID]; ok {
		w.WorkloadHours = max(0, w.WorkloadHours-actualHours)
		w.UpdatedAt = now
	}
	return a.Clone(), nil
}

func (s *MemoryStore) ApplyCompletionGrowth(ctx context.Context, assignmentID string, fn func(w *model.Worker)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return false, fmt.Errorf("assignment %s: %w", assignmentID, ErrNotFound)
	}
	if a.SkillGrowthApplied {
		return false, nil
	}
	w, ok := s.workers[a.WorkerID]
	if !ok {
		return false, fmt.Errorf("worker %s: %w", a.WorkerID, ErrNotFound)
	}
	c := w.Clone()
	if c.Skills == nil {
		c.Skills = make(map[string]float64)
	}
	fn(&c)
	c.UpdatedAt = s.now()
	s.workers[c.ID] = &c
	a.SkillGrowthApplied = true
	return true, nil
}

func (s *MemoryStore) SuccessHistory(ctx context.Context, workerID string) (*scoring.SuccessHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.successes[workerID]; ok {
		return h.Clone(), nil
	}
	return scoring.NewSuccessHistory(), nil
}

func (s *MemoryStore) RecordPerformance(ctx context.Context, rec model.PerformanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[rec.WorkerID]
	if !ok {
		return fmt.Errorf("worker %s: %w", rec.WorkerID, ErrNotFound)
	}
	s.performance[rec.WorkerID] = append(s.performance[rec.WorkerID], rec)
	w.PerformanceScore = rec.PerformanceScore
	w.TasksCompleted = rec.TasksCompleted
	w.AvgCompletionTime = rec.AvgCompletionTime
	w.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) LatestPerformance(ctx context.Context, workerID string) (model.PerformanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.PerformanceRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.performance[workerID]
	if len(recs) == 0 {
		return model.PerformanceRecord{}, fmt.Errorf("performance of worker %s: %w", workerID, ErrNotFound)
	}
	return recs[len(recs)-1], nil
}

func (s *MemoryStore) PerformanceHistory(ctx context.Context, workerID string, since time.Time) ([]model.PerformanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PerformanceRecord
	for _, r := range s.performance[workerID] {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Totals(_ context.Context) Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := Totals{Workers: len(s.workers), ActiveAssignments: len(s.activeByItem)}
	for _, it := range s.items {
		if it.Status == model.ItemOpen {
			t.OpenItems++
		}
	}
	return t
}
