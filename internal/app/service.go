// Package service wires the allocation engine: assignment, recommendation,
// performance tracking, skill ledger and the asynchronous request pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/mq/queue"
	"github.com/shaanlabs/Tekista/internal/adapters/mq/worker"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/dedupe"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/performance"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/skills"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

const (
	defaultQueueSize       = 10_000
	defaultDedupeSize      = 100_000
	defaultScanConcurrency = 4
	defaultMaxRecs         = 50
	profileTopSkills       = 5
)

// Service implements the API dependencies of the allocation engine.
type Service struct {
	mu   sync.RWMutex
	deps deps

	coordinator *Coordinator
	recommender *Recommender
	tracker     *Tracker
	ledger      *Ledger
	feedback    *FeedbackLoop
	scheduler   *Scheduler

	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	deduper dedupe.Deduper

	workerCount           int
	queueSize             int
	dedupeSize            int
	scanInterval          time.Duration
	scanJitter            time.Duration
	scanConcurrency       int
	refreshInterval       time.Duration
	backfillOnComplete    bool
	maxRecommendations    int
	assignmentWeights     scoring.AssignmentWeights
	recommendationWeights scoring.RecommendationWeights

	started bool
	lastRun atomic.Pointer[types.ScanReport]
}

// New constructs a Service. Without options it runs on an in-memory store,
// an in-process locker and a discarding logger.
func New(opts ...Option) *Service {
	s := &Service{
		deps:                  defaultDeps(),
		workerCount:           runtime.NumCPU() * 2,
		queueSize:             defaultQueueSize,
		dedupeSize:            defaultDedupeSize,
		scanConcurrency:       defaultScanConcurrency,
		maxRecommendations:    defaultMaxRecs,
		assignmentWeights:     scoring.DefaultAssignmentWeights(),
		recommendationWeights: scoring.DefaultRecommendationWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}

	d := &s.deps
	s.tracker = &Tracker{deps: d}
	s.ledger = &Ledger{deps: d}
	s.feedback = &FeedbackLoop{deps: d, tracker: s.tracker, ledger: s.ledger}
	if s.backfillOnComplete {
		s.feedback.backfill = s.RequestBackfill
	}
	s.coordinator = &Coordinator{deps: d, weights: s.assignmentWeights, feedback: s.feedback}
	s.recommender = &Recommender{deps: d, weights: s.recommendationWeights, max: s.maxRecommendations}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.scheduler = NewScheduler(d.log.Named("scheduler"),
		Job{Name: "auto-assign-scan", Interval: s.scanInterval, Jitter: s.scanJitter, Run: s.scanJob},
		Job{Name: "performance-refresh", Interval: s.refreshInterval, Run: s.RefreshPerformance},
	)
	return s
}

// Start launches the request queue, the worker pool and the scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.HandlerFunc(s.handle),
		worker.WithPoolLogger(s.deps.log.Named("worker-pool")))
	s.pool.Start(ctx)
	s.scheduler.Start(ctx)

	s.started = true
	s.deps.log.Info(ctx, "allocation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Duration("scan_interval", s.scanInterval),
		logger.Duration("refresh_interval", s.refreshInterval),
	)
	return nil
}

// Stop drains queued requests and stops background jobs.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.scheduler.Stop()
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.deps.log.Info(ctx, "allocation service stopped")
	return err
}

// CreateWorker registers a worker.
func (s *Service) CreateWorker(ctx context.Context, in types.NewWorker) (types.WorkerProfile, error) {
	if strings.TrimSpace(in.OrganizationID) == "" {
		return types.WorkerProfile{}, fmt.Errorf("organization id required: %w", ErrInvalidArgument)
	}
	if err := validateSkills(in.Skills); err != nil {
		return types.WorkerProfile{}, err
	}
	w := model.Worker{
		ID:               in.ID,
		OrganizationID:   in.OrganizationID,
		Name:             in.Name,
		ExperienceLevel:  in.ExperienceLevel,
		PerformanceScore: model.DefaultPerformanceScore,
		MaxWeeklyHours:   in.MaxWeeklyHours,
		Available:        in.Available == nil || *in.Available,
	}
	if w.ID == "" {
		w.ID = s.deps.newID()
	}
	if w.ExperienceLevel == 0 {
		w.ExperienceLevel = model.DefaultExperienceLevel
	}
	if w.ExperienceLevel < 1 || w.ExperienceLevel > model.MaxExperienceLevel {
		return types.WorkerProfile{}, fmt.Errorf("experience level %d outside 1..%d: %w", w.ExperienceLevel, model.MaxExperienceLevel, ErrInvalidArgument)
	}
	if w.MaxWeeklyHours == 0 {
		w.MaxWeeklyHours = model.DefaultMaxWeeklyHours
	}
	if !(w.MaxWeeklyHours > 0) || math.IsInf(w.MaxWeeklyHours, 0) {
		return types.WorkerProfile{}, fmt.Errorf("max weekly hours %v: %w", w.MaxWeeklyHours, ErrInvalidArgument)
	}
	if in.Skills != nil {
		w.Skills = make(map[string]float64, len(in.Skills))
		for name, v := range in.Skills {
			skills.Put(w.Skills, strings.TrimSpace(name), v)
		}
	}
	w.CreatedAt = s.deps.now()
	w.UpdatedAt = w.CreatedAt

	if err := s.deps.store.CreateWorker(ctx, w); err != nil {
		return types.WorkerProfile{}, translate(err)
	}
	s.deps.log.Info(ctx, "worker registered",
		logger.String("worker_id", w.ID),
		logger.String("organization_id", w.OrganizationID),
		logger.Int("skills", len(w.Skills)),
	)
	return profile(w), nil
}

// CreateItem adds an open work item.
func (s *Service) CreateItem(ctx context.Context, in types.NewItem) (model.WorkItem, error) {
	if strings.TrimSpace(in.OrganizationID) == "" {
		return model.WorkItem{}, fmt.Errorf("organization id required: %w", ErrInvalidArgument)
	}
	// 0 leaves the difficulty unset.
	if in.Difficulty < 0 || in.Difficulty > model.MaxDifficulty {
		return model.WorkItem{}, fmt.Errorf("difficulty %d outside 0..%d: %w", in.Difficulty, model.MaxDifficulty, ErrInvalidArgument)
	}
	prio, err := model.ParsePriority(in.Priority)
	if err != nil {
		return model.WorkItem{}, classify(ErrInvalidArgument, err)
	}
	it := model.WorkItem{
		ID:             in.ID,
		OrganizationID: in.OrganizationID,
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Difficulty:     in.Difficulty,
		Priority:       prio,
		DueDate:        in.DueDate,
		Status:         model.ItemOpen,
	}
	for _, name := range in.RequiredSkills {
		if n := strings.TrimSpace(name); n != "" {
			it.RequiredSkills = append(it.RequiredSkills, n)
		}
	}
	if it.ID == "" {
		it.ID = s.deps.newID()
	}
	it.CreatedAt = s.deps.now()
	it.UpdatedAt = it.CreatedAt

	if err := s.deps.store.CreateItem(ctx, it); err != nil {
		return model.WorkItem{}, translate(err)
	}
	return it, nil
}

// CancelItem cancels an item and releases its active assignment, if any.
func (s *Service) CancelItem(ctx context.Context, itemID, reason string) (model.WorkItem, error) {
	it, err := s.deps.store.Item(ctx, itemID)
	if err != nil {
		return model.WorkItem{}, translate(err)
	}
	if it.Status.Terminal() {
		return model.WorkItem{}, fmt.Errorf("item %s is %s: %w", itemID, it.Status, ErrInvalidState)
	}
	release, err := s.deps.acquire(ctx, lock.ItemKey(itemID))
	if err != nil {
		return model.WorkItem{}, err
	}
	defer release()

	err = s.deps.withRetry(ctx, "cancel", func(ctx context.Context) error {
		_, _, err := s.deps.store.ReleaseItem(ctx, itemID, model.ItemCancelled, reason, s.deps.now())
		return err
	})
	if err != nil {
		return model.WorkItem{}, err
	}
	it, err = s.deps.store.Item(ctx, itemID)
	return it, translate(err)
}

// AutoAssign assigns an open item synchronously.
func (s *Service) AutoAssign(ctx context.Context, itemID, strategy string) (types.AssignmentResult, error) {
	return s.coordinator.AutoAssign(ctx, itemID, strategy)
}

// Reassign moves an item to a new worker.
func (s *Service) Reassign(ctx context.Context, itemID, reason, strategy string) (types.AssignmentResult, error) {
	return s.coordinator.Reassign(ctx, itemID, reason, strategy)
}

// CompleteAssignment records completion of an active assignment.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID string, actualHours float64) (types.CompletionResult, error) {
	return s.coordinator.CompleteAssignment(ctx, assignmentID, actualHours)
}

// RankCandidates lists every scored candidate for an item.
func (s *Service) RankCandidates(ctx context.Context, itemID, strategy string, topN int) ([]types.Candidate, error) {
	return s.coordinator.RankCandidates(ctx, itemID, strategy, topN)
}

// Recommend ranks open items for a worker.
func (s *Service) Recommend(ctx context.Context, workerID string, topN int) ([]types.Recommendation, error) {
	return s.recommender.Recommend(ctx, workerID, topN)
}

// WorkerProfile returns the read model of a worker.
func (s *Service) WorkerProfile(ctx context.Context, workerID string) (types.WorkerProfile, error) {
	w, err := s.deps.store.Worker(ctx, workerID)
	if err != nil {
		return types.WorkerProfile{}, translate(err)
	}
	return profile(w), nil
}

// UpdateSkillProfile patches a worker's skills and capacity.
func (s *Service) UpdateSkillProfile(ctx context.Context, workerID string, p types.SkillPatch) (types.WorkerProfile, error) {
	w, err := s.ledger.UpdateSkillProfile(ctx, workerID, p)
	if err != nil {
		return types.WorkerProfile{}, err
	}
	return profile(w), nil
}

// IncrementSkill grows one skill of a worker.
func (s *Service) IncrementSkill(ctx context.Context, workerID, skill string, amount float64) (float64, error) {
	return s.ledger.IncrementSkill(ctx, workerID, skill, amount)
}

// TopSkills returns a worker's strongest skills.
func (s *Service) TopSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error) {
	return s.ledger.TopSkills(ctx, workerID, n)
}

// WeakestSkills returns a worker's weakest skills.
func (s *Service) WeakestSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error) {
	return s.ledger.WeakestSkills(ctx, workerID, n)
}

// SkillRecommendations suggests skills to improve.
func (s *Service) SkillRecommendations(ctx context.Context, workerID string, limit int) ([]skills.Focus, error) {
	return s.ledger.SkillRecommendations(ctx, workerID, limit)
}

// SkillGaps lists skills open work needs that the worker lacks.
func (s *Service) SkillGaps(ctx context.Context, workerID string) ([]skills.Gap, error) {
	return s.ledger.SkillGaps(ctx, workerID)
}

// LearningPath builds a worker's development plan.
func (s *Service) LearningPath(ctx context.Context, workerID string) (types.LearningPath, error) {
	return s.ledger.LearningPath(ctx, workerID)
}

// SkillsByCategory groups a worker's skills by category.
func (s *Service) SkillsByCategory(ctx context.Context, workerID string) (map[string]map[string]float64, error) {
	return s.ledger.SkillsByCategory(ctx, workerID)
}

// PerformanceSummary reports a worker's score, trend and statistics.
func (s *Service) PerformanceSummary(ctx context.Context, workerID string) (types.PerformanceSummary, error) {
	return s.tracker.Summary(ctx, workerID)
}

// PerformanceHistory returns recent performance records.
func (s *Service) PerformanceHistory(ctx context.Context, workerID string, days int) ([]model.PerformanceRecord, error) {
	return s.tracker.History(ctx, workerID, days)
}

// PerformanceTrends returns chart series of recent performance records.
func (s *Service) PerformanceTrends(ctx context.Context, workerID string, days int) (performance.Series, error) {
	return s.tracker.Trends(ctx, workerID, days)
}

// TeamSummary aggregates an organization's workers.
func (s *Service) TeamSummary(ctx context.Context, orgID string) (performance.TeamSummary, error) {
	return s.tracker.TeamSummary(ctx, orgID)
}

// Recompute refreshes a worker's performance record.
func (s *Service) Recompute(ctx context.Context, workerID string) (Recomputation, error) {
	return s.tracker.Recompute(ctx, workerID, "")
}

// EnqueueAssign queues an asynchronous auto-assignment. Repeated request IDs
// are acknowledged as duplicates without being queued again.
func (s *Service) EnqueueAssign(ctx context.Context, requestID, itemID, strategy string) (types.Enqueued, error) {
	if _, err := s.coordinator.strategy(strategy); err != nil {
		return types.Enqueued{}, err
	}
	if _, err := s.deps.store.Item(ctx, itemID); err != nil {
		return types.Enqueued{}, translate(err)
	}
	if requestID == "" {
		requestID = s.deps.newID()
	}
	return s.enqueue(ctx, model.Request{
		ID:       requestID,
		Kind:     model.RequestAssign,
		ItemID:   itemID,
		Strategy: strategy,
	})
}

// RequestBackfill queues a search for new work for a worker.
func (s *Service) RequestBackfill(ctx context.Context, workerID string) error {
	_, err := s.enqueue(ctx, model.Request{
		ID:       s.deps.newID(),
		Kind:     model.RequestBackfill,
		WorkerID: workerID,
	})
	return err
}

func (s *Service) enqueue(ctx context.Context, r model.Request) (types.Enqueued, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Enqueued{}, fmt.Errorf("service not started: %w", ErrInvalidState)
	}

	ack := types.Enqueued{RequestID: r.ID}
	if s.deduper.SeenAndRecord(ctx, r.ID) {
		metrics.RecordQueueDuplicate()
		ack.Duplicate = true
		return ack, nil
	}
	r.EnqueuedAt = s.deps.now()
	if err := s.queue.Enqueue(ctx, r); err != nil {
		s.deduper.Unrecord(ctx, r.ID)
		if errors.Is(err, queue.ErrFull) {
			return types.Enqueued{}, classify(ErrRetryable, err)
		}
		if errors.Is(err, queue.ErrClosed) {
			return types.Enqueued{}, classify(ErrInvalidState, err)
		}
		return types.Enqueued{}, err
	}
	return ack, nil
}

// handle executes a dequeued request.
func (s *Service) handle(ctx context.Context, r model.Request) error {
	switch r.Kind {
	case model.RequestAssign:
		_, err := s.coordinator.AutoAssign(ctx, r.ItemID, r.Strategy)
		if isSkippable(err) {
			s.deps.log.Debug(ctx, "queued assignment skipped",
				logger.String("item_id", r.ItemID),
				logger.Error(err),
			)
			return nil
		}
		return err
	case model.RequestBackfill:
		return s.backfill(ctx, r.WorkerID)
	default:
		return fmt.Errorf("unknown request kind %q: %w", r.Kind, ErrInvalidArgument)
	}
}

// backfill auto-assigns the open item that best suits the worker.
func (s *Service) backfill(ctx context.Context, workerID string) error {
	recs, err := s.recommender.Recommend(ctx, workerID, 1)
	if err != nil || len(recs) == 0 {
		return err
	}
	res, err := s.coordinator.AutoAssign(ctx, recs[0].ItemID, scoring.StrategyHybrid)
	if isSkippable(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s.deps.log.Debug(ctx, "backfill",
		logger.String("for_worker", workerID),
		logger.String("item_id", res.ItemID),
		logger.String("assigned_to", res.WorkerID),
	)
	return nil
}

// ScanOpenItems runs one auto-assign pass over every open item.
func (s *Service) ScanOpenItems(ctx context.Context) (types.ScanReport, error) {
	return scanOpenItems(ctx, s.deps.store, s.coordinator, s.scanConcurrency)
}

func (s *Service) scanJob(ctx context.Context) error {
	rep, err := s.ScanOpenItems(ctx)
	s.lastRun.Store(&rep)
	s.deps.log.Info(ctx, "auto-assign scan",
		logger.Int("scanned", rep.Scanned),
		logger.Int("assigned", rep.Assigned),
		logger.Int("no_suitable", rep.NoSuitable),
		logger.Int("failed", rep.Failed),
		logger.Bool("cancelled", rep.Cancelled),
	)
	return err
}

// RefreshPerformance recomputes every worker's performance record and
// applies skill growth still owed for completed assignments, which a
// completion that failed after committing leaves behind.
func (s *Service) RefreshPerformance(ctx context.Context) error {
	workers, err := s.deps.store.ListWorkers(ctx, repository.WorkerFilter{})
	if err != nil {
		return translate(err)
	}
	var errs []error
	for _, w := range workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.applyOwedGrowth(ctx, w.ID); err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", w.ID, err))
		}
		if _, err := s.tracker.Recompute(ctx, w.ID, ""); err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", w.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) applyOwedGrowth(ctx context.Context, workerID string) error {
	as, err := s.deps.store.AssignmentsByWorker(ctx, workerID)
	if err != nil {
		return translate(err)
	}
	for _, a := range as {
		if a.Status != model.AssignmentCompleted || a.SkillGrowthApplied {
			continue
		}
		it, err := s.deps.store.Item(ctx, a.ItemID)
		if err != nil {
			return translate(err)
		}
		growth, err := s.ledger.ApplyTaskCompletionSkillGrowth(ctx, a, it)
		if err != nil {
			return fmt.Errorf("skill growth for %s: %w", a.ID, err)
		}
		if len(growth) > 0 {
			s.deps.log.Info(ctx, "applied owed skill growth",
				logger.String("assignment_id", a.ID),
				logger.String("worker_id", workerID),
			)
		}
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	totals := s.deps.store.Totals(ctx)
	stats := map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"dedupeEntries":     s.deduper.Size(),
		"workers":           totals.Workers,
		"openItems":         totals.OpenItems,
		"activeAssignments": totals.ActiveAssignments,
	}
	metrics.UpdateStoreTotals(totals.Workers, totals.OpenItems, totals.ActiveAssignments)

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["processed"] = s.pool.Processed()
		metrics.UpdateQueueSize(s.queue.Len())
	}
	if rep := s.lastRun.Load(); rep != nil {
		stats["lastScan"] = *rep
	}
	return stats
}

func profile(w model.Worker) types.WorkerProfile {
	return types.WorkerProfile{
		WorkerID:          w.ID,
		OrganizationID:    w.OrganizationID,
		Name:              w.Name,
		Skills:            w.Skills,
		TopSkills:         skills.Top(w.Skills, profileTopSkills),
		ExperienceLevel:   w.ExperienceLevel,
		PerformanceScore:  w.PerformanceScore,
		WorkloadHours:     w.WorkloadHours,
		MaxWeeklyHours:    w.MaxWeeklyHours,
		AvailableCapacity: w.AvailableCapacity(),
		Available:         w.Available,
		TasksCompleted:    w.TasksCompleted,
		AvgCompletionTime: w.AvgCompletionTime,
		Insights:          Insights(w),
	}
}
