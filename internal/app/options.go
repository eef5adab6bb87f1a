package service

import (
	"time"

	"github.com/shaanlabs/Tekista/internal/adapters/events"
	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/config"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/retry"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies every engine setting of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		WithWorkerCount(cfg.WorkerCount)(s)
		WithQueueSize(cfg.QueueSize)(s)
		WithDedupeSize(cfg.DedupeSize)(s)
		WithScan(cfg.ScanInterval(), cfg.ScanJitter(), cfg.ScanConcurrency)(s)
		WithPerformanceRefresh(cfg.PerformanceRefreshInterval())(s)
		WithBackfillOnComplete(cfg.BackfillOnComplete)(s)
		WithMaxRecommendations(cfg.MaxRecommendations)(s)
		WithRetryPolicy(retry.Policy{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval(),
			MaxInterval:     cfg.RetryMaxInterval(),
		})(s)
		aw := cfg.AssignmentWeights
		WithAssignmentWeights(scoring.AssignmentWeights{
			Skill: aw.Skill, Workload: aw.Workload, Performance: aw.Performance, Experience: aw.Experience,
		})(s)
		rw := cfg.RecommendationWeights
		WithRecommendationWeights(scoring.RecommendationWeights{
			SkillOverlap: rw.SkillOverlap, CompletionTimeFit: rw.CompletionTimeFit, SuccessRate: rw.SuccessRate,
			WorkloadFit: rw.WorkloadFit, ExperienceMatch: rw.ExperienceMatch,
		})(s)
	}
}

// WithWorkerCount sets the number of goroutines serving queued requests.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending requests.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithScan enables the periodic auto-assign scan.
func WithScan(interval, jitter time.Duration, concurrency int) Option {
	return func(s *Service) {
		s.scanInterval = interval
		s.scanJitter = jitter
		if concurrency > 0 {
			s.scanConcurrency = concurrency
		}
	}
}

// WithPerformanceRefresh enables the periodic performance recompute.
func WithPerformanceRefresh(interval time.Duration) Option {
	return func(s *Service) { s.refreshInterval = interval }
}

// WithBackfillOnComplete queues new work for a worker after each completion.
func WithBackfillOnComplete(on bool) Option {
	return func(s *Service) { s.backfillOnComplete = on }
}

// WithMaxRecommendations caps recommendation limits.
func WithMaxRecommendations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRecommendations = n
		}
	}
}

// WithAssignmentWeights sets the hybrid strategy weights.
func WithAssignmentWeights(w scoring.AssignmentWeights) Option {
	return func(s *Service) { s.assignmentWeights = w }
}

// WithRecommendationWeights sets the recommendation weights.
func WithRecommendationWeights(w scoring.RecommendationWeights) Option {
	return func(s *Service) { s.recommendationWeights = w }
}

// WithRetryPolicy sets the policy for transient store failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.deps.retry = p }
}

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.deps.store = store
		}
	}
}

// WithLocker sets the lock used to serialize item and worker updates.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.deps.locker = l
		}
	}
}

// WithPublisher sets where domain events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.deps.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.deps.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.deps.now = now
		}
	}
}

// WithIDGenerator overrides how entity and event IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.deps.newID = newID
		}
	}
}
