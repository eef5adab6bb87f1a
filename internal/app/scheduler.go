package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// Job is a named periodic task. A zero Interval disables it.
type Job struct {
	Name     string
	Interval time.Duration
	Jitter   time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on jittered intervals until stopped.
type Scheduler struct {
	jobs []Job
	log  logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for jobs.
func NewScheduler(log logger.Logger, jobs ...Job) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{jobs: jobs, log: log}
}

// Start launches one goroutine per enabled job. It is a no-op when running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(next(j))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, j)
			ticker.Reset(next(j))
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	start := time.Now()
	err := j.Run(ctx)
	elapsed := time.Since(start)
	result := "ok"
	if err != nil {
		result = "error"
		s.log.Error(ctx, "job failed",
			logger.String("job", j.Name),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
	} else {
		s.log.Debug(ctx, "job finished",
			logger.String("job", j.Name),
			logger.Duration("elapsed", elapsed),
		)
	}
	metrics.RecordJobRun(j.Name, result, elapsed)
}

func next(j Job) time.Duration {
	if j.Jitter <= 0 {
		return j.Interval
	}
	return j.Interval + rand.N(j.Jitter)
}
