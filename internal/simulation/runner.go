package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

// counters are the concurrently updated parts of Stats.
type counters struct {
	attempts   atomic.Int64
	assigned   atomic.Int64
	noSuitable atomic.Int64
	conflicts  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
}

// run tracks what the clients observed per item.
type run struct {
	cfg    *Config
	client *httpClient
	log    logger.Logger
	fx     Fixtures
	c      counters
	// grants counts assigned outcomes per item id.
	grants *xsync.Map[string, *atomic.Int64]
}

// Run executes a complete simulation against cfg.BaseURL. It returns the
// collected statistics and a non-nil error when the service could not be
// driven or verification failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulation")

	log.Info(ctx, "starting allocation simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Int("items", cfg.Items),
		logger.Int("clients", cfg.Clients),
		logger.Int("contenders", cfg.Contenders),
		logger.String("strategy", cfg.Strategy),
		logger.Duration("timeout", cfg.Timeout))

	r := &run{
		cfg:    cfg,
		client: newHTTPClient(cfg.BaseURL, cfg.Timeout),
		log:    log,
		grants: xsync.NewMap[string, *atomic.Int64](),
	}

	// Step 1: Check service health
	if err := r.checkHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and seed the population
	r.fx = Generate(cfg, time.Now().UTC())
	if err := r.seed(ctx, stats); err != nil {
		return stats, fmt.Errorf("seeding failed: %w", err)
	}

	// Step 3: Race assign and complete cycles
	r.drive(ctx)
	r.collect(stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("simulation interrupted: %w", err)
	}

	// Step 4: Verify the service's bookkeeping
	verr := r.verify(ctx, stats)

	if cfg.OutputFile != "" {
		if err := saveFixtures(ctx, cfg.OutputFile, r.fx); err != nil {
			log.Warn(ctx, "failed to save fixtures", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verr != nil {
		return stats, verr
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func (r *run) checkHealth(ctx context.Context) error {
	r.log.Info(ctx, "checking service health")
	if _, err := r.client.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return err
	}
	r.log.Info(ctx, "service is healthy")
	return nil
}

// seed creates every worker before any item so the first assignments see
// the whole pool.
func (r *run) seed(ctx context.Context, stats *Stats) error {
	var workers, items, failed atomic.Int64
	var firstErr atomic.Pointer[error]
	fail := func(err error) {
		failed.Add(1)
		firstErr.CompareAndSwap(nil, &err)
	}

	fanOut(ctx, r.cfg.Clients, len(r.fx.Workers), func(ctx context.Context, i int) {
		if _, err := r.client.do(ctx, http.MethodPost, "/workers", r.fx.Workers[i], nil); err != nil {
			fail(err)
			return
		}
		workers.Add(1)
	}, nil)

	fanOut(ctx, r.cfg.Clients, len(r.fx.Items), func(ctx context.Context, i int) {
		if _, err := r.client.do(ctx, http.MethodPost, "/items", r.fx.Items[i], nil); err != nil {
			fail(err)
			return
		}
		items.Add(1)
	}, nil)

	stats.WorkersSeeded = int(workers.Load())
	stats.ItemsSeeded = int(items.Load())
	if p := firstErr.Load(); p != nil {
		return fmt.Errorf("%d creations failed, first: %w", failed.Load(), *p)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Info(ctx, "population seeded",
		logger.Int("workers", stats.WorkersSeeded),
		logger.Int("items", stats.ItemsSeeded))
	return nil
}

// drive sends Contenders assign requests per item. Requests for one item are
// queued back to back so they race; every granted assignment is completed
// straight away.
func (r *run) drive(ctx context.Context) {
	total := len(r.fx.Items) * r.cfg.Contenders
	r.log.Info(ctx, "driving assignment cycles", logger.Int("requests", total))

	fanOut(ctx, r.cfg.Clients, total, func(ctx context.Context, i int) {
		r.cycle(ctx, r.fx.Items[i/r.cfg.Contenders])
	}, func(done, total int) {
		r.log.Info(ctx, "progress",
			logger.Int("done", done),
			logger.Int("total", total),
			logger.Int("assigned", int(r.c.assigned.Load())),
			logger.Int("conflicts", int(r.c.conflicts.Load())))
	})
}

func (r *run) cycle(ctx context.Context, item types.NewItem) {
	r.c.attempts.Add(1)

	var res types.AssignmentResult
	status, err := r.client.do(ctx, http.MethodPost, "/items/"+item.ID+"/assign",
		map[string]string{"strategy": r.cfg.Strategy}, &res)
	switch {
	case status == http.StatusConflict:
		r.c.conflicts.Add(1)
		return
	case err != nil:
		r.c.failed.Add(1)
		r.log.Warn(ctx, "assign failed", logger.String("item", item.ID), logger.Error(err))
		return
	case res.Outcome == types.OutcomeNoSuitableWorker:
		r.c.noSuitable.Add(1)
		return
	}

	r.c.assigned.Add(1)
	grants, _ := r.grants.LoadOrStore(item.ID, new(atomic.Int64))
	grants.Add(1)
	if r.cfg.Verbose {
		r.log.Debug(ctx, "assigned",
			logger.String("item", item.ID),
			logger.String("worker", res.WorkerID),
			logger.Float64("score", res.OverallScore))
	}

	hours := math.Max(0, res.EstimatedHours*r.fx.HoursFactor[item.ID])
	var done types.CompletionResult
	if _, err := r.client.do(ctx, http.MethodPost, "/assignments/"+res.AssignmentID+"/complete",
		map[string]float64{"actual_hours": hours}, &done); err != nil {
		r.c.failed.Add(1)
		r.log.Warn(ctx, "complete failed", logger.String("assignment", res.AssignmentID), logger.Error(err))
		return
	}
	r.c.completed.Add(1)
}

func (r *run) collect(stats *Stats) {
	stats.AssignAttempts = int(r.c.attempts.Load())
	stats.Assigned = int(r.c.assigned.Load())
	stats.NoSuitable = int(r.c.noSuitable.Load())
	stats.Conflicts = int(r.c.conflicts.Load())
	stats.Completed = int(r.c.completed.Load())
	stats.Failed = int(r.c.failed.Load())
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var assignRate, perSecond float64
	if stats.ItemsSeeded > 0 {
		assignRate = float64(stats.Assigned) / float64(stats.ItemsSeeded)
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.AssignAttempts) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("workersSeeded", stats.WorkersSeeded),
		logger.Int("itemsSeeded", stats.ItemsSeeded),
		logger.Int("assignAttempts", stats.AssignAttempts),
		logger.Int("assigned", stats.Assigned),
		logger.Int("noSuitable", stats.NoSuitable),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", len(stats.Violations)),
		logger.Float64("assignedShare", assignRate),
		logger.Float64("requestsPerSecond", perSecond),
		logger.Duration("duration", stats.Duration))
}

// IsViolation reports whether err came from failed verification.
func IsViolation(err error) bool { return errors.Is(err, ErrInvariantViolated) }
