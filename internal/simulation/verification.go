package simulation

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

// verify checks, from the outside, that no item was granted twice, that every
// grant was completed, and that worker bookkeeping matches what the clients
// saw.
func (r *run) verify(ctx context.Context, stats *Stats) error {
	r.log.Info(ctx, "verifying results")
	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	r.grants.Range(func(itemID string, n *atomic.Int64) bool {
		if got := n.Load(); got > 1 {
			add("item %s granted %d times", itemID, got)
		}
		return true
	})

	if stats.Failed == 0 && stats.Assigned != stats.Completed {
		add("assigned %d items but completed %d", stats.Assigned, stats.Completed)
	}
	if got := stats.Assigned + stats.NoSuitable + stats.Conflicts + stats.Failed; got < stats.AssignAttempts {
		add("%d of %d assign requests unaccounted for", stats.AssignAttempts-got, stats.AssignAttempts)
	}

	profiles, err := r.profiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to read worker profiles: %w", err)
	}
	tasks := 0
	for _, p := range profiles {
		if p.WorkloadHours < 0 {
			add("worker %s has negative workload %.2f", p.WorkerID, p.WorkloadHours)
		}
		if p.PerformanceScore < 0 || p.PerformanceScore > 100 {
			add("worker %s performance score %.2f out of range", p.WorkerID, p.PerformanceScore)
		}
		tasks += p.TasksCompleted
	}
	if tasks != stats.Completed {
		add("workers report %d completed tasks, clients completed %d", tasks, stats.Completed)
	}

	stats.Violations = violations
	if len(violations) > 0 {
		for _, v := range violations {
			r.log.Error(ctx, "verification failed", logger.String("violation", v))
		}
		return fmt.Errorf("%d violations, first: %s: %w", len(violations), violations[0], ErrInvariantViolated)
	}
	r.log.Info(ctx, "verification passed")
	return nil
}

// profiles fetches every seeded worker's profile.
func (r *run) profiles(ctx context.Context) ([]types.WorkerProfile, error) {
	out := make([]types.WorkerProfile, len(r.fx.Workers))
	var (
		mu       sync.Mutex
		firstErr error
	)
	fanOut(ctx, r.cfg.Clients, len(r.fx.Workers), func(ctx context.Context, i int) {
		_, err := r.client.do(ctx, http.MethodGet, "/workers/"+r.fx.Workers[i].ID, nil, &out[i])
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}, nil)
	if firstErr != nil {
		return nil, firstErr
	}
	return out, ctx.Err()
}
