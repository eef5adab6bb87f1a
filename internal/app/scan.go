package service

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// scanOpenItems auto-assigns every open item with at most concurrency
// attempts in flight. Cancellation stops new attempts; assignments already
// committed stay.
func scanOpenItems(ctx context.Context, store repository.Items, c *Coordinator, concurrency int) (types.ScanReport, error) {
	open, err := store.ListItems(ctx, repository.ItemFilter{Status: model.ItemOpen})
	if err != nil {
		return types.ScanReport{}, translate(err)
	}

	var scanned, assigned, noSuitable, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for _, it := range open {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			scanned.Add(1)
			res, err := c.AutoAssign(ctx, it.ID, scoring.StrategyHybrid)
			switch {
			case err == nil && res.Assigned():
				assigned.Add(1)
				metrics.RecordScanOutcome("assigned")
			case err == nil:
				noSuitable.Add(1)
				metrics.RecordScanOutcome("no_suitable_worker")
			case isSkippable(err):
				metrics.RecordScanOutcome("skipped")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				metrics.RecordScanOutcome("cancelled")
			default:
				failed.Add(1)
				metrics.RecordScanOutcome("failed")
				c.log.Warn(ctx, "scan assignment failed", logger.String("item_id", it.ID), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	rep := types.ScanReport{
		Scanned:    int(scanned.Load()),
		Assigned:   int(assigned.Load()),
		NoSuitable: int(noSuitable.Load()),
		Failed:     int(failed.Load()),
		Cancelled:  ctx.Err() != nil,
	}
	return rep, ctx.Err()
}
