package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shaanlabs/Tekista/internal/adapters/events"
	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
	"github.com/shaanlabs/Tekista/pkg/retry"
)

// deps are the collaborators shared by every engine component.
type deps struct {
	store     repository.Store
	locker    lock.Locker
	publisher events.Publisher
	retry     retry.Policy
	now       func() time.Time
	newID     func() string
	log       logger.Logger
}

func defaultDeps() deps {
	return deps{
		store:     repository.NewMemoryStore(),
		locker:    lock.NewMemoryLocker(),
		publisher: events.NewLogPublisher(logger.Nop()),
		retry:     retry.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		log:       logger.Nop(),
	}
}

// withRetry runs fn under the retry policy, retrying only transient store
// failures, and translates the final error.
func (d *deps) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return translate(retry.Do(ctx, d.policy(ctx, op), fn))
}

// retryValue is withRetry for operations that return a result.
func retryValue[T any](ctx context.Context, d *deps, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Value(ctx, d.policy(ctx, op), fn)
	return v, translate(err)
}

func (d *deps) policy(ctx context.Context, op string) retry.Policy {
	p := d.retry
	p.Retryable = isTransient
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.RecordRetry(op)
		d.log.Warn(ctx, "retrying after transient failure",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}
	return p
}

// acquire takes the lock on key, mapping an expired wait onto ErrRetryable.
func (d *deps) acquire(ctx context.Context, key string) (func(), error) {
	release, err := d.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, classify(ErrRetryable, err)
		}
		return nil, err
	}
	return release, nil
}

// publish stamps and sends e. Failures are logged and counted only.
func (d *deps) publish(ctx context.Context, e model.Event) {
	e.ID = d.newID()
	e.OccurredAt = d.now()
	if err := d.publisher.Publish(ctx, e); err != nil {
		metrics.RecordPublishFailure(string(e.Type))
		d.log.Warn(ctx, "event publish failed",
			logger.String("type", string(e.Type)),
			logger.String("item_id", e.ItemID),
			logger.Error(err),
		)
	}
}
