package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// ErrUnavailable is returned while the breaker rejects publishes.
var ErrUnavailable = errors.New("event sink unavailable")

const breakerName = "redis-events"

// RedisPublisher PUBLISHes JSON-encoded events on a Redis channel behind a
// circuit breaker.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	cb      *gobreaker.CircuitBreaker
	log     logger.Logger
}

var _ Publisher = (*RedisPublisher)(nil)

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings trips after five straight failures and lets a trial request through after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second, HalfOpenRequests: 1}
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(client redis.UniversalClient, channel string, bs BreakerSettings, log logger.Logger) *RedisPublisher {
	if log == nil {
		log = logger.Nop()
	}
	p := &RedisPublisher{client: client, channel: channel, log: log}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: bs.HalfOpenRequests,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerOpen(name, to == gobreaker.StateOpen)
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerOpen(breakerName, false)
	return p
}

func (p *RedisPublisher) Publish(ctx context.Context, e model.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.client.Publish(ctx, p.channel, payload).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", breakerName, ErrUnavailable)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// State reports the breaker state.
func (p *RedisPublisher) State() gobreaker.State { return p.cb.State() }
