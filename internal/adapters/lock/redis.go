package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

const (
	defaultPrefix       = "tekista:lock:"
	defaultPollInterval = 10 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance pointing at the same
// Redis. A held key expires after ttl so a crashed holder cannot block
// others forever.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	poll   time.Duration
	log    logger.Logger
}

var _ Locker = (*RedisLocker)(nil)

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithPrefix sets the key namespace.
func WithPrefix(p string) RedisOption {
	return func(l *RedisLocker) { l.prefix = p }
}

// WithPollInterval sets how often a waiting Acquire retries SETNX.
func WithPollInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithLogger sets the logger used to report failed releases.
func WithLogger(log logger.Logger) RedisOption {
	return func(l *RedisLocker) {
		if log != nil {
			l.log = log
		}
	}
}

// NewRedisLocker creates a RedisLocker holding keys for at most ttl.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{client: client, ttl: ttl, prefix: defaultPrefix, poll: defaultPollInterval, log: logger.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()
	start := time.Now()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			metrics.RecordLockFailure()
			return nil, fmt.Errorf("setnx %s: %w", k, err)
		}
		if ok {
			metrics.RecordLockWait(float64(time.Since(start).Microseconds()) / 1000)
			return func() { l.release(k, token) }, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			metrics.RecordLockFailure()
			return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	// The caller's context may already be done; release on a short budget of its own.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn(ctx, "release failed",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}
