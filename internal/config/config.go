// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"
)

// Lock and event backends.
const (
	BackendMemory = "memory"
	BackendLog    = "log"
	BackendRedis  = "redis"
)

// AssignmentWeights are the hybrid strategy weights.
type AssignmentWeights struct {
	Skill       float64 `koanf:"skill"`
	Workload    float64 `koanf:"workload"`
	Performance float64 `koanf:"performance"`
	Experience  float64 `koanf:"experience"`
}

// RecommendationWeights weight the recommendation components.
type RecommendationWeights struct {
	SkillOverlap      float64 `koanf:"skill_overlap"`
	CompletionTimeFit float64 `koanf:"completion_time_fit"`
	SuccessRate       float64 `koanf:"success_rate"`
	WorkloadFit       float64 `koanf:"workload_fit"`
	ExperienceMatch   float64 `koanf:"experience_match"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory request queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of goroutines serving queued requests.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the request deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	ScanIntervalMS               int  `koanf:"scan_interval_ms"`
	ScanJitterMS                 int  `koanf:"scan_jitter_ms"`
	ScanConcurrency              int  `koanf:"scan_concurrency"`
	PerformanceRefreshIntervalMS int  `koanf:"performance_refresh_interval_ms"`
	BackfillOnComplete           bool `koanf:"backfill_on_complete"`

	RetryMaxAttempts       int `koanf:"retry_max_attempts"`
	RetryInitialIntervalMS int `koanf:"retry_initial_interval_ms"`
	RetryMaxIntervalMS     int `koanf:"retry_max_interval_ms"`

	// LockBackend selects the per-item lock: memory or redis.
	LockBackend string `koanf:"lock_backend"`
	LockTTLMS   int    `koanf:"lock_ttl_ms"`
	// LockPrefix namespaces redis lock keys so deployments can share a server.
	LockPrefix string `koanf:"lock_prefix"`
	// EventsBackend selects where domain events go: log or redis.
	EventsBackend string `koanf:"events_backend"`
	EventsChannel string `koanf:"events_channel"`
	RedisURL      string `koanf:"redis_url"`

	// MaxRecommendations caps the limit accepted by recommendation queries.
	MaxRecommendations int `koanf:"max_recommendations"`

	AssignmentWeights     AssignmentWeights     `koanf:"assignment_weights"`
	RecommendationWeights RecommendationWeights `koanf:"recommendation_weights"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                     "info",
		LogFormat:                    "text",
		Addr:                         ":9080",
		QueueSize:                    10_000,
		WorkerCount:                  runtime.NumCPU() * 2,
		DedupeSize:                   100_000,
		ScanIntervalMS:               int(time.Hour / time.Millisecond),
		ScanJitterMS:                 int(time.Minute / time.Millisecond),
		ScanConcurrency:              4,
		PerformanceRefreshIntervalMS: int(24 * time.Hour / time.Millisecond),
		BackfillOnComplete:           true,
		RetryMaxAttempts:             3,
		RetryInitialIntervalMS:       50,
		RetryMaxIntervalMS:           1000,
		LockBackend:                  BackendMemory,
		LockTTLMS:                    10_000,
		LockPrefix:                   "tekista:lock:",
		EventsBackend:                BackendLog,
		EventsChannel:                "tekista.events",
		RedisURL:                     "redis://localhost:6379/0",
		MaxRecommendations:           50,
		AssignmentWeights: AssignmentWeights{
			Skill:       0.40,
			Workload:    0.30,
			Performance: 0.20,
			Experience:  0.10,
		},
		RecommendationWeights: RecommendationWeights{
			SkillOverlap:      0.30,
			CompletionTimeFit: 0.20,
			SuccessRate:       0.20,
			WorkloadFit:       0.15,
			ExperienceMatch:   0.15,
		},
	}
}

// ScanInterval is the auto-assign scan period.
func (c *Config) ScanInterval() time.Duration { return ms(c.ScanIntervalMS) }

// ScanJitter is the maximum random delay added to each scan tick.
func (c *Config) ScanJitter() time.Duration { return ms(c.ScanJitterMS) }

// PerformanceRefreshInterval is the period of the performance refresh job.
func (c *Config) PerformanceRefreshInterval() time.Duration {
	return ms(c.PerformanceRefreshIntervalMS)
}

// RetryInitialInterval is the first backoff wait.
func (c *Config) RetryInitialInterval() time.Duration { return ms(c.RetryInitialIntervalMS) }

// RetryMaxInterval caps backoff waits.
func (c *Config) RetryMaxInterval() time.Duration { return ms(c.RetryMaxIntervalMS) }

// LockTTL bounds how long a distributed item lock is held.
func (c *Config) LockTTL() time.Duration { return ms(c.LockTTLMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
