package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix     = "TEKISTA_"
	EnvConfigPath = "TEKISTA_CONFIG"
)

const weightSumTolerance = 1e-6

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TEKISTA_CONFIG is set
//  3. env (prefix TEKISTA_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %v", ErrLoadConfig, path, err)
		}
	}

	// TEKISTA_QUEUE_SIZE -> queue_size; underscores are kept to match the tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.ScanConcurrency <= 0:
		return fmt.Errorf("%w: scan_concurrency must be positive", ErrInvalidConfig)
	case c.RetryMaxAttempts <= 0:
		return fmt.Errorf("%w: retry_max_attempts must be positive", ErrInvalidConfig)
	case c.MaxRecommendations <= 0:
		return fmt.Errorf("%w: max_recommendations must be positive", ErrInvalidConfig)
	}
	if c.LockBackend != BackendMemory && c.LockBackend != BackendRedis {
		return fmt.Errorf("%w: lock_backend %q", ErrInvalidConfig, c.LockBackend)
	}
	if c.EventsBackend != BackendLog && c.EventsBackend != BackendRedis {
		return fmt.Errorf("%w: events_backend %q", ErrInvalidConfig, c.EventsBackend)
	}
	if (c.LockBackend == BackendRedis || c.EventsBackend == BackendRedis) && c.RedisURL == "" {
		return fmt.Errorf("%w: redis_url is required for the redis backend", ErrInvalidConfig)
	}
	if c.LockBackend == BackendRedis && c.LockPrefix == "" {
		return fmt.Errorf("%w: lock_prefix must not be empty", ErrInvalidConfig)
	}

	aw := c.AssignmentWeights
	if !sumsToOne(aw.Skill, aw.Workload, aw.Performance, aw.Experience) {
		return fmt.Errorf("%w: assignment_weights must sum to 1", ErrInvalidConfig)
	}
	rw := c.RecommendationWeights
	if !sumsToOne(rw.SkillOverlap, rw.CompletionTimeFit, rw.SuccessRate, rw.WorkloadFit, rw.ExperienceMatch) {
		return fmt.Errorf("%w: recommendation_weights must sum to 1", ErrInvalidConfig)
	}
	return nil
}

func sumsToOne(ws ...float64) bool {
	sum := 0.0
	for _, w := range ws {
		if w < 0 {
			return false
		}
		sum += w
	}
	return math.Abs(sum-1) < weightSumTolerance
}
