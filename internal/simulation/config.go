// Package simulation drives a running allocation service over HTTP: it seeds
// workers and items, races concurrent clients through assign and complete
// cycles, then checks the service's bookkeeping from the outside.
package simulation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned for unusable simulation settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// ErrInvariantViolated is returned when verification finds inconsistent state.
var ErrInvariantViolated = errors.New("invariant violated")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Organization string        // Organization every seeded entity belongs to
	Workers      int           // Number of workers to seed
	Items        int           // Number of items to seed
	Clients      int           // Number of concurrent HTTP clients
	Contenders   int           // Concurrent assign requests per item
	Strategy     string        // Assignment strategy, empty for the server default
	Seed         uint64        // Seed for fixture generation
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Optional file for the generated fixtures
	Verbose      bool          // Log every request outcome
}

func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("base url is required: %w", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("workers must be >= 1, got %d: %w", c.Workers, ErrInvalidConfig)
	case c.Items < 1:
		return fmt.Errorf("items must be >= 1, got %d: %w", c.Items, ErrInvalidConfig)
	case c.Clients < 1:
		return fmt.Errorf("clients must be >= 1, got %d: %w", c.Clients, ErrInvalidConfig)
	case c.Contenders < 1:
		return fmt.Errorf("contenders must be >= 1, got %d: %w", c.Contenders, ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive: %w", ErrInvalidConfig)
	}
	if c.Organization == "" {
		c.Organization = DefaultOrganization
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	WorkersSeeded  int
	ItemsSeeded    int
	AssignAttempts int
	Assigned       int
	NoSuitable     int
	Conflicts      int
	Completed      int
	Failed         int
	Violations     []string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
