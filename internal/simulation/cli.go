package simulation

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shaanlabs/Tekista/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends the global logger to both stdout and logFile. An empty
// logFile gets a timestamped name. The returned function closes the file.
func SetupLogging(logFile, format string) (func() error, error) {
	if logFile == "" {
		logFile = "simulation_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file)), logger.WithFormat(format)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Tekista Allocation Simulator
============================

Seeds workers and items into a running service, races concurrent clients
through assign and complete cycles, then verifies that no item was granted
twice, that every grant was completed and that worker bookkeeping adds up.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -org string
        Organization for the seeded population (default "sim-org")
  -workers int
        Number of workers to seed (default 20)
  -items int
        Number of items to seed (default 200)
  -clients int
        Number of concurrent HTTP clients (default CPU cores * 2)
  -contenders int
        Concurrent assign requests per item (default 2)
  -strategy string
        hybrid, skill_match, workload_balance or performance (default server side)
  -seed uint
        Seed for fixture generation (default 1)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write the generated fixtures to this JSON file
  -log string
        Log file (default: simulation_TIMESTAMP.log)
  -verbose
        Log every granted assignment
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -workers 50 -items 1000 -contenders 4
  go run ./cmd/simulate -strategy workload_balance -output fixtures.json
`)
}
