package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/shaanlabs/Tekista/internal/simulation"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

const (
	defaultClients = 2 // multiplier for runtime.NumCPU()
	runTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		org        = flag.String("org", simulation.DefaultOrganization, "Organization for the seeded population")
		workers    = flag.Int("workers", simulation.DefaultWorkers, "Number of workers to seed")
		items      = flag.Int("items", simulation.DefaultItems, "Number of items to seed")
		clients    = flag.Int("clients", runtime.NumCPU()*defaultClients, "Number of concurrent HTTP clients")
		contenders = flag.Int("contenders", simulation.DefaultContenders, "Concurrent assign requests per item")
		strategy   = flag.String("strategy", "", "Assignment strategy")
		seed       = flag.Uint64("seed", 1, "Seed for fixture generation")
		timeout    = flag.Duration("timeout", simulation.DefaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated fixtures to this JSON file")
		logFile    = flag.String("log", "", "Log file (default: simulation_TIMESTAMP.log)")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every granted assignment")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulation.ShowHelp()
		return
	}

	closeLog, err := simulation.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		logger.SetLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)

	cfg := &simulation.Config{
		BaseURL:      *baseURL,
		Organization: *org,
		Workers:      *workers,
		Items:        *items,
		Clients:      *clients,
		Contenders:   *contenders,
		Strategy:     *strategy,
		Seed:         *seed,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	_, err = simulation.Run(ctx, cfg)
	cancel()
	stop()
	_ = closeLog()

	if err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		if simulation.IsViolation(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
