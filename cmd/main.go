package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaanlabs/Tekista/internal/adapters/events"
	"github.com/shaanlabs/Tekista/internal/adapters/http/api"
	"github.com/shaanlabs/Tekista/internal/adapters/http/swagger"
	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	"github.com/shaanlabs/Tekista/internal/adapters/redisconn"
	app "github.com/shaanlabs/Tekista/internal/app"
	"github.com/shaanlabs/Tekista/internal/config"
	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 15 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.LogFormat != "" {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			os.Exit(1)
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "tekista exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	svc := app.New(
		app.WithConfig(cfg),
		app.WithLogger(log.Named("engine")),
		app.WithLocker(b.locker),
		app.WithPublisher(b.publisher),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	apiServer := api.NewServer(svc, svc, api.WithLogger(log.Named("http")))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Routes(swagger.Register),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("lock_backend", cfg.LockBackend),
			logger.String("events_backend", cfg.EventsBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// backends holds the lock and event adapters picked by configuration.
type backends struct {
	locker    lock.Locker
	publisher events.Publisher
	redis     redis.UniversalClient
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// openBackends connects to Redis only when a backend needs it.
func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	b := &backends{
		locker:    lock.NewMemoryLocker(),
		publisher: events.NewLogPublisher(log.Named("events")),
	}
	if cfg.LockBackend != config.BackendRedis && cfg.EventsBackend != config.BackendRedis {
		return b, nil
	}

	client, err := redisconn.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	b.redis = client
	if cfg.LockBackend == config.BackendRedis {
		b.locker = lock.NewRedisLocker(client, cfg.LockTTL(),
			lock.WithPrefix(cfg.LockPrefix),
			lock.WithLogger(log.Named("lock")),
		)
	}
	if cfg.EventsBackend == config.BackendRedis {
		rp := events.NewRedisPublisher(client, cfg.EventsChannel, events.DefaultBreakerSettings(), log.Named("events"))
		b.publisher = events.Multi{b.publisher, rp}
	}
	return b, nil
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics reads the service stats; GetStats refreshes the store
// and queue gauges itself.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
}
