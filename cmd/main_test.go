package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/shaanlabs/Tekista/internal/adapters/events"
	"github.com/shaanlabs/Tekista/internal/adapters/lock"
	app "github.com/shaanlabs/Tekista/internal/app"
	"github.com/shaanlabs/Tekista/internal/config"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

func TestOpenBackends(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("Then in-process backends are used without Redis", func() {
			b, err := openBackends(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer b.Close()
			convey.So(b.redis, convey.ShouldBeNil)
			_, isMemory := b.locker.(*lock.MemoryLocker)
			convey.So(isMemory, convey.ShouldBeTrue)
			_, isLog := b.publisher.(*events.LogPublisher)
			convey.So(isLog, convey.ShouldBeTrue)
		})

		convey.Convey("When both backends point at Redis", func() {
			mr := miniredis.RunT(t)
			cfg.LockBackend = config.BackendRedis
			cfg.EventsBackend = config.BackendRedis
			cfg.RedisURL = "redis://" + mr.Addr()

			b, err := openBackends(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer b.Close()

			convey.Convey("Then the locker and publisher use it", func() {
				convey.So(b.redis, convey.ShouldNotBeNil)
				_, isRedis := b.locker.(*lock.RedisLocker)
				convey.So(isRedis, convey.ShouldBeTrue)
				multi, ok := b.publisher.(events.Multi)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(multi, convey.ShouldHaveLength, 2)

				release, err := b.locker.Acquire(ctx, lock.ItemKey("i1"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(mr.Exists("tekista:lock:item:i1"), convey.ShouldBeTrue)
				release()
			})
		})

		convey.Convey("When Redis is unreachable", func() {
			cfg.LockBackend = config.BackendRedis
			cfg.RedisURL = "127.0.0.1:1"

			convey.Convey("Then opening the backends fails", func() {
				_, err := openBackends(ctx, cfg, logger.Nop())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("Then run serves until the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()

			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(10 * time.Second):
				t.Fatal("run did not return after cancellation")
			}
		})

		convey.Convey("Then an unusable address is reported", func() {
			cfg.Addr = "no-port"
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc := app.New()

		convey.Convey("Then single updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loops return when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
