package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, WithPollInterval(time.Millisecond)), mr
}

// exercise runs n goroutines that each increment a shared counter under the
// same key with a deliberate read-yield-write gap.
func exercise(l Locker, n int) (int, error) {
	var (
		wg      sync.WaitGroup
		counter atomic.Int64
		errMu   sync.Mutex
		first   error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			release, err := l.Acquire(ctx, WorkerKey("w1"))
			if err != nil {
				errMu.Lock()
				first = err
				errMu.Unlock()
				return
			}
			v := counter.Load()
			time.Sleep(100 * time.Microsecond)
			counter.Store(v + 1)
			release()
		}()
	}
	wg.Wait()
	return int(counter.Load()), first
}

func TestMemoryLocker(t *testing.T) {
	Convey("Given a memory locker", t, func() {
		l := NewMemoryLocker()

		Convey("Concurrent holders of one key are serialized", func() {
			got, err := exercise(l, 50)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 50)
			So(l.Len(), ShouldEqual, 0)
		})

		Convey("Released keys leave no entry behind", func() {
			for i := range 100 {
				release, err := l.Acquire(context.Background(), ItemKey(fmt.Sprint(i)))
				So(err, ShouldBeNil)
				release()
			}
			So(l.Len(), ShouldEqual, 0)

			release, err := l.Acquire(context.Background(), "held")
			So(err, ShouldBeNil)
			So(l.Len(), ShouldEqual, 1)
			release()
			So(l.Len(), ShouldEqual, 0)
		})

		Convey("Different keys do not block each other", func() {
			r1, err := l.Acquire(context.Background(), "a")
			So(err, ShouldBeNil)
			r2, err := l.Acquire(context.Background(), "b")
			So(err, ShouldBeNil)
			r1()
			r2()
		})

		Convey("A waiter gives up when its context ends", func() {
			release, err := l.Acquire(context.Background(), "busy")
			So(err, ShouldBeNil)
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			_, err = l.Acquire(ctx, "busy")
			So(errors.Is(err, ErrNotAcquired), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(l.Len(), ShouldEqual, 1)
		})
	})
}

func TestRedisLocker(t *testing.T) {
	Convey("Given a redis locker", t, func() {
		l, mr := newRedisLocker(t, time.Minute)

		Convey("Concurrent holders of one key are serialized", func() {
			got, err := exercise(l, 20)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 20)
		})

		Convey("The key carries a TTL while held and is removed on release", func() {
			release, err := l.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			So(mr.Exists(defaultPrefix+"k"), ShouldBeTrue)
			So(mr.TTL(defaultPrefix+"k"), ShouldEqual, time.Minute)
			release()
			So(mr.Exists(defaultPrefix+"k"), ShouldBeFalse)
		})

		Convey("A custom prefix namespaces the key", func() {
			blue := NewRedisLocker(l.client, time.Minute, WithPrefix("blue:"))
			release, err := blue.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			So(mr.Exists("blue:k"), ShouldBeTrue)
			So(mr.Exists(defaultPrefix+"k"), ShouldBeFalse)

			other, err := l.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			other()
			release()
			So(mr.Exists("blue:k"), ShouldBeFalse)
		})

		Convey("Release does not delete a lock taken over by another holder", func() {
			release, err := l.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			So(mr.Set(defaultPrefix+"k", "someone-else"), ShouldBeNil)
			release()
			v, err := mr.Get(defaultPrefix + "k")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "someone-else")
		})

		Convey("An expired holder frees the key", func() {
			_, err := l.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			mr.FastForward(2 * time.Minute)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			release, err := l.Acquire(ctx, "k")
			So(err, ShouldBeNil)
			release()
		})

		Convey("A waiter gives up when its context ends", func() {
			release, err := l.Acquire(context.Background(), "k")
			So(err, ShouldBeNil)
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err = l.Acquire(ctx, "k")
			So(errors.Is(err, ErrNotAcquired), ShouldBeTrue)
		})
	})
}
