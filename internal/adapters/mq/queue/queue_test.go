package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

func assign(id string) Request {
	return Request{ID: id, Kind: model.RequestAssign, ItemID: "item-" + id}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, assign("r1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	r := <-q.Dequeue(ctx)
	if r.ID != "r1" || r.ItemID != "item-r1" {
		t.Errorf("unexpected request %+v", r)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		if err := q.Enqueue(ctx, assign(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if err := q.Enqueue(ctx, assign("r3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, assign("r1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 10, 100
	var consumed sync.Map
	var got sync.WaitGroup
	got.Add(producers * perProducer)
	for range 4 {
		go func() {
			for r := range q.Dequeue(ctx) {
				if _, dup := consumed.LoadOrStore(r.ID, true); !dup {
					got.Done()
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := range perProducer {
				r := assign(fmt.Sprintf("r%d_%d", p, j))
				for q.Enqueue(ctx, r) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	wg.Wait()

	done := make(chan struct{})
	go func() { got.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every request was consumed")
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	_ = q.Enqueue(ctx, assign("r1"))
	_ = q.Enqueue(ctx, assign("r2"))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, assign("r3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				if len(drained) != 2 {
					t.Errorf("expected pending requests drained, got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("second close: %v", err)
				}
				return
			}
			drained = append(drained, r.ID)
		case <-timeout:
			t.Fatal("dequeue channel not closed")
		}
	}
}
