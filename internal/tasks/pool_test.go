package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPool_SubmitAndWait(t *testing.T) {
	pool := NewPool(2, 4)
	defer pool.Close()

	f, err := pool.Submit("answer", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := f.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result != 42 {
		t.Errorf("Expected result 42, got %v", result)
	}

	snap := f.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("Expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.StartedAt == nil || snap.FinishedAt == nil {
		t.Error("Expected start and finish times to be set")
	}

	got, ok := pool.Get(f.ID)
	if !ok || got != f {
		t.Error("Expected Get to return the submitted future")
	}
}

func TestPool_TaskError(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Close()

	boom := errors.New("boom")
	f, err := pool.Submit("failing", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := f.Wait(waitCtx(t)); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if snap := f.Snapshot(); snap.Status != StatusFailed || snap.Error != "boom" {
		t.Errorf("Expected failed snapshot with error, got %+v", snap)
	}
}

func TestPool_PanicBecomesError(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Close()

	f, _ := pool.Submit("panicking", func(ctx context.Context) (interface{}, error) {
		panic("unexpected")
	})

	if _, err := f.Wait(waitCtx(t)); err == nil {
		t.Error("Expected panic to surface as an error")
	}

	// The worker survived the panic
	f2, _ := pool.Submit("after", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	if result, err := f2.Wait(waitCtx(t)); err != nil || result != "ok" {
		t.Errorf("Expected worker to keep running, got %v, %v", result, err)
	}
}

func TestPool_PublishesEvents(t *testing.T) {
	pool := NewPool(1, 2)
	defer pool.Close()

	f, _ := pool.Submit("evented", func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})

	select {
	case ev := <-pool.Events():
		if ev.ID != f.ID || ev.Name != "evented" || ev.Result != "done" || ev.Err != nil {
			t.Errorf("Unexpected event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestPool_QueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	}

	if _, err := pool.Submit("running", blocker); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	// One queue slot
	if _, err := pool.Submit("queued", func(ctx context.Context) (interface{}, error) { return nil, nil }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := pool.Submit("overflow", func(ctx context.Context) (interface{}, error) { return nil, nil }); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	close(release)
}

func TestPool_BoundedWorkers(t *testing.T) {
	const workers = 2
	pool := NewPool(workers, 10)
	defer pool.Close()

	var running, peak int32
	var futures []*Future
	for i := 0; i < 8; i++ {
		f, err := pool.Submit("work", func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		futures = append(futures, f)
	}

	for _, f := range futures {
		if _, err := f.Wait(waitCtx(t)); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	if peak > workers {
		t.Errorf("Expected at most %d concurrent tasks, saw %d", workers, peak)
	}
}

func TestPool_CloseRejectsAndDrains(t *testing.T) {
	pool := NewPool(1, 4)

	var ran int32
	for i := 0; i < 3; i++ {
		if _, err := pool.Submit("drain", func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&ran, 1)
			return nil, nil
		}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	pool.Close()

	if atomic.LoadInt32(&ran) != 3 {
		t.Errorf("Expected queued tasks to run before Close returns, ran %d", ran)
	}

	if _, err := pool.Submit("late", func(ctx context.Context) (interface{}, error) { return nil, nil }); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}

	// Close is idempotent
	pool.Close()
}

func TestFuture_WaitRespectsContext(t *testing.T) {
	pool := NewPool(1, 1)
	release := make(chan struct{})
	defer func() {
		close(release)
		pool.Close()
	}()

	f, _ := pool.Submit("slow", func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
