package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	wp := NewWorkerPool(3)
	defer wp.Shutdown()

	got, err := Map(context.Background(), wp, 20, func(_ context.Context, i int) int {
		time.Sleep(time.Duration(20-i) * time.Millisecond / 10)
		return i * i
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, v := range got {
		if v != i*i {
			t.Fatalf("result %d = %d, want %d", i, v, i*i)
		}
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	wp := NewWorkerPool(2)
	defer wp.Shutdown()

	var running, peak atomic.Int32
	_, err := Map(context.Background(), wp, 10, func(_ context.Context, i int) struct{} {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d exceeds pool size 2", p)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	wp := NewWorkerPool(1)
	wp.Shutdown()
	wp.Shutdown()
	if err := wp.Submit(context.Background(), func() {}); !errors.Is(err, ErrPoolShutdown) {
		t.Fatalf("want ErrPoolShutdown, got %v", err)
	}
}

func TestShutdownRunsAcceptedTasks(t *testing.T) {
	wp := NewWorkerPool(1)
	var done atomic.Int32
	for i := 0; i < 3; i++ {
		if err := wp.Submit(context.Background(), func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wp.Shutdown()
	if n := done.Load(); n != 3 {
		t.Fatalf("%d tasks ran, want 3", n)
	}
}

func TestDefaultSize(t *testing.T) {
	wp := NewWorkerPool(0)
	defer wp.Shutdown()
	if wp.Size() < 1 {
		t.Fatalf("size %d", wp.Size())
	}
}
