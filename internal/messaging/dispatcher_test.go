package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(context.Context, time.Duration) bool { return true }

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Workers: 1, MaxAttempts: 3})
	d.sleep = noSleep
	d.Start()

	var calls atomic.Int32
	ok := d.Dispatch(Task{Name: "flaky", Run: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("broker down")
		}
		return nil
	}})
	if !ok {
		t.Fatalf("expected task to be accepted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	succeeded, failed, _ := d.Stats()
	if succeeded != 1 || failed != 0 {
		t.Fatalf("expected 1 success 0 failures, got %d/%d", succeeded, failed)
	}
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Workers: 1, MaxAttempts: 2})
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) bool {
		slept = append(slept, dur)
		return true
	}
	d.Start()

	var calls atomic.Int32
	d.Dispatch(Task{Name: "always-fails", Run: func(context.Context) error {
		calls.Add(1)
		return errors.New("nope")
	}})
	d.Dispatch(Task{Name: "panics", Run: func(context.Context) error {
		panic("boom")
	}})

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	_, failed, _ := d.Stats()
	if failed != 2 {
		t.Fatalf("expected 2 failed tasks, got %d", failed)
	}
	if len(slept) != 2 {
		t.Fatalf("expected one backoff per failed task, got %v", slept)
	}
}

func TestDispatchDropsWhenClosedOrFull(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 1})
	// not started: the single slot fills and the next task is dropped
	run := func(context.Context) error { return nil }
	if !d.Dispatch(Task{Name: "a", Run: run}) {
		t.Fatalf("expected first task accepted")
	}
	if d.Dispatch(Task{Name: "b", Run: run}) {
		t.Fatalf("expected second task dropped")
	}

	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.Dispatch(Task{Name: "c", Run: run}) {
		t.Fatalf("expected dispatch after close to be dropped")
	}
	_, _, dropped := d.Stats()
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	if d.Dispatch(Task{Name: "x", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("nil dispatcher must not accept tasks")
	}
}
