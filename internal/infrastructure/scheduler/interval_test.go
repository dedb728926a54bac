package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerFiresImmediately(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 1)
	s := NewIntervalScheduler(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(t time.Time) { fired <- t }); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not fire immediately")
	}
}

func TestIntervalSchedulerTicks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer s.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestIntervalSchedulerStop(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(10 * time.Millisecond)

	if err := s.Start(context.Background(), func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start error: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop error: %v", err)
	}

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != settled {
		t.Fatal("job kept firing after stop")
	}
}

func TestIntervalSchedulerZeroIntervalIsNoop(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewIntervalScheduler(0)

	if err := s.Start(context.Background(), func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatal("zero interval must not schedule anything")
	}
}
