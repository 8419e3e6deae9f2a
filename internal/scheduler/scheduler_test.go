package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryFormatsIntervalSpec(t *testing.T) {
	if got := every(5 * time.Minute); got != "@every 5m0s" {
		t.Fatalf("every(5m) = %q", got)
	}
	if got := every(0); got != "@every 1m0s" {
		t.Fatalf("every(0) should default to 1m, got %q", got)
	}
}

func TestAddJobRunsOnSchedule(t *testing.T) {
	s := New(nil)
	var calls int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.AddJob(ctx, Job{
		Name:     "test",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&calls, 1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	s.Start()
	time.Sleep(2500 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt64(&calls) < 2 {
		t.Fatalf("expected at least 2 job runs in 2.5s (cron raises a 10ms interval to 1s), got %d", calls)
	}
}

func TestAddJobLogsErrorWithoutPanicking(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	err := s.AddJob(ctx, Job{
		Name:     "failing",
		Interval: 1 * time.Second,
		Run: func(ctx context.Context) error {
			return context.DeadlineExceeded
		},
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	s.Start()
	// the first "@every 1s" tick fires within one second of Start
	time.Sleep(1500 * time.Millisecond)
	s.Stop()
}
