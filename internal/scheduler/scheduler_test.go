package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

// immediate fires once, ~immediately, then effectively never again within a
// test's lifetime, so runLoop's per-entry goroutine only executes Run once.
type immediate struct {
	fired bool
}

func (s *immediate) Next(from time.Time) time.Time {
	if !s.fired {
		s.fired = true
		return from
	}
	return from.Add(24 * time.Hour)
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	results []JobResult
}

func (b *fakeBroadcaster) Broadcast(r JobResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.results)
}

func TestSchedulerRunsEntryAndBroadcastsResult(t *testing.T) {
	var ran int32
	var mu sync.Mutex
	b := &fakeBroadcaster{}
	s := New(logging.Default(), b)
	s.Register(Entry{
		Currency: "LTC",
		Job:      "ingest",
		Schedule: &immediate{},
		Run: func(ctx context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		},
	})
	s.Start()

	deadline := time.After(2 * time.Second)
	for b.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for job to run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if ran == 0 {
		t.Fatal("expected Run to be invoked at least once")
	}
	if b.count() == 0 {
		t.Fatal("expected a JobResult to be broadcast")
	}
}

func TestSchedulerRecordsJobError(t *testing.T) {
	b := &fakeBroadcaster{}
	s := New(logging.Default(), b)
	s.Register(Entry{
		Currency: "LTC",
		Job:      "settle",
		Schedule: &immediate{},
		Run: func(ctx context.Context) error {
			return errors.New("wallet unreachable")
		},
	})
	s.Start()

	deadline := time.After(2 * time.Second)
	for b.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for job to run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.results[0].Error == "" {
		t.Fatal("expected JobResult.Error to be populated")
	}
}

func TestDailyAtComputesNextOccurrence(t *testing.T) {
	sched := DailyAt{Hour: 23}
	from := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	if next.Hour() != 23 || next.Day() != 29 {
		t.Fatalf("Next(%v) = %v, want today at 23:00", from, next)
	}

	afterHour := time.Date(2026, 7, 29, 23, 30, 0, 0, time.UTC)
	next = sched.Next(afterHour)
	if next.Day() != 30 {
		t.Fatalf("Next(%v) = %v, want tomorrow", afterHour, next)
	}
}

func TestEveryMinuteTruncatesToNextBoundary(t *testing.T) {
	sched := EveryMinute{}
	from := time.Date(2026, 7, 29, 10, 15, 30, 0, time.UTC)
	next := sched.Next(from)
	if next.Second() != 0 || next.Minute() != 16 {
		t.Fatalf("Next(%v) = %v, want 10:16:00", from, next)
	}
}
