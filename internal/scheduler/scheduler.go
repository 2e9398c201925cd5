// Package scheduler is the time-driven orchestrator (spec.md §4.6): for
// every enabled currency it registers an ingest (pull), settle (send then
// associate), associate-all, and confirm job on the cadences spec.md's
// table names, wraps each run so a failing job cannot kill the process, and
// guarantees jobs for the same currency never overlap.
//
// Ported from original_source/simplecoin_rpc_client/scheduler.py's
// @crontab decorator (which rolls back the SQLAlchemy session and logs any
// exception) and its apscheduler cron-job registration. Go has no
// equivalent of apscheduler in the retrieval pack — checked every example
// repo's go.mod — so the four fixed cadences this system needs (one
// per-minute job, three once-daily jobs) are expressed directly with
// time.Timer computing each entry's next fire time, which is simpler than
// introducing an external cron dependency to serve four fixed cadences.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sc-pool/payout-rpc-client/pkg/logging"
)

// Schedule computes the next time an Entry should fire, strictly after
// from.
type Schedule interface {
	Next(from time.Time) time.Time
}

// EveryMinute fires at the start of every minute (spec.md §4.6: "ingest,
// every minute").
type EveryMinute struct{}

// Next returns the next whole-minute boundary after from.
func (EveryMinute) Next(from time.Time) time.Time {
	return from.Truncate(time.Minute).Add(time.Minute)
}

// DailyAt fires once a day at the given hour, local to from's location
// (spec.md §4.6's "once daily (e.g. 23:00)" style cadences).
type DailyAt struct {
	Hour int
}

// Next returns today's occurrence of Hour:00 if it hasn't passed yet,
// otherwise tomorrow's.
func (d DailyAt) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), d.Hour, 0, 0, 0, from.Location())
	if !next.After(from) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// JobResult is reported to an optional Broadcaster after every run, for the
// operator dashboard feed (internal/statusws).
type JobResult struct {
	Currency string
	Job      string
	Error    string
	Duration time.Duration
	Ran      time.Time
}

// Broadcaster receives JobResult events. internal/statusws.Hub satisfies
// this.
type Broadcaster interface {
	Broadcast(result JobResult)
}

// Entry is one (currency, job) registration.
type Entry struct {
	Currency string
	Job      string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler runs a fixed set of Entries, one goroutine per entry. Because
// each entry's loop is a single goroutine that runs its job synchronously
// before computing the next fire time, a job whose run-time exceeds its
// cadence simply causes the next invocation to be skipped rather than
// queued (spec.md §4.6) — there is never a second concurrent execution of
// the same entry to guard against explicitly.
type Scheduler struct {
	log         *logging.Logger
	broadcaster Broadcaster
	entries     []Entry
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New builds a Scheduler. broadcaster may be nil.
func New(log *logging.Logger, broadcaster Broadcaster) *Scheduler {
	return &Scheduler{
		log:         log.Component("scheduler"),
		broadcaster: broadcaster,
		stopCh:      make(chan struct{}),
	}
}

// Register adds an entry. Must be called before Start.
func (s *Scheduler) Register(e Entry) {
	s.entries = append(s.entries, e)
}

// Start launches one goroutine per registered entry.
func (s *Scheduler) Start() {
	for _, e := range s.entries {
		e := e
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLoop(e)
		}()
	}
	s.log.Info("scheduler started", "entries", len(s.entries))
}

// Stop signals every entry's loop to exit and waits for all of them: a loop
// waiting for its next fire time returns at once, and a loop with a run in
// flight returns once that run completes. Cancellation is
// cooperative only between ticks: an in-flight job is never interrupted
// (spec.md §5: "operations are non-preemptible").
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runLoop(e Entry) {
	for {
		next := e.Schedule.Next(time.Now())
		d := time.Until(next)
		if d < 0 {
			d = 0
		}
		timer := time.NewTimer(d)

		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case <-s.stopCh:
			return
		default:
		}

		s.runOnce(e)
	}
}

// runOnce executes one job run, recovering from panics and logging errors
// so a single bad run can never take the scheduler down (spec.md §4.6, §7).
func (s *Scheduler) runOnce(e Entry) {
	log := s.log.Component(fmt.Sprintf("%s.%s", e.Currency, e.Job))
	start := time.Now()

	result := JobResult{Currency: e.Currency, Job: e.Job, Ran: start}
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
			log.Error("job panicked", "panic", r)
		}
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(result)
		}
	}()

	if err := e.Run(context.Background()); err != nil {
		result.Error = err.Error()
		log.Warn("job failed", "error", err, "duration", time.Since(start))
		return
	}
	log.Debug("job completed", "duration", time.Since(start))
}
