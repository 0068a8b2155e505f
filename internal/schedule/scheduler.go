// Package schedule drives the daily pipeline cadence. A run for a
// logical date fires once that date's day has closed, at a fixed UTC
// hour; missed dates are backfilled in order. All runs execute in one
// goroutine, so at most one pipeline run is active at any time and
// access to the shared warehouse file is serialized by construction.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/pipeline"
	"go.uber.org/zap"
)

// DefaultInterval is how often the scheduler checks for due dates.
const DefaultInterval = time.Minute

// PipelineRunner executes the full stage chain for one run date.
// Implemented by pipeline.Engine.
type PipelineRunner interface {
	Run(ctx context.Context, key datekey.Key) (*pipeline.RunResult, error)
}

// Scheduler runs the pipeline once per calendar day with catchup.
type Scheduler struct {
	Pipeline  PipelineRunner
	State     *StateStore
	StartDate datekey.Key // first logical date of the schedule
	Hour      int         // UTC hour at which a closed day becomes due
	Catchup   bool        // run every missed date, not just the latest
	Interval  time.Duration
	Log       *zap.Logger

	// Now supplies the current time; defaults to time.Now. Overridable
	// in tests.
	Now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func (s *Scheduler) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start begins the scheduler loop. It blocks until Stop is called or
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	// Check for due dates immediately on startup.
	s.runDue(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler, waiting for an in-flight
// run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// fireTime is when the run for a logical date becomes due: the
// following day at the scheduled hour, UTC.
func (s *Scheduler) fireTime(key datekey.Key) time.Time {
	d := key.Next().Time()
	return time.Date(d.Year(), d.Month(), d.Day(), s.Hour, 0, 0, 0, time.UTC)
}

// dueKeys returns every logical date past the watermark whose fire time
// has arrived, in order. Without catchup only the most recent due date
// is returned.
func (s *Scheduler) dueKeys(now time.Time) ([]datekey.Key, error) {
	next := s.StartDate
	last, ok, err := s.State.LastCompleted()
	if err != nil {
		return nil, err
	}
	if ok && !last.Next().Before(s.StartDate) {
		next = last.Next()
	}

	var due []datekey.Key
	for k := next; !s.fireTime(k).After(now); k = k.Next() {
		due = append(due, k)
	}
	if !s.Catchup && len(due) > 1 {
		due = due[len(due)-1:]
	}
	return due, nil
}

// runDue executes every due run strictly in order. A failed run halts
// the watermark: later dates wait until the failed date succeeds on a
// retry, keeping warehouse writes ordered.
func (s *Scheduler) runDue(ctx context.Context) {
	due, err := s.dueKeys(s.now())
	if err != nil {
		s.logger().Error("scheduler: reading state", zap.Error(err))
		return
	}

	for _, key := range due {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if _, err := s.Pipeline.Run(ctx, key); err != nil {
			s.logger().Error("scheduler: run failed, will retry next tick",
				zap.Stringer("date", key), zap.Error(err))
			return
		}
		if err := s.State.SetLastCompleted(key); err != nil {
			s.logger().Error("scheduler: saving state", zap.Error(err))
			return
		}
	}
}

// Backfill runs the pipeline for every date from from to to inclusive,
// strictly in order, stopping at the first failure.
func Backfill(ctx context.Context, p PipelineRunner, from, to datekey.Key) error {
	if to.Before(from) {
		return fmt.Errorf("backfill: end date %s is before start date %s", to, from)
	}
	for _, key := range datekey.Range(from, to) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.Run(ctx, key); err != nil {
			return fmt.Errorf("backfill stopped at %s: %w", key, err)
		}
	}
	return nil
}
