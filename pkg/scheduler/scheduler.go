// Package scheduler runs saved workflows once after a delay.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrNegativeDelay = errors.New("schedule delay cannot be negative")
	ErrEmptyID       = errors.New("workflow id cannot be empty")
	ErrStopped       = errors.New("scheduler is stopped")
)

// IsUnavailable reports whether err means the scheduler no longer accepts runs.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStopped)
}

// Job is called when a scheduled workflow is due.
type Job func(ctx context.Context, workflowID string)

// once fires a single time at the given instant.
type once struct {
	at    time.Time
	fired bool
}

func (o *once) Next(now time.Time) time.Time {
	if o.fired {
		return time.Time{}
	}

	o.fired = true

	if o.at.Before(now) {
		return now
	}

	return o.at
}

// Scheduler keeps the pending delayed runs in a cron instance.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mutex   sync.Mutex
	pending map[cron.EntryID]string
	stopped bool
	now     func() time.Time
}

// New creates and starts a scheduler calling job for due workflows.
func New(log *slog.Logger, job Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		)),
		job:     job,
		logger:  log.With("module", "scheduler"),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[cron.EntryID]string),
		now:     time.Now,
	}

	s.cron.Start()

	return s
}

// After runs workflowID once after the given number of minutes. Zero runs
// it right away.
func (s *Scheduler) After(workflowID string, minutes int) (time.Time, error) {
	if workflowID == "" {
		return time.Time{}, ErrEmptyID
	}

	if minutes < 0 {
		return time.Time{}, ErrNegativeDelay
	}

	return s.At(workflowID, s.now().Add(time.Duration(minutes)*time.Minute))
}

// At runs workflowID once at the given time.
func (s *Scheduler) At(workflowID string, at time.Time) (time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return time.Time{}, ErrStopped
	}

	var id cron.EntryID

	id = s.cron.Schedule(&once{at: at}, cron.FuncJob(func() {
		// At holds the mutex until id is assigned
		s.mutex.Lock()
		entryID := id
		delete(s.pending, entryID)
		s.mutex.Unlock()

		s.fire(entryID, workflowID)
	}))

	s.pending[id] = workflowID

	s.logger.Info("Scheduled workflow run", "workflow_id", workflowID, "at", at.Format(time.RFC3339), "entry_id", id)

	return at, nil
}

func (s *Scheduler) fire(id cron.EntryID, workflowID string) {
	s.cron.Remove(id)

	s.logger.Info("Running scheduled workflow", "workflow_id", workflowID)
	s.job(s.ctx, workflowID)
}

// Pending returns the workflow ids waiting to run.
func (s *Scheduler) Pending() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := make([]string, 0, len(s.pending))
	for _, id := range s.pending {
		ids = append(ids, id)
	}

	return ids
}

// Stop drops pending runs and waits for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mutex.Lock()
	s.stopped = true
	s.pending = make(map[cron.EntryID]string)
	s.mutex.Unlock()

	s.cancel()

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop scheduler: %w", ctx.Err())
	}
}
