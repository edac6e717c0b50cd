// Package scheduler implements the durable, bounded-concurrency job
// scheduler: an in-process queue, a running set, and explicit
// cancellation-request tracking, dispatching each job to the Executor
// and resuming any work left over from a crash.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"seoscan/internal/eventbus"
	"seoscan/internal/metrics"
	"seoscan/internal/model"
	"seoscan/internal/store"
)

// JobRunner is satisfied by *executor.Executor; narrowed so the
// Scheduler doesn't import the executor package's full surface.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
}

// Config carries the scheduler's concurrency and retention knobs.
type Config struct {
	MaxConcurrency         int
	PollInterval           time.Duration
	RetentionEnabled       bool
	RetentionCutoffDays    int
	CleanupInterval        time.Duration
}

// State is a point-in-time snapshot returned by GetState, matching
// spec.md §4.6's getState() → {queue, running, cancelRequested}.
type State struct {
	Queue           []uuid.UUID
	Running         []uuid.UUID
	CancelRequested []uuid.UUID
}

// QueueLength reports how many jobs are waiting to be dispatched.
func (s State) QueueLength() int {
	return len(s.Queue)
}

// Scheduler drives Jobs from enqueued to dispatched, bounding how many
// run concurrently and tracking cancellation requests so the Executor
// can observe them between pages.
type Scheduler struct {
	store  *store.Store
	runner JobRunner
	bus    *eventbus.Bus
	logger *slog.Logger
	cfg    Config

	mu              sync.Mutex
	queue           []uuid.UUID
	running         map[uuid.UUID]context.CancelFunc
	cancelRequested map[uuid.UUID]bool

	wake chan struct{}
	sem  chan struct{}
}

// New builds a Scheduler. logger may be nil, in which case slog's
// default logger is used.
func New(st *store.Store, runner JobRunner, bus *eventbus.Bus, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:           st,
		runner:          runner,
		bus:             bus,
		logger:          logger,
		cfg:             cfg,
		running:         make(map[uuid.UUID]context.CancelFunc),
		cancelRequested: make(map[uuid.UUID]bool),
		wake:            make(chan struct{}, 1),
		sem:             make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Start recovers any jobs left pending or running from a prior crash,
// then launches the dispatch loop in the current goroutine. Callers
// typically run this in its own goroutine and keep the process alive.
func (s *Scheduler) Start(ctx context.Context) {
	s.recover(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var lastCleanup time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}

		if s.cfg.RetentionEnabled {
			now := time.Now().UTC()
			if lastCleanup.IsZero() || now.Sub(lastCleanup) >= s.cfg.CleanupInterval {
				s.runRetentionSweep(ctx)
				lastCleanup = now
			}
		}

		s.dispatchReady(ctx)
	}
}

// recover requeues jobs a prior process left in 'running' (interrupted
// by a crash) ahead of jobs still 'pending', so in-flight work resumes
// first.
func (s *Scheduler) recover(ctx context.Context) {
	if stuck, err := s.store.ListRunningJobs(ctx); err == nil {
		for _, j := range stuck {
			if id, err := uuid.Parse(j.ID); err == nil {
				s.enqueueLocked(id)
			}
		}
	}
	pending, err := s.store.ListPendingJobs(ctx, 1000)
	if err != nil {
		s.logger.Error("scheduler: list pending jobs failed", "error", err)
		return
	}
	for _, j := range pending {
		if id, err := uuid.Parse(j.ID); err == nil {
			s.enqueueLocked(id)
		}
	}
}

// Enqueue adds jobID to the dispatch queue. It does not block on
// execution; the dispatch loop picks it up on its next tick.
func (s *Scheduler) Enqueue(jobID uuid.UUID) {
	s.enqueueLocked(jobID)
	s.nudge()
}

func (s *Scheduler) enqueueLocked(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.queue {
		if existing == jobID {
			return
		}
	}
	if _, ok := s.running[jobID]; ok {
		return
	}
	s.queue = append(s.queue, jobID)
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel requests cancellation of jobID. It returns store.ErrConflict
// if jobID is neither queued nor running (most likely already
// terminal), since there is nothing left to cancel.
func (s *Scheduler) Cancel(jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := false
	for _, existing := range s.queue {
		if existing == jobID {
			queued = true
			break
		}
	}
	_, isRunning := s.running[jobID]

	if !queued && !isRunning {
		return store.ErrConflict
	}

	s.cancelRequested[jobID] = true

	if queued {
		s.removeFromQueueLocked(jobID)
	}
	return nil
}

func (s *Scheduler) removeFromQueueLocked(jobID uuid.UUID) {
	out := s.queue[:0]
	for _, existing := range s.queue {
		if existing != jobID {
			out = append(out, existing)
		}
	}
	s.queue = out
}

// IsCancelRequested satisfies executor.CancelChecker.
func (s *Scheduler) IsCancelRequested(jobID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRequested[jobID]
}

// Drain blocks until the queue is empty and no job is running, or ctx
// is done, whichever comes first. It dispatches and cancels nothing
// itself; cmd/scanapi calls it at shutdown to wait for running jobs.
func (s *Scheduler) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		empty := len(s.queue) == 0 && len(s.running) == 0
		s.mu.Unlock()
		if empty {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetState returns a snapshot of the queue and running set.
func (s *Scheduler) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := make([]uuid.UUID, 0, len(s.running))
	for id := range s.running {
		running = append(running, id)
	}
	queue := make([]uuid.UUID, len(s.queue))
	copy(queue, s.queue)
	cancelled := make([]uuid.UUID, 0, len(s.cancelRequested))
	for id := range s.cancelRequested {
		cancelled = append(cancelled, id)
	}

	return State{Queue: queue, Running: running, CancelRequested: cancelled}
}

// dispatchReady starts as many queued jobs as available capacity
// allows.
func (s *Scheduler) dispatchReady(ctx context.Context) {
	for {
		jobID, ok := s.popLocked()
		if !ok {
			return
		}

		select {
		case s.sem <- struct{}{}:
		default:
			s.enqueueLocked(jobID)
			return
		}

		jobCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.running[jobID] = cancel
		s.mu.Unlock()

		go func(id uuid.UUID, runCtx context.Context, cancel context.CancelFunc) {
			defer func() {
				cancel()
				<-s.sem
				s.mu.Lock()
				delete(s.running, id)
				delete(s.cancelRequested, id)
				s.mu.Unlock()
				s.nudge()
			}()

			if err := s.runner.RunJob(runCtx, id); err != nil {
				s.logger.Error("scheduler: job failed", "job_id", id.String(), "error", err)
			}
		}(jobID, jobCtx, cancel)
	}
}

func (s *Scheduler) popLocked() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return uuid.UUID{}, false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	return id, true
}

func (s *Scheduler) runRetentionSweep(ctx context.Context) {
	if s.cfg.RetentionCutoffDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionCutoffDays)
	n, err := s.store.DeleteExpiredJobs(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduler: retention sweep failed", "error", err)
		return
	}
	metrics.RecordRetentionJobs(n)
	if n > 0 {
		s.logger.Info("scheduler: retention sweep", "jobs_deleted", n)
	}
}

// EmitQueued records and broadcasts the queued event for a
// newly-created job, mirroring the started/page_completed/
// completed/failed/cancelled events the Executor emits later in the
// job's lifecycle.
func (s *Scheduler) EmitQueued(ctx context.Context, jobID uuid.UUID, targetURL string, mode model.JobMode) {
	if s.bus == nil {
		return
	}
	_, _ = s.bus.Record(ctx, jobID, model.EventQueued, map[string]any{
		"targetUrl": targetURL,
		"mode":      string(mode),
	})
}
