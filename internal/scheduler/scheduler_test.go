package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"seoscan/internal/store"
)

type fakeJobRunner struct {
	mu    sync.Mutex
	ran   []uuid.UUID
	delay time.Duration
}

func (f *fakeJobRunner) RunJob(ctx context.Context, jobID uuid.UUID) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.ran = append(f.ran, jobID)
	f.mu.Unlock()
	return nil
}

func (f *fakeJobRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

func newTestScheduler(runner JobRunner) *Scheduler {
	return New(nil, runner, nil, nil, Config{MaxConcurrency: 2, PollInterval: 20 * time.Millisecond})
}

func TestEnqueue_DeduplicatesSameJob(t *testing.T) {
	s := newTestScheduler(&fakeJobRunner{})
	id := uuid.New()
	s.Enqueue(id)
	s.Enqueue(id)

	state := s.GetState()
	if state.QueueLength() != 1 {
		t.Errorf("QueueLength = %d, want 1", state.QueueLength())
	}
}

func TestCancel_UnknownJobReturnsConflict(t *testing.T) {
	s := newTestScheduler(&fakeJobRunner{})
	if err := s.Cancel(uuid.New()); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Cancel(unknown) error = %v, want store.ErrConflict", err)
	}
}

func TestCancel_QueuedJobRemovedFromQueue(t *testing.T) {
	s := newTestScheduler(&fakeJobRunner{})
	id := uuid.New()
	s.Enqueue(id)

	if err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if state := s.GetState(); state.QueueLength() != 0 {
		t.Errorf("QueueLength = %d, want 0 after cancel", state.QueueLength())
	}
	if !s.IsCancelRequested(id) {
		t.Error("expected IsCancelRequested to report true")
	}
}

func TestDispatchReady_RunsQueuedJobsUpToConcurrencyLimit(t *testing.T) {
	runner := &fakeJobRunner{}
	s := newTestScheduler(runner)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		s.enqueueLocked(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.dispatchReady(ctx)

	deadline := time.Now().Add(500 * time.Millisecond)
	for runner.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if runner.count() < 2 {
		t.Fatalf("expected at least 2 jobs dispatched within concurrency limit, got %d", runner.count())
	}

	state := s.GetState()
	if state.QueueLength() != 1 {
		t.Errorf("QueueLength = %d, want 1 job left queued behind the concurrency limit", state.QueueLength())
	}
}

func TestDrain_ReturnsOnceQueueAndRunningAreEmpty(t *testing.T) {
	runner := &fakeJobRunner{delay: 60 * time.Millisecond}
	s := newTestScheduler(runner)

	id := uuid.New()
	s.enqueueLocked(id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.dispatchReady(ctx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer drainCancel()
	if err := s.Drain(drainCtx); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if runner.count() != 1 {
		t.Errorf("expected job to have run before Drain returned, count = %d", runner.count())
	}
}

func TestDrain_ReturnsContextErrorOnTimeout(t *testing.T) {
	runner := &fakeJobRunner{delay: time.Second}
	s := newTestScheduler(runner)

	id := uuid.New()
	s.enqueueLocked(id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.dispatchReady(ctx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer drainCancel()
	if err := s.Drain(drainCtx); err == nil {
		t.Error("expected Drain to return an error when it times out before the job finishes")
	}
}

func TestGetState_ReportsRunningJobs(t *testing.T) {
	runner := &fakeJobRunner{delay: 200 * time.Millisecond}
	s := newTestScheduler(runner)

	id := uuid.New()
	s.enqueueLocked(id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.dispatchReady(ctx)

	time.Sleep(30 * time.Millisecond)
	state := s.GetState()
	if len(state.Running) != 1 {
		t.Fatalf("expected 1 running job, got %d", len(state.Running))
	}
	if state.Running[0] != id {
		t.Errorf("running job id = %s, want %s", state.Running[0], id)
	}
}
