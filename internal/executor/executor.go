// Package executor implements the per-job state machine: driving a
// Job from pending through running to a terminal state, invoking
// either the Page Pipeline directly (single mode) or the Site
// Crawler (site mode), and emitting task events at each transition.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"seoscan/internal/analyzer"
	"seoscan/internal/eventbus"
	"seoscan/internal/metrics"
	"seoscan/internal/model"
	"seoscan/internal/pipeline"
	"seoscan/internal/sitecrawler"
	"seoscan/internal/store"
)

// ErrJobCancelled signals that the Scheduler's cancellation request
// was observed mid-run. The Executor treats this distinctly from any
// other error: the job is marked failed with a fixed message and the
// error is swallowed rather than propagated to the Scheduler.
var ErrJobCancelled = errors.New("job was cancelled by user")

// CancelChecker is satisfied by the Scheduler: it lets the Executor
// observe a cancellation request between pages or steps.
type CancelChecker interface {
	IsCancelRequested(jobID uuid.UUID) bool
}

// Options carries the defaults the Executor falls back to when a
// job's own Options are unset.
type Options struct {
	SingleModeSteps  int
	DefaultMaxPages  int
	DefaultSiteDepth int
	UserAgent        string
	RequestTimeout   time.Duration
	RespectRobots    bool
	RedisURL         string
	RedisTTL         time.Duration
}

// Executor drives jobs through their state machine.
type Executor struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	bus      *eventbus.Bus
	cancels  CancelChecker
	opts     Options
}

// New builds an Executor.
func New(st *store.Store, pl *pipeline.Pipeline, bus *eventbus.Bus, cancels CancelChecker, opts Options) *Executor {
	return &Executor{store: st, pipeline: pl, bus: bus, cancels: cancels, opts: opts}
}

// RunJob drives jobID from pending to a terminal state. It returns
// nil on a cancelled or successfully completed job; any other error
// is returned so the Scheduler can log it.
func (e *Executor) RunJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("executor: load job: %w", err)
	}

	startedAt := time.Now().UTC()
	if err := e.store.MarkJobRunning(ctx, jobID, startedAt); err != nil {
		return fmt.Errorf("executor: mark running: %w", err)
	}
	e.emit(ctx, jobID, model.EventStarted, map[string]any{
		"targetUrl": job.TargetURL,
		"mode":      string(job.Mode),
	})

	var summary model.Aggregated
	var runErr error

	switch job.Mode {
	case model.ModeSite:
		summary, runErr = e.runSite(ctx, jobID, job)
	default:
		summary, runErr = e.runSingle(ctx, jobID, job)
	}

	completedAt := time.Now().UTC()

	if errors.Is(runErr, ErrJobCancelled) {
		_ = e.store.MarkJobTerminal(ctx, jobID, model.JobFailed, completedAt, nil, "Job was cancelled by user")
		metrics.RecordJobTerminal(string(job.Mode), string(model.JobFailed))
		e.emit(ctx, jobID, model.EventCancelled, map[string]any{"jobId": jobID.String()})
		return nil
	}

	if runErr != nil {
		_ = e.store.MarkJobTerminal(ctx, jobID, model.JobFailed, completedAt, nil, runErr.Error())
		metrics.RecordJobTerminal(string(job.Mode), string(model.JobFailed))
		e.emit(ctx, jobID, model.EventFailed, map[string]any{"error": runErr.Error()})
		return runErr
	}

	if err := e.store.MarkJobTerminal(ctx, jobID, model.JobCompleted, completedAt, &summary, ""); err != nil {
		return fmt.Errorf("executor: mark completed: %w", err)
	}
	metrics.RecordJobTerminal(string(job.Mode), string(model.JobCompleted))
	e.emit(ctx, jobID, model.EventCompleted, map[string]any{"issuesSummary": summary})
	return nil
}

// runSingle drives single-URL mode. The Pipeline has no step
// callback, so per spec.md §4.5's fallback: pagesTotal is fixed at 1
// and a single page_completed event is emitted once the Pipeline
// returns.
func (e *Executor) runSingle(ctx context.Context, jobID uuid.UUID, job model.Job) (model.Aggregated, error) {
	if err := e.store.SetJobPagesTotal(ctx, jobID, 1); err != nil {
		return model.Aggregated{}, err
	}

	if e.cancels != nil && e.cancels.IsCancelRequested(jobID) {
		return model.Aggregated{}, ErrJobCancelled
	}

	result, err := e.pipeline.ScanSinglePage(ctx, jobID, job.TargetURL)
	if err != nil {
		return model.Aggregated{}, err
	}

	if err := e.store.IncrementJobPagesFinished(ctx, jobID); err != nil {
		return model.Aggregated{}, err
	}
	e.emit(ctx, jobID, model.EventPageCompleted, map[string]any{
		"pagesFinished": 1,
		"message":       result.Excerpt,
		"url":           result.URL,
		"httpStatus":    result.HTTPStatus,
	})

	return analyzer.AggregateSummaries([]model.IssueSummary{result.IssueSummary}), nil
}

// runSite drives site-crawl mode: pagesTotal is set to the upper
// bound maxPages, and onPage observes cancellation before every page.
func (e *Executor) runSite(ctx context.Context, jobID uuid.UUID, job model.Job) (model.Aggregated, error) {
	crawlOpts := resolveSiteOptions(job, e.opts)

	if err := e.store.SetJobPagesTotal(ctx, jobID, crawlOpts.MaxPages); err != nil {
		return model.Aggregated{}, err
	}

	onPage := func(ctx context.Context, result *pipeline.SingleScanResult) error {
		if e.cancels != nil && e.cancels.IsCancelRequested(jobID) {
			return ErrJobCancelled
		}
		if err := e.store.IncrementJobPagesFinished(ctx, jobID); err != nil {
			return err
		}
		e.emit(ctx, jobID, model.EventPageCompleted, map[string]any{
			"url":        result.URL,
			"httpStatus": result.HTTPStatus,
			"loadTimeMs": result.LoadTimeMs,
		})
		return nil
	}

	result, err := sitecrawler.ScanSite(ctx, e.pipeline, jobID, job.TargetURL, crawlOpts, onPage)
	if err != nil {
		return model.Aggregated{}, err
	}

	return result.IssueSummary, nil
}

// resolveSiteOptions merges a job's own Options over the Executor's
// configured defaults to build the sitecrawler.Options for one run.
func resolveSiteOptions(job model.Job, defaults Options) sitecrawler.Options {
	maxPages := defaults.DefaultMaxPages
	depthLimit := defaults.DefaultSiteDepth
	userAgent := defaults.UserAgent

	if job.Options != nil {
		if job.Options.MaxPages > 0 {
			maxPages = job.Options.MaxPages
		}
		if job.Options.SiteDepth > 0 {
			depthLimit = job.Options.SiteDepth
		}
		if job.Options.UserAgent != "" {
			userAgent = job.Options.UserAgent
		}
	}

	return sitecrawler.Options{
		DepthLimit:     depthLimit,
		MaxPages:       maxPages,
		UserAgent:      userAgent,
		RequestTimeout: defaults.RequestTimeout,
		RespectRobots:  defaults.RespectRobots,
		RedisURL:       defaults.RedisURL,
		RedisTTL:       defaults.RedisTTL,
	}
}

func (e *Executor) emit(ctx context.Context, jobID uuid.UUID, eventType model.TaskEventType, payload map[string]any) {
	if e.bus == nil {
		return
	}
	_, _ = e.bus.Record(ctx, jobID, eventType, payload)
}
