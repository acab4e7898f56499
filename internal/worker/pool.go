package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/strava-weather/internal/annotate"
	"github.com/i474232898/strava-weather/internal/store"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("worker pool is shut down")
	// ErrQueueFull is returned when too many accepted runs have not finished.
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrPanic wraps a panic recovered from an annotation run.
	ErrPanic = errors.New("annotation run panicked")
)

// Job identifies the activity to annotate.
type Job struct {
	AthleteID  int64
	ActivityID int64
}

// Annotator runs the annotation pipeline for one activity.
type Annotator interface {
	Annotate(ctx context.Context, athleteID, activityID int64) (annotate.Result, error)
}

// Recorder receives the outcome of every run.
type Recorder interface {
	SaveRun(run store.RunRecord)
}

// ErrorReporter forwards failed runs to an error tracker.
type ErrorReporter interface {
	CaptureException(err error, context map[string]any)
}

// Pool runs each annotation in its own goroutine with its own timeout and
// panic boundary, so one slow or crashing run cannot take down the caller or
// other runs. Only the outcome leaves the run. At most queueSize runs are
// accepted and unfinished at any time.
type Pool struct {
	annotator Annotator
	recorder  Recorder
	reporter  ErrorReporter
	logger    *slog.Logger
	timeout   time.Duration
	sem       chan struct{}
	queueSize int
	pending   chan struct{}

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option customizes a Pool.
type Option func(*Pool)

// WithConcurrency bounds how many runs execute at once.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.sem = make(chan struct{}, n)
		}
	}
}

// WithQueueSize bounds how many runs may be accepted and not yet finished,
// running ones included.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithTimeout bounds the duration of a single run.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithReporter sends failed runs to an error tracker.
func WithReporter(r ErrorReporter) Option {
	return func(p *Pool) {
		p.reporter = r
	}
}

// New creates a Pool. recorder may be nil.
func New(annotator Annotator, recorder Recorder, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		annotator: annotator,
		recorder:  recorder,
		logger:    logger,
		timeout:   time.Minute,
		sem:       make(chan struct{}, 4),
		queueSize: 100,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pending = make(chan struct{}, p.queueSize)
	return p
}

// Submit schedules a run and returns its id without waiting for it.
func (p *Pool) Submit(job Job) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPoolClosed
	}
	if !p.reserve() {
		return "", ErrQueueFull
	}

	runID := uuid.NewString()
	p.wg.Add(1)
	go func() {
		defer p.release()
		p.run(runID, job)
	}()
	return runID, nil
}

// Run executes a job in an isolated goroutine and waits for its outcome.
func (p *Pool) Run(job Job) (store.RunRecord, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return store.RunRecord{}, ErrPoolClosed
	}
	if !p.reserve() {
		p.mu.Unlock()
		return store.RunRecord{}, ErrQueueFull
	}
	p.wg.Add(1)
	p.mu.Unlock()

	done := make(chan store.RunRecord, 1)
	go func() {
		defer p.release()
		done <- p.run(uuid.NewString(), job)
	}()
	return <-done, nil
}

// Shutdown stops accepting jobs and waits for in-flight runs to finish or
// for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) reserve() bool {
	select {
	case p.pending <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *Pool) release() {
	<-p.pending
	p.wg.Done()
}

func (p *Pool) run(runID string, job Job) store.RunRecord {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	logger := p.logger.With("run_id", runID, "athlete_id", job.AthleteID, "activity_id", job.ActivityID)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	started := time.Now()
	res, err := p.execute(ctx, job)

	record := store.RunRecord{
		RunID:      runID,
		AthleteID:  job.AthleteID,
		ActivityID: job.ActivityID,
		Timestamp:  started.UTC(),
		Duration:   time.Since(started),
	}

	switch {
	case err != nil:
		record.Outcome = store.OutcomeFailed
		record.Error = err.Error()
		logger.Error("annotation run failed", "error", err)
		if p.reporter != nil {
			p.reporter.CaptureException(err, map[string]any{
				"run_id":      runID,
				"athlete_id":  job.AthleteID,
				"activity_id": job.ActivityID,
			})
		}
	case res.Skipped:
		record.Outcome = store.OutcomeSkipped
		record.Reason = res.Reason
		logger.Info("annotation run skipped", "reason", res.Reason)
	default:
		record.Outcome = store.OutcomeAnnotated
		record.Name = res.Patch.Name
		record.Description = res.Patch.Description
		logger.Info("annotation run completed", "duration", record.Duration)
	}

	if p.recorder != nil {
		p.recorder.SaveRun(record)
	}
	return record
}

func (p *Pool) execute(ctx context.Context, job Job) (res annotate.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered from panic in annotation run", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return p.annotator.Annotate(ctx, job.AthleteID, job.ActivityID)
}
