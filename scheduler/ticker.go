package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/internal/util"
)

// Deliverer attempts delivery of one job's email, with bounded in-process
// retries. It returns the number of attempts consumed (1-based) and the
// terminal error when every attempt failed.
type Deliverer interface {
	Deliver(ctx context.Context, job *Job) (attempts int, err error)
}

// FailureNotifier emits a best-effort operator alert after a failed
// delivery cycle. Implementations must absorb their own errors; a broken
// alert channel must not affect the scheduler or the job's bookkeeping.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, job *Job, attempts int, deliveryErr error)
}

// Ticker drives the scheduler loop: on a fixed interval it pulls due jobs
// and runs each through validate, deliver, record, advance.
//
// Ticks never overlap: the loop processes one tick to completion before
// reading the next from the timer, so no two executions of the same job
// can run concurrently even when a retry sequence outlasts the interval.
type Ticker struct {
	store     *Store
	execStore *ExecutionStore
	deliverer Deliverer
	notifier  FailureNotifier // may be nil (alerting disabled)

	interval time.Duration
	grace    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.SugaredLogger

	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
}

// TickerConfig contains configuration for the scheduler loop
type TickerConfig struct {
	Interval     time.Duration // how often to scan for due jobs (default: 600 seconds)
	FailureGrace time.Duration // push-back applied to the next occurrence after a failed cycle (default: 30 minutes)
}

// DefaultTickerConfig returns sensible defaults
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{
		Interval:     600 * time.Second,
		FailureGrace: 30 * time.Minute,
	}
}

// NewTicker creates a new scheduler ticker
func NewTicker(store *Store, execStore *ExecutionStore, deliverer Deliverer, notifier FailureNotifier, cfg TickerConfig, log *zap.SugaredLogger) *Ticker {
	return NewTickerWithContext(context.Background(), store, execStore, deliverer, notifier, cfg, log)
}

// NewTickerWithContext creates a ticker with a parent context
func NewTickerWithContext(ctx context.Context, store *Store, execStore *ExecutionStore, deliverer Deliverer, notifier FailureNotifier, cfg TickerConfig, log *zap.SugaredLogger) *Ticker {
	tickerCtx, cancel := context.WithCancel(ctx)

	return &Ticker{
		store:     store,
		execStore: execStore,
		deliverer: deliverer,
		notifier:  notifier,
		interval:  cfg.Interval,
		grace:     cfg.FailureGrace,
		ctx:       tickerCtx,
		cancel:    cancel,
		logger:    log,
	}
}

// Start begins the ticker loop
func (t *Ticker) Start() {
	t.wg.Add(1)
	go t.run()
	t.logger.Infow("Scheduler started", "interval", t.interval)
}

// Stop gracefully stops the ticker
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()
	t.logger.Infow("Scheduler stopped")
}

// run is the main ticker loop
func (t *Ticker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case tickTime := <-ticker.C:
			t.mu.Lock()
			t.lastTickAt = tickTime
			t.ticksSinceStart++
			t.mu.Unlock()

			t.logNextJobInfo(tickTime)

			if err := t.checkDueJobs(tickTime); err != nil {
				// A failed scan never terminates the loop; try again next tick.
				t.logger.Warnw("Scheduler tick error", "error", err)
			}
		}
	}
}

// logNextJobInfo logs time until the next scheduled job
func (t *Ticker) logNextJobInfo(now time.Time) {
	nextJob, err := t.store.GetNextScheduledJob()
	if err != nil {
		t.logger.Warnw("Failed to get next scheduled job", "error", err)
		return
	}

	if nextJob == nil || nextJob.NextRunTime == nil {
		t.logger.Debugw("No scheduled executions pending")
		return
	}

	timeUntil := nextJob.NextRunTime.Sub(now)
	if timeUntil < 0 {
		timeUntil = 0
	}
	t.logger.Infow("Next scheduled execution",
		"job_id", nextJob.ID,
		"in", timeUntil.Round(time.Second))
}

// checkDueJobs finds due jobs and executes each one independently.
func (t *Ticker) checkDueJobs(now time.Time) error {
	jobs, err := t.store.FindDueJobsContext(t.ctx, now)
	if err != nil {
		return errors.Wrap(err, "failed to list due jobs")
	}

	if len(jobs) == 0 {
		return nil
	}

	t.logger.Infow("Found due jobs", "count", len(jobs))

	for _, job := range jobs {
		// Check for context cancellation before processing next job
		select {
		case <-t.ctx.Done():
			return t.ctx.Err()
		default:
		}

		t.executeJob(job, now)
	}

	return nil
}

// executeJob drives one job through validate, deliver, record, advance.
// Every failure mode, panics included, is absorbed here so one job can
// never abort the tick for the rest.
func (t *Ticker) executeJob(job *Job, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("Unexpected error while processing job",
				"job_id", job.ID,
				"panic", r)
			t.recordExecution(job.ID, StatusFail, util.Ptr(fmt.Sprintf("Unexpected error: %v", r)), 1)
		}
	}()

	t.logger.Infow("Executing job",
		"job_id", job.ID,
		"recurrence", job.Recurrence,
		"sender", job.SenderEmail)

	// Re-check eligibility: the job may have been disabled or pushed out
	// of its date window between the due query and now.
	if !job.EligibleAt(now) {
		t.logger.Warnw("Job is not valid for execution", "job_id", job.ID)
		t.recordExecution(job.ID, StatusFail, util.Ptr("Job validation failed"), 1)
		return
	}

	attempts, err := t.deliverer.Deliver(t.ctx, job)
	if err != nil {
		t.recoverFailure(job, now, attempts, err)
		return
	}

	t.logger.Infow("Job executed successfully",
		"job_id", job.ID,
		"attempts", attempts)
	t.recordExecution(job.ID, StatusSuccess, nil, attempts)
	t.advanceSchedule(job, now, 0)
}

// recoverFailure is the terminal handling for a failed delivery cycle:
// one FAIL record, schedule advancement with grace, one alert attempt.
// Invoked exactly once per failed cycle.
func (t *Ticker) recoverFailure(job *Job, now time.Time, attempts int, deliveryErr error) {
	class := "TECHNICAL"
	if errors.IsConfigurationError(deliveryErr) {
		class = "CONFIGURATION"
	}

	t.logger.Errorw("Delivery cycle failed",
		"job_id", job.ID,
		"classification", class,
		"attempts", attempts,
		"error", deliveryErr)

	t.recordExecution(job.ID, StatusFail, util.Ptr(deliveryErr.Error()), attempts)

	// Failure still advances the schedule: a permanently broken job is
	// deferred to its next natural occurrence instead of hot-looping,
	// pushed back by the grace period.
	t.advanceSchedule(job, now, t.grace)

	if t.notifier != nil {
		t.notifier.NotifyFailure(t.ctx, job, attempts, deliveryErr)
	}
}

// advanceSchedule computes and applies the job's next run time. A nil
// next run retires the job.
func (t *Ticker) advanceSchedule(job *Job, now time.Time, grace time.Duration) {
	if !job.Recurrence.Known() {
		t.logger.Warnw("Unknown recurrence pattern, retiring job",
			"job_id", job.ID,
			"pattern", job.Recurrence)
	}

	next := NextRun(job, now)
	if next != nil && grace > 0 {
		pushed := next.Add(grace)
		next = &pushed
	}

	if err := t.store.AdvanceNextRun(job.ID, next); err != nil {
		t.logger.Errorw("Failed to advance job schedule",
			"job_id", job.ID,
			"error", err)
		return
	}

	if next != nil {
		t.logger.Infow("Job rescheduled",
			"job_id", job.ID,
			"next_run_time", next.Format(time.RFC3339))
	} else {
		t.logger.Infow("Job retired (one-time or end date reached)",
			"job_id", job.ID)
	}
}

// recordExecution appends one immutable execution record. Recording
// failures are logged and absorbed; execution history must never block
// the scheduler.
func (t *Ticker) recordExecution(jobID, status string, errorMessage *string, attempts int) {
	now := time.Now().UTC().Format(time.RFC3339)
	exec := &Execution{
		ID:           uuid.NewString(),
		JobID:        jobID,
		ExecutedAt:   now,
		Status:       status,
		ErrorMessage: errorMessage,
		RetryAttempt: attempts,
		CreatedAt:    now,
	}

	if err := t.execStore.CreateExecution(exec); err != nil {
		t.logger.Errorw("Failed to record execution",
			"job_id", jobID,
			"error", err)
	}
}

// RunJobNow executes a single job immediately through the same pipeline a
// tick would use. Used by the manual trigger command; do not call while a
// ticker for the same store is running.
func (t *Ticker) RunJobNow(jobID string) error {
	job, err := t.store.GetJob(jobID)
	if err != nil {
		return err
	}
	t.executeJob(job, time.Now())
	return nil
}

// GetStats returns ticker statistics
func (t *Ticker) GetStats() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      t.lastTickAt,
		"ticks_since_start": t.ticksSinceStart,
		"interval":          t.interval,
	}
}
