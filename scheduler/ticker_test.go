package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iwtech/courier/errors"
	couriertesting "github.com/iwtech/courier/internal/testing"
	"github.com/iwtech/courier/internal/util"
)

// fakeDeliverer returns a scripted outcome per job, or the default when a
// job has no script. A nil outcome error means success.
type fakeDeliverer struct {
	attempts int
	err      error
	panicFor string // job ID that triggers a panic

	calls map[string]int
}

func (f *fakeDeliverer) Deliver(ctx context.Context, job *Job) (int, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[job.ID]++
	if job.ID == f.panicFor {
		panic("template renderer blew up")
	}
	return f.attempts, f.err
}

type fakeNotifier struct {
	calls []string
	errs  []error
}

func (f *fakeNotifier) NotifyFailure(ctx context.Context, job *Job, attempts int, deliveryErr error) {
	f.calls = append(f.calls, job.ID)
	f.errs = append(f.errs, deliveryErr)
}

func newTestTicker(t *testing.T, deliverer Deliverer, notifier FailureNotifier) (*Ticker, *Store, *ExecutionStore) {
	t.Helper()

	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	execStore := NewExecutionStore(database)

	cfg := TickerConfig{
		Interval:     time.Hour, // loop never fires in tests; ticks are driven directly
		FailureGrace: 30 * time.Minute,
	}
	ticker := NewTicker(store, execStore, deliverer, notifier, cfg, zap.NewNop().Sugar())
	return ticker, store, execStore
}

func TestRunJobNowSuccessAdvancesSchedule(t *testing.T) {
	deliverer := &fakeDeliverer{attempts: 1}
	ticker, store, execStore := newTestTicker(t, deliverer, nil)

	job := seedJob(t, store, func(j *Job) { j.SendTime = "09:00" })
	require.NoError(t, ticker.RunJobNow(job.ID))

	executions, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, StatusSuccess, executions[0].Status)
	assert.Equal(t, 1, executions[0].RetryAttempt)
	assert.Nil(t, executions[0].ErrorMessage)

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunTime)
	assert.True(t, got.NextRunTime.After(time.Now()))
	assert.Equal(t, 9, got.NextRunTime.Local().Hour())
}

func TestRunJobNowOneTimeRetires(t *testing.T) {
	ticker, store, _ := newTestTicker(t, &fakeDeliverer{attempts: 1}, nil)

	job := seedJob(t, store, func(j *Job) { j.OneTime = true })
	require.NoError(t, ticker.RunJobNow(job.ID))

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRunTime)
}

func TestRunJobNowFailureRecordsAdvancesAndAlerts(t *testing.T) {
	deliveryErr := errors.Wrapf(errors.ErrDeliveryFailed, "all 3 delivery attempts failed")
	deliverer := &fakeDeliverer{attempts: 3, err: deliveryErr}
	notifier := &fakeNotifier{}
	ticker, store, execStore := newTestTicker(t, deliverer, notifier)

	job := seedJob(t, store, nil)
	require.NoError(t, ticker.RunJobNow(job.ID))

	// Exactly one FAIL record for the whole cycle, carrying the attempts
	// consumed, not one record per attempt.
	executions, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusFail, executions[0].Status)
	assert.Equal(t, 3, executions[0].RetryAttempt)
	require.NotNil(t, executions[0].ErrorMessage)

	// One alert, once.
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, job.ID, notifier.calls[0])
	assert.True(t, errors.Is(notifier.errs[0], errors.ErrDeliveryFailed))

	// Failure still advances the schedule, pushed back by the grace period.
	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunTime)
	assert.True(t, got.NextRunTime.After(time.Now().Add(24*time.Hour)))
}

func TestRunJobNowConfigErrorSingleAttempt(t *testing.T) {
	deliveryErr := errors.Wrapf(errors.ErrJobNotSendable, "job has no template")
	deliverer := &fakeDeliverer{attempts: 1, err: deliveryErr}
	notifier := &fakeNotifier{}
	ticker, store, execStore := newTestTicker(t, deliverer, notifier)

	job := seedJob(t, store, nil)
	require.NoError(t, ticker.RunJobNow(job.ID))

	executions, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusFail, executions[0].Status)
	assert.Equal(t, 1, executions[0].RetryAttempt)

	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, 1, deliverer.calls[job.ID])
}

func TestRunJobNowValidationRace(t *testing.T) {
	deliverer := &fakeDeliverer{attempts: 1}
	notifier := &fakeNotifier{}
	ticker, store, execStore := newTestTicker(t, deliverer, notifier)

	job := seedJob(t, store, func(j *Job) { j.Enabled = false })
	require.NoError(t, ticker.RunJobNow(job.ID))

	// Failed validation: a FAIL record, no delivery, no alert, and the
	// schedule is left alone for the next tick to re-evaluate.
	executions, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusFail, executions[0].Status)
	require.NotNil(t, executions[0].ErrorMessage)
	assert.Equal(t, "Job validation failed", *executions[0].ErrorMessage)

	assert.Zero(t, deliverer.calls[job.ID])
	assert.Empty(t, notifier.calls)

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.NextRunTime)
}

func TestRunJobNowMissingJob(t *testing.T) {
	ticker, _, _ := newTestTicker(t, &fakeDeliverer{attempts: 1}, nil)

	err := ticker.RunJobNow("missing")
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestTickIsolatesJobFailures(t *testing.T) {
	deliverer := &fakeDeliverer{attempts: 1}
	ticker, store, execStore := newTestTicker(t, deliverer, nil)

	victim := seedJob(t, store, func(j *Job) {
		j.NextRunTime = util.Ptr(time.Now().UTC().Add(-2 * time.Hour))
	})
	survivor := seedJob(t, store, func(j *Job) {
		j.NextRunTime = util.Ptr(time.Now().UTC().Add(-time.Hour))
	})
	deliverer.panicFor = victim.ID

	require.NoError(t, ticker.checkDueJobs(time.Now().UTC()))

	// The panic is absorbed as a failed execution for the victim.
	executions, total, err := execStore.ListExecutions(victim.ID, 10, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusFail, executions[0].Status)
	require.NotNil(t, executions[0].ErrorMessage)
	assert.True(t, strings.HasPrefix(*executions[0].ErrorMessage, "Unexpected error:"))

	// The other job still ran and succeeded.
	executions, total, err = execStore.ListExecutions(survivor.ID, 10, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusSuccess, executions[0].Status)
}

func TestTickRetiresUnknownPattern(t *testing.T) {
	ticker, store, execStore := newTestTicker(t, &fakeDeliverer{attempts: 1}, nil)

	job := seedJob(t, store, func(j *Job) { j.Recurrence = Pattern("FORTNIGHTLY") })
	require.NoError(t, ticker.checkDueJobs(time.Now().UTC()))

	// Delivery still happened; the job is then retired rather than stuck due.
	_, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRunTime)
}

func TestStartStop(t *testing.T) {
	ticker, _, _ := newTestTicker(t, &fakeDeliverer{attempts: 1}, nil)

	ticker.Start()
	ticker.Stop()

	stats := ticker.GetStats()
	assert.Equal(t, int64(0), stats["ticks_since_start"])
}
