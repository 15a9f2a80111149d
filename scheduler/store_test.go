package scheduler

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couriertesting "github.com/iwtech/courier/internal/testing"
	"github.com/iwtech/courier/internal/util"
)

// seedJob inserts a job that is due now unless mutated otherwise.
func seedJob(t *testing.T, store *Store, mutate func(*Job)) *Job {
	t.Helper()

	job := &Job{
		ID:          uuid.NewString(),
		NextRunTime: util.Ptr(time.Now().UTC().Add(-time.Minute)),
		Recurrence:  PatternDaily,
		Enabled:     true,
		SenderEmail: "ops@example.com",
		Recipients:  "a@example.com",
	}
	if mutate != nil {
		mutate(job)
	}

	require.NoError(t, store.CreateJob(job))
	return job
}

func TestFindDueJobsPredicate(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	now := time.Now().UTC()

	due := seedJob(t, store, nil)
	seedJob(t, store, func(j *Job) { j.Enabled = false })
	seedJob(t, store, func(j *Job) { j.NextRunTime = nil })
	seedJob(t, store, func(j *Job) { j.NextRunTime = util.Ptr(now.Add(time.Hour)) })
	seedJob(t, store, func(j *Job) { j.StartDate = util.Ptr(now.Add(24 * time.Hour)) })
	seedJob(t, store, func(j *Job) { j.EndDate = util.Ptr(now.Add(-24 * time.Hour)) })

	jobs, err := store.FindDueJobs(now)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, due.ID, jobs[0].ID)
}

func TestFindDueJobsOrderedOldestFirst(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	now := time.Now().UTC()

	newer := seedJob(t, store, func(j *Job) { j.NextRunTime = util.Ptr(now.Add(-time.Minute)) })
	older := seedJob(t, store, func(j *Job) { j.NextRunTime = util.Ptr(now.Add(-time.Hour)) })

	jobs, err := store.FindDueJobs(now)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, older.ID, jobs[0].ID)
	assert.Equal(t, newer.ID, jobs[1].ID)
}

func TestGetJobJoinsTemplate(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	templates := NewTemplateStore(database)

	tmpl := &Template{ID: uuid.NewString(), Name: "welcome", Subject: "Hi", Body: "<p>Hello</p>"}
	require.NoError(t, templates.CreateTemplate(tmpl))

	job := seedJob(t, store, func(j *Job) { j.TemplateID = tmpl.ID })

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Template)
	assert.Equal(t, "welcome", got.Template.Name)
	assert.Equal(t, "Hi", got.Template.Subject)
}

func TestGetJobNotFound(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	_, err := store.GetJob("missing")
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestAdvanceNextRun(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	job := seedJob(t, store, nil)
	next := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	require.NoError(t, store.AdvanceNextRun(job.ID, &next))
	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunTime)
	assert.True(t, got.NextRunTime.Equal(next))
}

func TestAdvanceNextRunNilRetiresJob(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	job := seedJob(t, store, nil)
	require.NoError(t, store.AdvanceNextRun(job.ID, nil))

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRunTime)

	// Retired jobs never surface as due again.
	jobs, err := store.FindDueJobs(time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestAdvanceNextRunMissingJobIsNoOp(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	next := time.Now().UTC()
	assert.NoError(t, store.AdvanceNextRun("deleted-mid-tick", &next))
}

func TestSetEnabled(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	job := seedJob(t, store, nil)
	require.NoError(t, store.SetEnabled(job.ID, false))

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	err = store.SetEnabled("missing", true)
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestDeleteJobCascadesExecutions(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	execStore := NewExecutionStore(database)

	job := seedJob(t, store, nil)
	require.NoError(t, execStore.CreateExecution(newExecution(job.ID, StatusSuccess, nil, 1)))

	require.NoError(t, store.DeleteJob(job.ID))

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM email_executions`).Scan(&count))
	assert.Zero(t, count)
}

func TestGetNextScheduledJobEmpty(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)

	job, err := store.GetNextScheduledJob()
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestFindDueJobsQueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	store := NewStore(mockDB)
	_, err = store.FindDueJobs(time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query due jobs")
	assert.NoError(t, mock.ExpectationsWereMet())
}
