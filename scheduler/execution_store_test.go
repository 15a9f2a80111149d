package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couriertesting "github.com/iwtech/courier/internal/testing"
	"github.com/iwtech/courier/internal/util"
)

func TestCreateExecutionAppends(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	execStore := NewExecutionStore(database)

	job := seedJob(t, store, nil)
	require.NoError(t, execStore.CreateExecution(newExecution(job.ID, StatusFail, util.Ptr("smtp timeout"), 3)))

	executions, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, executions, 1)
	assert.Equal(t, StatusFail, executions[0].Status)
	assert.Equal(t, 3, executions[0].RetryAttempt)
	require.NotNil(t, executions[0].ErrorMessage)
	assert.Equal(t, "smtp timeout", *executions[0].ErrorMessage)
}

func TestCreateExecutionMissingJobIsNoOp(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	execStore := NewExecutionStore(database)

	require.NoError(t, execStore.CreateExecution(newExecution("deleted-mid-tick", StatusSuccess, nil, 1)))

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM email_executions`).Scan(&count))
	assert.Zero(t, count)
}

func TestListExecutionsFilterAndPagination(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	execStore := NewExecutionStore(database)

	job := seedJob(t, store, nil)
	base := time.Now().UTC()
	for i, status := range []string{StatusSuccess, StatusFail, StatusFail} {
		exec := newExecution(job.ID, status, nil, 1)
		exec.ExecutedAt = base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		require.NoError(t, execStore.CreateExecution(exec))
	}

	// Newest first, page of two.
	executions, total, err := execStore.ListExecutions(job.ID, 2, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, executions, 2)
	assert.True(t, executions[0].ExecutedAt >= executions[1].ExecutedAt)

	// Second page.
	executions, total, err = execStore.ListExecutions(job.ID, 2, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, executions, 1)

	// Status filter.
	executions, total, err = execStore.ListExecutions(job.ID, 10, 0, StatusFail)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, executions, 2)
}

func TestCleanupOldExecutions(t *testing.T) {
	database := couriertesting.CreateTestDB(t)
	store := NewStore(database)
	execStore := NewExecutionStore(database)

	job := seedJob(t, store, nil)

	old := newExecution(job.ID, StatusSuccess, nil, 1)
	old.ExecutedAt = time.Now().AddDate(0, 0, -100).UTC().Format(time.RFC3339)
	require.NoError(t, execStore.CreateExecution(old))

	recent := newExecution(job.ID, StatusSuccess, nil, 1)
	require.NoError(t, execStore.CreateExecution(recent))

	deleted, err := execStore.CleanupOldExecutions(90)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, total, err := execStore.ListExecutions(job.ID, 10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
