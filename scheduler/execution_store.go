package scheduler

import (
	"database/sql"
	"time"

	"github.com/iwtech/courier/errors"
)

// ExecutionStore handles persistence of job execution history. The table
// is append-only: there is deliberately no update or per-record delete.
type ExecutionStore struct {
	db *sql.DB
}

// NewExecutionStore creates a new execution store
func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// CreateExecution appends an execution record. Recording against a job id
// that no longer exists (deleted mid-tick) is a no-op, not an error: the
// outcome has nowhere to live but the scheduler must not treat that as a
// delivery failure.
func (s *ExecutionStore) CreateExecution(exec *Execution) error {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM email_jobs WHERE id = ?)", exec.JobID).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "failed to check job existence")
	}
	if !exists {
		return nil
	}

	query := `
		INSERT INTO email_executions (
			id, job_id, executed_at, status, error_message, retry_attempt, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage interface{}
	if exec.ErrorMessage != nil {
		errorMessage = *exec.ErrorMessage
	}

	_, err = s.db.Exec(query,
		exec.ID,
		exec.JobID,
		exec.ExecutedAt,
		exec.Status,
		errorMessage,
		exec.RetryAttempt,
		exec.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create execution")
	}
	return nil
}

// ListExecutions retrieves executions for a job, newest first, with
// pagination and an optional status filter.
func (s *ExecutionStore) ListExecutions(jobID string, limit, offset int, statusFilter string) ([]*Execution, int, error) {
	baseQuery := `
		FROM email_executions
		WHERE job_id = ?
	`
	args := []interface{}{jobID}

	if statusFilter != "" {
		baseQuery += " AND status = ?"
		args = append(args, statusFilter)
	}

	countQuery := "SELECT COUNT(*)" + baseQuery
	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count executions")
	}

	query := `
		SELECT id, job_id, executed_at, status, error_message, retry_attempt, created_at
	` + baseQuery + `
		ORDER BY executed_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list executions")
	}
	defer rows.Close()

	var executions []*Execution
	for rows.Next() {
		var exec Execution
		var errorMessage sql.NullString

		err := rows.Scan(
			&exec.ID,
			&exec.JobID,
			&exec.ExecutedAt,
			&exec.Status,
			&errorMessage,
			&exec.RetryAttempt,
			&exec.CreatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan execution")
		}

		if errorMessage.Valid {
			exec.ErrorMessage = &errorMessage.String
		}
		executions = append(executions, &exec)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "error iterating executions")
	}

	return executions, total, nil
}

// CleanupOldExecutions deletes execution records older than the retention
// period. Returns the number of records deleted. This is operator-driven
// TTL cleanup, not part of the scheduler's own behavior; the engine itself
// never deletes records.
func (s *ExecutionStore) CleanupOldExecutions(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UTC().Format(time.RFC3339)

	result, err := s.db.Exec(`DELETE FROM email_executions WHERE executed_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old executions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(deleted), nil
}
