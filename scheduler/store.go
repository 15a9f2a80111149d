package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/iwtech/courier/errors"
)

// Store handles persistence of email jobs. It is the only component that
// mutates a job's schedule; the ticker goes through AdvanceNextRun and
// SetEnabled exclusively.
type Store struct {
	db *sql.DB
}

// NewStore creates a new job store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `
	j.id, j.start_date, j.end_date, j.next_run_time, j.send_time,
	j.recurrence_pattern, j.one_time, j.enabled, j.sender_email,
	j.recipients, j.template_id, j.created_at, j.updated_at,
	t.id, t.name, t.subject, t.body`

const jobFrom = `
	FROM email_jobs j
	LEFT JOIN email_templates t ON t.id = j.template_id`

// CreateJob persists a new job. NextRunTime is stored as given; callers
// apply the lifecycle rule (next run = start date, enabled) before calling.
func (s *Store) CreateJob(job *Job) error {
	query := `
		INSERT INTO email_jobs (
			id, start_date, end_date, next_run_time, send_time,
			recurrence_pattern, one_time, enabled, sender_email,
			recipients, template_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)

	var sendTime, templateID interface{}
	if job.SendTime != "" {
		sendTime = job.SendTime
	}
	if job.TemplateID != "" {
		templateID = job.TemplateID
	}

	_, err := s.db.Exec(query,
		job.ID,
		formatTimePtr(job.StartDate),
		formatTimePtr(job.EndDate),
		formatTimePtr(job.NextRunTime),
		sendTime,
		string(job.Recurrence),
		job.OneTime,
		job.Enabled,
		job.SenderEmail,
		job.Recipients,
		templateID,
		now,
		now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create job")
	}
	return nil
}

// GetJob retrieves a job by ID with its template snapshot joined on.
func (s *Store) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT`+jobColumns+jobFrom+` WHERE j.id = ?`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("job %s", id)
		}
		return nil, errors.Wrap(err, "failed to get job")
	}
	return job, nil
}

// ListJobs returns all jobs, newest first, for operator tooling.
func (s *Store) ListJobs() ([]*Job, error) {
	rows, err := s.db.Query(`SELECT` + jobColumns + jobFrom + ` ORDER BY j.created_at DESC LIMIT 1000`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()
	return collectJobs(rows)
}

// FindDueJobs returns jobs ready to execute at the given instant:
// enabled, next run time set and reached, and inside the start/end window.
// Results are ordered by next_run_time ASC (oldest due first) and limited
// to 100 per tick.
func (s *Store) FindDueJobs(now time.Time) ([]*Job, error) {
	return s.FindDueJobsContext(context.Background(), now)
}

// FindDueJobsContext is FindDueJobs with context support so a long query
// can be cancelled during shutdown.
func (s *Store) FindDueJobsContext(ctx context.Context, now time.Time) ([]*Job, error) {
	query := `SELECT` + jobColumns + jobFrom + `
		WHERE j.enabled = 1
		  AND j.next_run_time IS NOT NULL
		  AND j.next_run_time <= ?
		  AND (j.start_date IS NULL OR j.start_date <= ?)
		  AND (j.end_date IS NULL OR j.end_date >= ?)
		ORDER BY j.next_run_time ASC
		LIMIT 100
	`

	ts := now.UTC().Format(time.RFC3339)
	rows, err := s.db.QueryContext(ctx, query, ts, ts, ts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query due jobs")
	}
	defer rows.Close()
	return collectJobs(rows)
}

// GetNextScheduledJob returns the enabled job with the soonest pending
// run time, or nil when nothing is scheduled.
func (s *Store) GetNextScheduledJob() (*Job, error) {
	row := s.db.QueryRow(`SELECT` + jobColumns + jobFrom + `
		WHERE j.enabled = 1 AND j.next_run_time IS NOT NULL
		ORDER BY j.next_run_time ASC
		LIMIT 1`)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get next scheduled job")
	}
	return job, nil
}

// AdvanceNextRun sets a job's next run time. Passing nil retires the job:
// it will never again satisfy the due predicate while still counted as
// enabled. Idempotent; a job that no longer exists is a no-op.
func (s *Store) AdvanceNextRun(jobID string, next *time.Time) error {
	query := `
		UPDATE email_jobs
		SET next_run_time = ?,
		    updated_at = ?
		WHERE id = ?
	`

	_, err := s.db.Exec(query,
		formatTimePtr(next),
		time.Now().UTC().Format(time.RFC3339),
		jobID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to advance next run time")
	}
	return nil
}

// SetEnabled toggles a job's enabled flag.
func (s *Store) SetEnabled(jobID string, enabled bool) error {
	result, err := s.db.Exec(`
		UPDATE email_jobs
		SET enabled = ?,
		    updated_at = ?
		WHERE id = ?`,
		enabled,
		time.Now().UTC().Format(time.RFC3339),
		jobID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to set enabled flag")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("job %s", jobID)
	}
	return nil
}

// DeleteJob removes a job and, via cascade, its execution history.
func (s *Store) DeleteJob(jobID string) error {
	result, err := s.db.Exec(`DELETE FROM email_jobs WHERE id = ?`, jobID)
	if err != nil {
		return errors.Wrap(err, "failed to delete job")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("job %s", jobID)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var startDate, endDate, nextRunTime, sendTime, templateID sql.NullString
	var createdAt, updatedAt, recurrence string
	var tmplID, tmplName, tmplSubject, tmplBody sql.NullString

	err := row.Scan(
		&job.ID,
		&startDate,
		&endDate,
		&nextRunTime,
		&sendTime,
		&recurrence,
		&job.OneTime,
		&job.Enabled,
		&job.SenderEmail,
		&job.Recipients,
		&templateID,
		&createdAt,
		&updatedAt,
		&tmplID,
		&tmplName,
		&tmplSubject,
		&tmplBody,
	)
	if err != nil {
		return nil, err
	}

	job.Recurrence = Pattern(recurrence)

	if job.StartDate, err = parseTimeNull(startDate, "start_date", job.ID); err != nil {
		return nil, err
	}
	if job.EndDate, err = parseTimeNull(endDate, "end_date", job.ID); err != nil {
		return nil, err
	}
	if job.NextRunTime, err = parseTimeNull(nextRunTime, "next_run_time", job.ID); err != nil {
		return nil, err
	}

	if job.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for job %s", job.ID)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for job %s", job.ID)
	}

	if sendTime.Valid {
		job.SendTime = sendTime.String
	}
	if templateID.Valid {
		job.TemplateID = templateID.String
	}
	if tmplID.Valid {
		job.Template = &Template{
			ID:      tmplID.String,
			Name:    tmplName.String,
			Subject: tmplSubject.String,
			Body:    tmplBody.String,
		}
	}

	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// parseTimeNull parses a nullable RFC3339 column. A parse failure
// indicates data corruption or a schema mismatch and is surfaced.
func parseTimeNull(v sql.NullString, column, jobID string) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s for job %s", column, jobID)
	}
	return &t, nil
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
