package scheduler

// Execution is an immutable log entry describing one attempt cycle's
// outcome for a job. Records are append-only: the scheduler never updates
// or deletes them, and one job may accumulate zero or many.
type Execution struct {
	ID    string `json:"id"`
	JobID string `json:"job_id"`

	// ExecutedAt is the recording time (RFC3339), not the send time.
	ExecutedAt string `json:"executed_at"`

	Status       string  `json:"status"`                  // "SUCCESS" or "FAIL"
	ErrorMessage *string `json:"error_message,omitempty"` // present only on FAIL
	RetryAttempt int     `json:"retry_attempt"`           // attempts consumed, 1-based

	CreatedAt string `json:"created_at"` // RFC3339
}

// Execution status constants
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)
