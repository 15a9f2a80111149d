package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/iwtech/courier/errors"
)

func isNotFound(err error) bool {
	return errors.IsNotFoundError(err)
}

func newExecution(jobID, status string, errorMessage *string, attempt int) *Execution {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Execution{
		ID:           uuid.NewString(),
		JobID:        jobID,
		ExecutedAt:   now,
		Status:       status,
		ErrorMessage: errorMessage,
		RetryAttempt: attempt,
		CreatedAt:    now,
	}
}
