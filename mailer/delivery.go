package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/scheduler"
)

// Delivery runs one job's delivery cycle: validate the job is sendable,
// then attempt delivery up to MaxAttempts times with a fixed pause
// between attempts. Messages go out per recipient, and an attempt where
// at least one recipient was reached counts as success.
type Delivery struct {
	sender      Sender
	maxAttempts int
	delay       time.Duration
	logger      *zap.SugaredLogger

	// sleep is swappable in tests
	sleep func(time.Duration)
}

// NewDelivery creates a delivery cycle runner.
func NewDelivery(sender Sender, cfg config.RetryConfig, log *zap.SugaredLogger) *Delivery {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	delay := time.Duration(cfg.DelaySeconds) * time.Second
	if delay < 0 {
		delay = 0
	}

	return &Delivery{
		sender:      sender,
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      log,
		sleep:       time.Sleep,
	}
}

// Deliver implements the scheduler's Deliverer contract. The returned
// attempt count is what the execution record carries: 1 for a job that
// was never sendable, the attempt number that succeeded, or MaxAttempts
// when every attempt failed.
func (d *Delivery) Deliver(ctx context.Context, job *scheduler.Job) (int, error) {
	recipients, err := d.validate(job)
	if err != nil {
		// Not a transport problem; retrying cannot fix a misconfigured job.
		return 1, err
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		sent, attemptErr := d.sendAll(ctx, job, recipients)
		if sent > 0 {
			if sent < len(recipients) {
				d.logger.Warnw("Partial delivery",
					"job_id", job.ID,
					"sent", sent,
					"total", len(recipients),
					"last_error", attemptErr)
			}
			return attempt, nil
		}

		lastErr = attemptErr
		d.logger.Warnw("Delivery attempt failed",
			"job_id", job.ID,
			"attempt", attempt,
			"max_attempts", d.maxAttempts,
			"error", attemptErr)

		if errors.Is(attemptErr, errors.ErrJobNotSendable) {
			return attempt, attemptErr
		}
		if ctx.Err() != nil {
			return attempt, errors.Wrap(ctx.Err(), "delivery aborted")
		}
		if attempt < d.maxAttempts {
			d.sleep(d.delay)
		}
	}

	return d.maxAttempts, errors.Wrapf(errors.ErrDeliveryFailed,
		"all %d delivery attempts failed: %v", d.maxAttempts, lastErr)
}

// validate checks the sendability preconditions and parses the
// recipient list. Any failure here is a configuration error.
func (d *Delivery) validate(job *scheduler.Job) ([]string, error) {
	if job.Template == nil {
		return nil, errors.Wrapf(errors.ErrJobNotSendable, "job %s has no template", job.ID)
	}
	if job.Template.Subject == "" {
		return nil, errors.Wrapf(errors.ErrJobNotSendable, "job %s template %s has no subject", job.ID, job.Template.ID)
	}
	if job.Template.Body == "" {
		return nil, errors.Wrapf(errors.ErrJobNotSendable, "job %s template %s has no body", job.ID, job.Template.ID)
	}
	if job.SenderEmail == "" {
		return nil, errors.Wrapf(errors.ErrJobNotSendable, "job %s has no sender address", job.ID)
	}

	recipients, err := ParseRecipients(job.Recipients)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrJobNotSendable, "job %s: %v", job.ID, err)
	}
	return recipients, nil
}

// sendAll sends one message per recipient so a single bad address
// cannot block the rest. Returns the number of successful sends and the
// last error seen.
func (d *Delivery) sendAll(ctx context.Context, job *scheduler.Job, recipients []string) (int, error) {
	var sent int
	var lastErr error

	for _, recipient := range recipients {
		err := d.sender.Send(ctx, job.SenderEmail, []string{recipient}, job.Template.Subject, job.Template.Body)
		if err != nil {
			lastErr = err
			d.logger.Warnw("Send to recipient failed",
				"job_id", job.ID,
				"recipient", recipient,
				"error", err)
			continue
		}
		sent++
	}

	return sent, lastErr
}
