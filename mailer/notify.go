package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/scheduler"
)

// Notifier emails the operator when a job's delivery cycle fails. Alerts
// are best-effort: every error is logged and absorbed, and an empty
// admin address disables the notifier entirely.
type Notifier struct {
	sender     Sender
	adminEmail string
	systemFrom string
	logger     *zap.SugaredLogger
}

// NewNotifier creates a failure notifier. Returns nil when no admin
// address is configured; the scheduler treats a nil notifier as
// alerting disabled.
func NewNotifier(sender Sender, adminCfg config.AdminConfig, smtpCfg config.SMTPConfig, log *zap.SugaredLogger) *Notifier {
	if adminCfg.NotificationEmail == "" {
		return nil
	}

	systemFrom := smtpCfg.SystemFrom
	if systemFrom == "" {
		systemFrom = smtpCfg.Username
	}

	return &Notifier{
		sender:     sender,
		adminEmail: adminCfg.NotificationEmail,
		systemFrom: systemFrom,
		logger:     log,
	}
}

// NotifyFailure implements the scheduler's FailureNotifier contract.
func (n *Notifier) NotifyFailure(ctx context.Context, job *scheduler.Job, attempts int, deliveryErr error) {
	class := "TECHNICAL"
	remediation := "Check SMTP connectivity and provider status. The job will retry at its next occurrence."
	if errors.IsConfigurationError(deliveryErr) {
		class = "CONFIGURATION"
		remediation = "Fix the job definition (template, sender, recipients). Retrying without a fix will fail again."
	}

	subject := fmt.Sprintf("[ALERT] Email job %s failed (%s)", job.ID, class)
	body := n.buildBody(job, class, remediation, attempts, deliveryErr)

	if err := n.sender.Send(ctx, n.systemFrom, []string{n.adminEmail}, subject, body); err != nil {
		n.logger.Errorw("Failed to send failure alert",
			"job_id", job.ID,
			"admin_email", n.adminEmail,
			"error", err)
		return
	}

	n.logger.Infow("Failure alert sent",
		"job_id", job.ID,
		"classification", class)
}

func (n *Notifier) buildBody(job *scheduler.Job, class, remediation string, attempts int, deliveryErr error) string {
	templateName := "(none)"
	if job.Template != nil {
		templateName = job.Template.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A scheduled email job failed to deliver.\n\n")
	fmt.Fprintf(&b, "Job ID:         %s\n", job.ID)
	fmt.Fprintf(&b, "Classification: %s\n", class)
	fmt.Fprintf(&b, "Sender:         %s\n", job.SenderEmail)
	fmt.Fprintf(&b, "Recipients:     %s\n", job.Recipients)
	fmt.Fprintf(&b, "Template:       %s\n", templateName)
	fmt.Fprintf(&b, "Attempts:       %d\n", attempts)
	fmt.Fprintf(&b, "Error:          %v\n\n", deliveryErr)
	fmt.Fprintf(&b, "%s\n", remediation)
	return b.String()
}
