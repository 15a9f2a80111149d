package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
)

type capturingSender struct {
	from    string
	to      []string
	subject string
	body    string
	err     error
	sends   int
}

func (s *capturingSender) Send(ctx context.Context, from string, to []string, subject, body string) error {
	s.sends++
	s.from = from
	s.to = to
	s.subject = subject
	s.body = body
	return s.err
}

func newTestNotifier(sender Sender) *Notifier {
	return NewNotifier(sender,
		config.AdminConfig{NotificationEmail: "admin@example.com"},
		config.SMTPConfig{SystemFrom: "courier@example.com"},
		zap.NewNop().Sugar())
}

func TestNewNotifierDisabledWithoutAdminEmail(t *testing.T) {
	n := NewNotifier(&capturingSender{}, config.AdminConfig{}, config.SMTPConfig{}, zap.NewNop().Sugar())
	assert.Nil(t, n)
}

func TestNotifyFailureTechnical(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(sender)

	job := testJob()
	deliveryErr := errors.Wrapf(errors.ErrDeliveryFailed, "all 3 delivery attempts failed")
	n.NotifyFailure(context.Background(), job, 3, deliveryErr)

	require.Equal(t, 1, sender.sends)
	assert.Equal(t, "courier@example.com", sender.from)
	assert.Equal(t, []string{"admin@example.com"}, sender.to)
	assert.Contains(t, sender.subject, "[ALERT]")
	assert.Contains(t, sender.subject, "TECHNICAL")
	assert.Contains(t, sender.body, job.ID)
	assert.Contains(t, sender.body, "welcome")
	assert.Contains(t, sender.body, "retry at its next occurrence")
}

func TestNotifyFailureConfiguration(t *testing.T) {
	sender := &capturingSender{}
	n := newTestNotifier(sender)

	deliveryErr := errors.Wrapf(errors.ErrJobNotSendable, "job has no template")
	n.NotifyFailure(context.Background(), testJob(), 1, deliveryErr)

	require.Equal(t, 1, sender.sends)
	assert.Contains(t, sender.subject, "CONFIGURATION")
	assert.Contains(t, sender.body, "Fix the job definition")
}

func TestNotifyFailureFallsBackToUsernameFrom(t *testing.T) {
	n := NewNotifier(&capturingSender{},
		config.AdminConfig{NotificationEmail: "admin@example.com"},
		config.SMTPConfig{Username: "smtp-user@example.com"},
		zap.NewNop().Sugar())
	require.NotNil(t, n)
	assert.Equal(t, "smtp-user@example.com", n.systemFrom)
}

func TestNotifyFailureAbsorbsSendError(t *testing.T) {
	sender := &capturingSender{err: errors.New("smtp down")}
	n := newTestNotifier(sender)

	// Must not panic or propagate; alerting is best-effort.
	n.NotifyFailure(context.Background(), testJob(), 3, errors.New("boom"))
	assert.Equal(t, 1, sender.sends)
}
