package mailer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gomail "gopkg.in/gomail.v2"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
)

// SMTPSender sends mail through a single SMTP account, pacing outbound
// sends with a rate limiter so a large recipient fan-out cannot trip
// provider throttling.
type SMTPSender struct {
	dialer  *gomail.Dialer
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewSMTPSender creates a sender from SMTP configuration.
func NewSMTPSender(cfg config.SMTPConfig, log *zap.SugaredLogger) *SMTPSender {
	perMinute := cfg.MaxSendsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		logger:  log,
	}
}

// Send delivers one message to all recipients in a single SMTP
// transaction. Waits on the rate limiter first; a context cancelled
// during the wait aborts without dialing.
func (s *SMTPSender) Send(ctx context.Context, from string, to []string, subject, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait aborted")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "smtp send to %d recipients failed", len(to))
	}

	s.logger.Debugw("Email sent",
		"from", from,
		"recipients", len(to),
		"subject", subject)
	return nil
}
