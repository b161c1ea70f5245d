package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// Message is one rendered reminder email.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	HTML        string
	Text        string
}

// Transport submits messages to a mail relay. It is built once per process.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Verify(ctx context.Context) error
	Close() error
}

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPTransport sends through an SMTP relay. Port 465 uses implicit TLS,
// other ports negotiate STARTTLS when offered.
type SMTPTransport struct {
	dialer *mail.Dialer
}

var _ Transport = (*SMTPTransport)(nil)

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	d.RetryFailure = false
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &SMTPTransport{dialer: d}
}

// Send opens a session, submits msg and closes the session.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", msg.FromAddress, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// Verify dials and authenticates without sending.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc, err := t.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp verify %s:%d: %w", t.dialer.Host, t.dialer.Port, err)
	}
	return sc.Close()
}

// Close is a no-op: every Send owns its session.
func (t *SMTPTransport) Close() error {
	return nil
}

// LogTransport writes messages to the log instead of a relay. It stands in
// when no relay is configured, as in local development.
type LogTransport struct {
	Log *zap.Logger
}

func (t LogTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.Log.Info("reminder email (not sent, no relay configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}

func (t LogTransport) Verify(ctx context.Context) error { return nil }

func (t LogTransport) Close() error { return nil }
