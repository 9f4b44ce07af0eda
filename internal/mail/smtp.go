// Package mail implements the outbound email sink over SMTP.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ovenlight/bakeshop-api/internal/domain/notify"
)

var _ notify.Mailer = (*SMTPMailer)(nil)

// SMTPConfig holds connection settings for the outbound SMTP relay.
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// SMTPMailer sends notification emails through a plain SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendStatusChange renders and sends the order status email.
func (m *SMTPMailer) SendStatusChange(ctx context.Context, msg notify.StatusChange) error {
	subject := fmt.Sprintf("Order %s is now %s", msg.Reference, strings.ToLower(msg.NewStatus))
	body := fmt.Sprintf(
		"Hello,\r\n\r\nYour order %s changed from %s to %s.\r\nTotal: %s\r\nDelivery: %s\r\n\r\nThank you for baking with us!\r\n",
		msg.Reference, msg.PreviousStatus, msg.NewStatus,
		msg.TotalAmount.StringFixed(2), msg.DeliveryLabel,
	)
	return m.send(ctx, msg.Recipient, subject, body)
}

// SendAdminAlert sends an operational alert. The text body is preferred;
// the HTML body is used when no text body is provided.
func (m *SMTPMailer) SendAdminAlert(ctx context.Context, msg notify.AdminAlert) error {
	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	return m.send(ctx, msg.Recipient, msg.Subject, body)
}

// send delivers a single message. The context deadline bounds the dial; the
// SMTP conversation itself is short and rides on the established connection.
func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	host, _, err := net.SplitHostPort(m.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "smtp addr")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	payload := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{to}, []byte(payload))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "send mail")
		}
		return nil
	}
}
