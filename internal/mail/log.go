package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovenlight/bakeshop-api/internal/domain/notify"
)

var _ notify.Mailer = (*LogMailer)(nil)

// LogMailer writes notifications to the log instead of sending them. Used
// when no SMTP relay is configured, typically in local development.
type LogMailer struct {
	lg *zap.Logger
}

func NewLogMailer(lg *zap.Logger) *LogMailer {
	return &LogMailer{lg: lg}
}

func (m *LogMailer) SendStatusChange(_ context.Context, msg notify.StatusChange) error {
	m.lg.Info("status change email (not sent, no SMTP relay)",
		zap.String("recipient", msg.Recipient),
		zap.String("reference", msg.Reference),
		zap.String("new_status", msg.NewStatus),
	)
	return nil
}

func (m *LogMailer) SendAdminAlert(_ context.Context, msg notify.AdminAlert) error {
	m.lg.Info("admin alert email (not sent, no SMTP relay)",
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
	)
	return nil
}
