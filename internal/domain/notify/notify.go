// Package notify dispatches customer and admin emails as detached,
// best-effort background tasks. Delivery is at-most-once with no retry; a
// failed send is logged and never affects the operation that triggered it.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

// StatusChange carries the data rendered into a status-change email.
type StatusChange struct {
	Recipient      string
	Reference      string
	PreviousStatus string
	NewStatus      string
	TotalAmount    decimal.Decimal
	DeliveryLabel  string
}

// AdminAlert carries the data for an operational alert email.
type AdminAlert struct {
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// Mailer is the outbound email sink. Implementations are treated as opaque
// collaborators; the dispatcher only observes their errors for logging.
type Mailer interface {
	SendStatusChange(ctx context.Context, msg StatusChange) error
	SendAdminAlert(ctx context.Context, msg AdminAlert) error
}
