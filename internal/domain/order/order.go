package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	// StatusPending is the initial state set at checkout.
	StatusPending Status = "PENDING"
	// StatusPaid is set when the payment gateway confirms the transaction.
	StatusPaid Status = "PAID"
	// StatusInProgress is set when the bakery starts preparing the order.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted is set when the order has been handed over for delivery.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed is set when the payment failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled is set when the order was cancelled.
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no order exists for the given reference.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned when a status value is not recognized.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrEmptyItems is returned when a checkout request carries no line items.
	ErrEmptyItems = errors.New("items required")
)

// Item is a single line item in an order. SelectedOptions carries free-form
// per-item choices (filling, size, inscription) as label/value pairs.
type Item struct {
	Name            string            `json:"name"`
	Quantity        int               `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unitPrice"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

// Order is the aggregate root for a customer purchase.
type Order struct {
	ID            string
	Reference     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	DeliveryLabel string
	Items         []Item
	Total         decimal.Decimal
	Status        Status
	Metadata      map[string]string
	UserID        *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status Status // zero value means all statuses
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByReference(ctx context.Context, reference string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, reference string, status Status, updatedAt time.Time) error
	UpdateDetails(ctx context.Context, reference string, o *Order) error
}
