package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the cart total, optionally
	// capped at MaximumDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
	// DiscountFixed subtracts a fixed monetary amount. The amount is not
	// clamped to the cart total; callers floor the final total at zero.
	DiscountFixed DiscountType = "FIXED"
)

// Sentinel errors, one per validation rule. The rules run in a fixed order
// and short-circuit on the first failure.
var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotYetActive is returned when the validity window has not opened yet.
	ErrNotYetActive = errors.New("coupon not yet active")
	// ErrExpired is returned when the validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrDeactivated is returned when the coupon is switched off.
	ErrDeactivated = errors.New("coupon deactivated")
	// ErrBelowMinimum is returned when the cart total is under the coupon's
	// minimum order amount.
	ErrBelowMinimum = errors.New("order total below coupon minimum")
	// ErrExhausted is returned when the redemption cap has been reached.
	ErrExhausted = errors.New("coupon redemption limit reached")
)

// Coupon holds a discount rule and its eligibility constraints.
type Coupon struct {
	ID                    string
	Code                  string
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    decimal.Decimal
	MaximumDiscountAmount *decimal.Decimal
	ValidFrom             *time.Time
	ValidUntil            *time.Time
	IsActive              bool
	MaxRedemptions        *int
	TimesRedeemed         int
}

// Repository provides lookup and redemption counting for coupons.
// FindByCode matches codes case-insensitively and returns ErrNotFound when
// no coupon exists for the code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementRedemptions(ctx context.Context, code string) error
}
