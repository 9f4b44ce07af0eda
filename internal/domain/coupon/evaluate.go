package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate checks the coupon against the cart total at the given time and
// returns the discount amount. Validation order: validity window, active
// flag, minimum order amount, redemption cap. Each failure maps to its own
// sentinel error.
//
// A FIXED discount is returned as-is even when it exceeds the cart total;
// callers that need a non-negative final total must clamp downstream.
func Evaluate(c *Coupon, cartTotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return decimal.Zero, ErrNotYetActive
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return decimal.Zero, ErrExpired
	}
	if !c.IsActive {
		return decimal.Zero, ErrDeactivated
	}
	if cartTotal.LessThan(c.MinimumOrderAmount) {
		return decimal.Zero, ErrBelowMinimum
	}
	if c.MaxRedemptions != nil && c.TimesRedeemed >= *c.MaxRedemptions {
		return decimal.Zero, ErrExhausted
	}

	switch c.DiscountType {
	case DiscountPercent:
		amount := cartTotal.Mul(c.DiscountValue).Div(hundred)
		if c.MaximumDiscountAmount != nil && amount.GreaterThan(*c.MaximumDiscountAmount) {
			amount = *c.MaximumDiscountAmount
		}
		return amount.Round(2), nil
	case DiscountFixed:
		return c.DiscountValue.Round(2), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}
