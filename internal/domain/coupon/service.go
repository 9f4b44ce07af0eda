package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against a cart total and returns the
// matched coupon together with the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*Result, error)
}

// Result holds the outcome of a successful validation.
type Result struct {
	Coupon         *Coupon
	DiscountAmount decimal.Decimal
}

// Service implements Validator by looking up coupons from a Repository and
// evaluating them with Evaluate.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Validate looks up the coupon for the given code and evaluates it against
// the cart total. It has no side effects: the redemption counter is only
// incremented by checkout, after the order is actually placed.
func (s *Service) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*Result, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	amount, err := Evaluate(c, cartTotal, s.now())
	if err != nil {
		return nil, err
	}

	return &Result{Coupon: c, DiscountAmount: amount}, nil
}
