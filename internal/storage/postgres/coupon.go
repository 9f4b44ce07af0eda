package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/bakeshop-api/internal/domain/coupon"
)

const (
	findCouponByCodeSQL = `SELECT id, code, description, discount_type, discount_value,
		minimum_order_amount, maximum_discount_amount, valid_from, valid_until,
		is_active, max_redemptions, times_redeemed
		FROM coupons WHERE code = UPPER($1)`

	incrementRedemptionsSQL = `UPDATE coupons SET times_redeemed = times_redeemed + 1
		WHERE code = UPPER($1)`

	upsertCouponSQL = `INSERT INTO coupons
		(code, description, discount_type, discount_value, minimum_order_amount,
		 maximum_discount_amount, valid_from, valid_until, is_active, max_redemptions)
		VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			minimum_order_amount = EXCLUDED.minimum_order_amount,
			maximum_discount_amount = EXCLUDED.maximum_discount_amount,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			is_active = EXCLUDED.is_active,
			max_redemptions = EXCLUDED.max_redemptions`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are stored uppercase; lookups normalize the parameter.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively.
// Returns coupon.ErrNotFound when no coupon exists for the code. Inactive
// coupons are returned as-is: the evaluator reports ErrDeactivated, which is
// distinct from an unknown code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementRedemptions atomically bumps the redemption counter for the code.
func (r *CouponRepository) IncrementRedemptions(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementRedemptionsSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing redemptions for coupon %q: %w", code, err)
	}
	return nil
}

// Upsert inserts or updates a coupon's discount rule by code. The redemption
// counter is never reset by an upsert.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinimumOrderAmount, c.MaximumDiscountAmount,
		c.ValidFrom, c.ValidUntil, c.IsActive, c.MaxRedemptions,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c              coupon.Coupon
		discountType   string
		maxDiscount    *decimal.Decimal
		validFrom      *time.Time
		validUntil     *time.Time
		maxRedemptions *int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue,
		&c.MinimumOrderAmount, &maxDiscount, &validFrom, &validUntil,
		&c.IsActive, &maxRedemptions, &c.TimesRedeemed,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.MaximumDiscountAmount = maxDiscount
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	if maxRedemptions != nil {
		n := int(*maxRedemptions)
		c.MaxRedemptions = &n
	}
	return c, err
}
