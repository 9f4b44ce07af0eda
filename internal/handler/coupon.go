package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/bakeshop-api/internal/domain/coupon"
)

// couponValidator is the slice of the coupon service the handler needs.
type couponValidator interface {
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*coupon.Result, error)
}

type validateCouponRequest struct {
	Code string `json:"code"`
	// Both spellings are accepted; clients historically sent either.
	Total     decimal.Decimal `json:"total"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

type couponResponse struct {
	Code               string  `json:"code"`
	Description        string  `json:"description"`
	DiscountType       string  `json:"discountType"`
	DiscountValue      float64 `json:"discountValue"`
	MinimumOrderAmount float64 `json:"minimumOrderAmount"`
}

type validateCouponResponse struct {
	Coupon         couponResponse `json:"coupon"`
	DiscountAmount float64        `json:"discountAmount"`
}

// ValidateCoupon checks a coupon code against a cart total without redeeming
// it. Unknown codes map to 404; every business-rule failure maps to 400 with
// a single-field error message.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	total := req.Total
	if total.IsZero() {
		total = req.CartTotal
	}

	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}
	if !total.IsPositive() {
		respondError(w, r, http.StatusBadRequest, "total must be a positive number")
		return
	}

	res, err := h.coupons.Validate(r.Context(), req.Code, total)
	if err != nil {
		h.respondCouponError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, validateCouponResponse{
		Coupon: couponResponse{
			Code:               res.Coupon.Code,
			Description:        res.Coupon.Description,
			DiscountType:       string(res.Coupon.DiscountType),
			DiscountValue:      res.Coupon.DiscountValue.InexactFloat64(),
			MinimumOrderAmount: res.Coupon.MinimumOrderAmount.InexactFloat64(),
		},
		DiscountAmount: res.DiscountAmount.InexactFloat64(),
	})
}

func (h *Handler) respondCouponError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "coupon not found")
	case errors.Is(err, coupon.ErrNotYetActive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrDeactivated),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrExhausted):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		respondInternal(w, r, err)
	}
}
