package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/bakeshop-api/internal/domain/audit"
	"github.com/ovenlight/bakeshop-api/internal/domain/coupon"
	"github.com/ovenlight/bakeshop-api/internal/domain/notify"
	"github.com/ovenlight/bakeshop-api/internal/domain/product"
)

// auditEntity is the entity label used for order audit entries.
const auditEntity = "order"

// StatusNotifier receives status-change notifications. Implementations must
// not block; the service calls it on the request path after the status write.
type StatusNotifier interface {
	StatusChanged(msg notify.StatusChange)
}

// StatusUpdate is the result of an UpdateStatus call.
type StatusUpdate struct {
	Order          *Order
	PreviousStatus Status
	Changed        bool
}

// Service implements order placement and the status/details update workflow.
type Service struct {
	orders   Repository
	products product.Repository
	coupons  coupon.Validator
	redeems  coupon.Repository
	auditor  audit.Recorder
	notifier StatusNotifier
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	orders Repository,
	products product.Repository,
	coupons coupon.Validator,
	redeems coupon.Repository,
	auditor audit.Recorder,
	notifier StatusNotifier,
) *Service {
	return &Service{
		orders:   orders,
		products: products,
		coupons:  coupons,
		redeems:  redeems,
		auditor:  auditor,
		notifier: notifier,
		now:      time.Now,
	}
}

// GetByReference returns the order with the given reference.
func (s *Service) GetByReference(ctx context.Context, reference string) (*Order, error) {
	return s.orders.GetByReference(ctx, reference)
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	return s.orders.List(ctx, f)
}

// UpdateStatus applies a status transition to the order identified by
// reference. Setting the status it already has is a no-op with Changed=false,
// which makes gateway callback redelivery safe to replay. A real transition
// persists the new status, then appends one audit entry, then dispatches a
// customer notification unless the new status is PENDING.
//
// The status write and the audit write are separate statements: if the audit
// store is unreachable the status change still takes effect.
func (s *Service) UpdateStatus(ctx context.Context, reference string, newStatus Status, actor string, extra map[string]string) (*StatusUpdate, error) {
	if !newStatus.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", newStatus)
	}

	o, err := s.orders.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	previous := o.Status
	if previous == newStatus {
		return &StatusUpdate{Order: o, PreviousStatus: previous, Changed: false}, nil
	}

	updatedAt := s.now()
	if err := s.orders.UpdateStatus(ctx, reference, newStatus, updatedAt); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = newStatus
	o.UpdatedAt = updatedAt

	oldSnap := []audit.Field{{Key: "status", Value: string(previous)}}
	newSnap := []audit.Field{{Key: "status", Value: string(newStatus)}}
	for k, v := range extra {
		newSnap = append(newSnap, audit.Field{Key: k, Value: v})
	}
	s.auditor.Record(ctx, auditEntity, o.ID, "status_changed",
		audit.Snapshot(oldSnap...), audit.Snapshot(newSnap...), actor)

	if newStatus != StatusPending && o.CustomerEmail != "" {
		s.notifier.StatusChanged(notify.StatusChange{
			Recipient:      o.CustomerEmail,
			Reference:      o.Reference,
			PreviousStatus: string(previous),
			NewStatus:      string(newStatus),
			TotalAmount:    o.Total,
			DeliveryLabel:  o.DeliveryLabel,
		})
	}

	return &StatusUpdate{Order: o, PreviousStatus: previous, Changed: true}, nil
}

// gatewayStatuses maps payment gateway callback statuses to order statuses.
var gatewayStatuses = map[string]Status{
	"SUCCESS":  StatusPaid,
	"FAILED":   StatusFailed,
	"CANCELED": StatusCancelled,
}

// ApplyGatewayCallback maps a payment gateway outcome onto the order status.
// Unrecognized gateway statuses are rejected with ErrInvalidStatus rather
// than applied.
func (s *Service) ApplyGatewayCallback(ctx context.Context, reference, gatewayStatus string) (*StatusUpdate, error) {
	status, ok := gatewayStatuses[gatewayStatus]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidStatus, "gateway status %q", gatewayStatus)
	}
	return s.UpdateStatus(ctx, reference, status, "gateway", map[string]string{
		"gateway_status": gatewayStatus,
	})
}

// DetailsPatch carries optional field updates for an order. Nil fields are
// left untouched.
type DetailsPatch struct {
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	DeliveryLabel *string
	Total         *decimal.Decimal
}

// UpdateDetails applies a field-level patch to the order. It compares each
// field's old and new value, persists only when something actually changed,
// and writes the full old/new diff as a single audit entry. An empty diff
// writes nothing at all.
func (s *Service) UpdateDetails(ctx context.Context, reference string, patch DetailsPatch, actor string) (*Order, error) {
	o, err := s.orders.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	var oldSnap, newSnap []audit.Field
	diff := func(key, oldVal, newVal string) {
		oldSnap = append(oldSnap, audit.Field{Key: key, Value: oldVal})
		newSnap = append(newSnap, audit.Field{Key: key, Value: newVal})
	}

	if patch.CustomerName != nil && *patch.CustomerName != o.CustomerName {
		diff("customer_name", o.CustomerName, *patch.CustomerName)
		o.CustomerName = *patch.CustomerName
	}
	if patch.CustomerEmail != nil && *patch.CustomerEmail != o.CustomerEmail {
		diff("customer_email", o.CustomerEmail, *patch.CustomerEmail)
		o.CustomerEmail = *patch.CustomerEmail
	}
	if patch.CustomerPhone != nil && *patch.CustomerPhone != o.CustomerPhone {
		diff("customer_phone", o.CustomerPhone, *patch.CustomerPhone)
		o.CustomerPhone = *patch.CustomerPhone
	}
	if patch.DeliveryLabel != nil && *patch.DeliveryLabel != o.DeliveryLabel {
		diff("delivery_label", o.DeliveryLabel, *patch.DeliveryLabel)
		o.DeliveryLabel = *patch.DeliveryLabel
	}
	if patch.Total != nil && !patch.Total.Equal(o.Total) {
		diff("total", o.Total.String(), patch.Total.String())
		o.Total = *patch.Total
	}

	if len(oldSnap) == 0 {
		return o, nil
	}

	o.UpdatedAt = s.now()
	if err := s.orders.UpdateDetails(ctx, reference, o); err != nil {
		return nil, errors.Wrap(err, "update order details")
	}

	s.auditor.Record(ctx, auditEntity, o.ID, "details_changed",
		audit.Snapshot(oldSnap...), audit.Snapshot(newSnap...), actor)

	return o, nil
}

// CheckoutItem is a requested line item at checkout.
type CheckoutItem struct {
	ProductID       string
	Quantity        int
	SelectedOptions map[string]string
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	DeliveryLabel string
	Items         []CheckoutItem
	CouponCode    string
	Metadata      map[string]string
	UserID        *string
}

// CheckoutResult holds the outcome of a successfully placed order.
type CheckoutResult struct {
	Order          *Order
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Checkout validates line items against the catalog, prices the cart with an
// optional coupon, and persists the order as PENDING. The coupon discount is
// applied to the subtotal and the final total is floored at zero; coupon
// redemptions are counted only after the order is actually stored.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		items[i] = Item{
			Name:            p.Name,
			Quantity:        item.Quantity,
			UnitPrice:       p.Price,
			SelectedOptions: item.SelectedOptions,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discountAmount := decimal.Zero
	if req.CouponCode != "" {
		res, err := s.coupons.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		discountAmount = res.DiscountAmount
	}

	// The discount itself may exceed the subtotal; the stored total is
	// floored at zero here.
	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	total = total.Round(2)

	now := s.now()
	o := &Order{
		ID:            uuid.New().String(),
		Reference:     newReference(now),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		DeliveryLabel: req.DeliveryLabel,
		Items:         items,
		Total:         total,
		Status:        StatusPending,
		Metadata:      req.Metadata,
		UserID:        req.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.CouponCode != "" {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, 1)
		}
		o.Metadata["coupon_code"] = req.CouponCode
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if req.CouponCode != "" {
		if err := s.redeems.IncrementRedemptions(ctx, req.CouponCode); err != nil {
			return nil, errors.Wrap(err, "increment coupon redemptions")
		}
	}

	s.auditor.Record(ctx, auditEntity, o.ID, "order_created",
		nil,
		audit.Snapshot(
			audit.Field{Key: "reference", Value: o.Reference},
			audit.Field{Key: "status", Value: string(o.Status)},
			audit.Field{Key: "total", Value: o.Total.String()},
		),
		"customer")

	return &CheckoutResult{Order: o, Subtotal: subtotal.Round(2), DiscountAmount: discountAmount}, nil
}

// newReference builds a human-readable order reference like BK-20250901-3f2a9c.
func newReference(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("BK-%s-%s", now.UTC().Format("20060102"), hex.EncodeToString(b[:]))
}
