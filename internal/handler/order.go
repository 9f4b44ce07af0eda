package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/bakeshop-api/internal/domain/order"
)

type checkoutItemRequest struct {
	ProductID       string            `json:"productId"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

type checkoutRequest struct {
	CustomerName  string                `json:"customerName"`
	CustomerEmail string                `json:"customerEmail"`
	CustomerPhone string                `json:"customerPhone"`
	DeliveryLabel string                `json:"deliveryLabel"`
	Items         []checkoutItemRequest `json:"items"`
	CouponCode    string                `json:"couponCode,omitempty"`
	Metadata      map[string]string     `json:"metadata,omitempty"`
}

type orderItemResponse struct {
	Name            string            `json:"name"`
	Quantity        int               `json:"quantity"`
	UnitPrice       float64           `json:"unitPrice"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

type orderResponse struct {
	Reference     string              `json:"reference"`
	CustomerName  string              `json:"customerName"`
	CustomerEmail string              `json:"customerEmail"`
	CustomerPhone string              `json:"customerPhone"`
	DeliveryLabel string              `json:"deliveryLabel"`
	Items         []orderItemResponse `json:"items"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type checkoutResponse struct {
	Order          orderResponse `json:"order"`
	Subtotal       float64       `json:"subtotal"`
	DiscountAmount float64       `json:"discountAmount"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.InexactFloat64(),
			SelectedOptions: item.SelectedOptions,
		}
	}
	return orderResponse{
		Reference:     o.Reference,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		DeliveryLabel: o.DeliveryLabel,
		Items:         items,
		Total:         o.Total.InexactFloat64(),
		Status:        string(o.Status),
		Metadata:      o.Metadata,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// Checkout places a new order in PENDING state.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CheckoutItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			SelectedOptions: item.SelectedOptions,
		}
	}

	res, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		DeliveryLabel: req.DeliveryLabel,
		Items:         items,
		CouponCode:    req.CouponCode,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, checkoutResponse{
		Order:          toOrderResponse(res.Order),
		Subtotal:       res.Subtotal.InexactFloat64(),
		DiscountAmount: res.DiscountAmount.InexactFloat64(),
	})
}

func (h *Handler) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		respondError(w, r, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &pnfErr):
		respondError(w, r, http.StatusUnprocessableEntity, pnfErr.Error())
	default:
		// Coupon failures at checkout reuse the coupon status mapping.
		h.respondCouponError(w, r, err)
	}
}

type paymentCallbackRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type statusUpdateResponse struct {
	Reference      string `json:"reference"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	Changed        bool   `json:"changed"`
}

// PaymentCallback ingests a payment gateway outcome for an order. Redelivered
// callbacks are safe: an already-applied status reports changed=false.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Reference == "" || req.Status == "" {
		respondError(w, r, http.StatusBadRequest, "reference and status are required")
		return
	}

	res, err := h.orders.ApplyGatewayCallback(r.Context(), req.Reference, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidStatus):
			respondError(w, r, http.StatusBadRequest, "unrecognized gateway status")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, statusUpdateResponse{
		Reference:      res.Order.Reference,
		PreviousStatus: string(res.PreviousStatus),
		Status:         string(res.Order.Status),
		Changed:        res.Changed,
	})
}

// AdminListOrders lists orders newest first with optional ?status= filter
// and limit/offset paging.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	f := order.ListFilter{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			respondError(w, r, http.StatusBadRequest, "unknown status filter")
			return
		}
		f.Status = status
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"orders": out})
}

// AdminGetOrder returns a single order by reference.
func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

type auditEntryResponse struct {
	Action       string          `json:"action"`
	OldValue     json.RawMessage `json:"oldValue,omitempty"`
	NewValue     json.RawMessage `json:"newValue,omitempty"`
	OperatorCode string          `json:"operatorCode"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// AdminOrderAudit returns the audit trail of one order, oldest entry first.
func (h *Handler) AdminOrderAudit(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	entries, err := h.auditTrail.ListByEntity(r.Context(), "order", o.ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = auditEntryResponse{
			Action:       e.Action,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			OperatorCode: e.OperatorCode,
			CreatedAt:    e.CreatedAt,
		}
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"entries": out})
}

type updateStatusRequest struct {
	Status string            `json:"status"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// AdminUpdateOrderStatus applies a status transition on behalf of a
// back-office operator. The operator code is taken from the API key.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.orders.UpdateStatus(r.Context(),
		chi.URLParam(r, "reference"), order.Status(req.Status),
		OperatorFromContext(r.Context()), req.Extra)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidStatus):
			respondError(w, r, http.StatusBadRequest, "unknown order status")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, statusUpdateResponse{
		Reference:      res.Order.Reference,
		PreviousStatus: string(res.PreviousStatus),
		Status:         string(res.Order.Status),
		Changed:        res.Changed,
	})
}

type updateDetailsRequest struct {
	CustomerName  *string          `json:"customerName,omitempty"`
	CustomerEmail *string          `json:"customerEmail,omitempty"`
	CustomerPhone *string          `json:"customerPhone,omitempty"`
	DeliveryLabel *string          `json:"deliveryLabel,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
}

// AdminUpdateOrderDetails applies a field-level patch; omitted fields stay
// untouched and an unchanged patch is a no-op.
func (h *Handler) AdminUpdateOrderDetails(w http.ResponseWriter, r *http.Request) {
	var req updateDetailsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Total != nil && req.Total.IsNegative() {
		respondError(w, r, http.StatusBadRequest, "total must not be negative")
		return
	}

	o, err := h.orders.UpdateDetails(r.Context(),
		chi.URLParam(r, "reference"),
		order.DetailsPatch{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
			DeliveryLabel: req.DeliveryLabel,
			Total:         req.Total,
		},
		OperatorFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
