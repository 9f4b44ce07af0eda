package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenlight/bakeshop-api/internal/domain/audit"
	"github.com/ovenlight/bakeshop-api/internal/domain/auth"
	"github.com/ovenlight/bakeshop-api/internal/domain/coupon"
	"github.com/ovenlight/bakeshop-api/internal/domain/notify"
	"github.com/ovenlight/bakeshop-api/internal/domain/order"
	"github.com/ovenlight/bakeshop-api/internal/domain/product"
	"github.com/ovenlight/bakeshop-api/internal/newsletter"
)

// --- in-memory fakes ---

type fakeProducts struct {
	byID       map[string]product.Product
	categories []product.Category
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) ListByCategory(_ context.Context, slug string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range f.byID {
		if p.Category.Slug == slug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListCategories(context.Context) ([]product.Category, error) {
	return f.categories, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	byRef map[string]*order.Order
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.byRef[o.Reference] = &cp
	return nil
}

func (f *fakeOrders) GetByReference(_ context.Context, reference string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byRef[reference]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) List(_ context.Context, fl order.ListFilter) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for _, o := range f.byRef {
		if fl.Status != "" && o.Status != fl.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, reference string, status order.Status, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byRef[reference]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	return nil
}

func (f *fakeOrders) UpdateDetails(_ context.Context, reference string, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byRef[reference]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	f.byRef[reference] = &cp
	return nil
}

type fakeCoupons struct {
	mu       sync.Mutex
	byCode   map[string]*coupon.Coupon
	redeemed map[string]int
}

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) IncrementRedemptions(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemed[strings.ToUpper(code)]++
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memAudit) Append(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) ListByEntity(_ context.Context, entity, entityID string) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for _, e := range m.entries {
		if e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) Record(ctx context.Context, entity, entityID, action string, oldValue, newValue []byte, operatorCode string) {
	_ = m.Append(ctx, audit.Entry{
		Entity:       entity,
		EntityID:     entityID,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     newValue,
		OperatorCode: operatorCode,
	})
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(notify.StatusChange) {}

type fakeKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (f *fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := f.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return info, nil
}

type fakeSubscribers struct {
	mu     sync.Mutex
	emails []string
}

func (f *fakeSubscribers) Subscribe(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return nil
}

// --- test harness ---

const testAPIKey = "bk_test_key"

type env struct {
	handler     http.Handler
	orders      *fakeOrders
	coupons     *fakeCoupons
	audit       *memAudit
	subscribers *fakeSubscribers
}

func newEnv(t *testing.T) *env {
	t.Helper()

	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	products := &fakeProducts{
		byID: map[string]product.Product{
			"p1": {
				ID:    "p1",
				Name:  "Banitsa",
				Price: price("3.50"),
				Category: product.Category{
					ID: "c1", Slug: "pastry", Name: "Pastry", Position: 1,
				},
				Image: product.Image{Thumbnail: "images/banitsa-thumb.jpg", Desktop: "images/banitsa.jpg"},
			},
			"p2": {
				ID:    "p2",
				Name:  "Kozunak",
				Price: price("12.00"),
				Category: product.Category{
					ID: "c2", Slug: "bread", Name: "Bread", Position: 2,
				},
				Image: product.Image{Thumbnail: "images/kozunak-thumb.jpg", Desktop: "images/kozunak.jpg"},
			},
		},
		categories: []product.Category{
			{ID: "c1", Slug: "pastry", Name: "Pastry", Position: 1},
			{ID: "c2", Slug: "bread", Name: "Bread", Position: 2},
		},
	}

	ten := price("10")
	cap5 := price("5.00")
	coupons := &fakeCoupons{
		byCode: map[string]*coupon.Coupon{
			"SAVE10": {
				ID: "cp1", Code: "SAVE10",
				Description:           "10% off",
				DiscountType:          coupon.DiscountPercent,
				DiscountValue:         ten,
				MinimumOrderAmount:    ten,
				MaximumDiscountAmount: &cap5,
				IsActive:              true,
			},
		},
		redeemed: make(map[string]int),
	}

	orders := &fakeOrders{byRef: make(map[string]*order.Order)}
	auditTrail := &memAudit{}

	couponSvc := coupon.NewService(coupons)
	orderSvc := order.NewService(orders, products, couponSvc, coupons, auditTrail, nopNotifier{})

	subscribers := &fakeSubscribers{}
	news := newsletter.NewService(subscribers, newsletter.NewMemoryCounterStore(time.Hour), 3, time.Hour)

	keys := &fakeKeys{byHash: make(map[string]*auth.APIKeyInfo)}
	security := NewSecurity(keys, "pepper")
	hash := security.HashKey(testAPIKey)
	keys.byHash[hash] = &auth.APIKeyInfo{ID: "k1", KeyHash: hash, Name: "mira"}

	h := New(
		Config{ImageBaseURL: "https://cdn.example.com"},
		products, orderSvc, couponSvc, auditTrail, news, security,
	)

	return &env{
		handler:     h.Routes(),
		orders:      orders,
		coupons:     coupons,
		audit:       auditTrail,
		subscribers: subscribers,
	}
}

func (e *env) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *env) placeOrder(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/orders", `{
		"customerName": "Mira",
		"customerEmail": "mira@example.com",
		"items": [{"productId": "p1", "quantity": 2}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		Order struct {
			Reference string `json:"reference"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Order.Reference)
	return res.Order.Reference
}

// --- storefront ---

func TestListProducts(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Banitsa")
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/images/banitsa.jpg")
}

func TestGetProduct_NotFound(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCategoryProducts(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/categories/bread/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Kozunak")
	assert.NotContains(t, w.Body.String(), "Banitsa")
}

func TestValidateCoupon(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/coupon/validate", `{"code": "SAVE10", "total": "80"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res validateCouponResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	// 10% of 80 is 8, capped at 5.
	assert.Equal(t, 5.0, res.DiscountAmount)
	assert.Equal(t, "SAVE10", res.Coupon.Code)
}

func TestValidateCoupon_Unknown(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/coupon/validate", `{"code": "NOPE", "total": "80"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/coupon/validate", `{"code": "SAVE10", "total": "4"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "minimum")
}

func TestValidateCoupon_MissingCode(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/coupon/validate", `{"total": "80"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/orders", `{
		"customerName": "Mira",
		"customerEmail": "mira@example.com",
		"items": [
			{"productId": "p1", "quantity": 2},
			{"productId": "p2", "quantity": 1, "selectedOptions": {"slicing": "sliced"}}
		],
		"couponCode": "SAVE10"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 19.0, res.Subtotal)
	assert.Equal(t, 1.9, res.DiscountAmount)
	assert.Equal(t, 17.1, res.Order.Total)
	assert.Equal(t, "PENDING", res.Order.Status)
	assert.Equal(t, 1, e.coupons.redeemed["SAVE10"])
}

func TestCheckout_UnknownProduct(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "ghost", "quantity": 1}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckout_EmptyItems(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/orders", `{"items": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_MalformedBody(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/orders", `{"items": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed")
}

func TestPaymentCallback(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPost, "/api/payments/callback",
		`{"reference": "`+ref+`", "status": "SUCCESS"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res statusUpdateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "PAID", res.Status)
	assert.True(t, res.Changed)

	// Redelivery of the same callback is a no-op.
	w = e.do(t, http.MethodPost, "/api/payments/callback",
		`{"reference": "`+ref+`", "status": "SUCCESS"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Changed)
}

func TestPaymentCallback_UnknownStatus(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPost, "/api/payments/callback",
		`{"reference": "`+ref+`", "status": "MAYBE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewsletterSignup(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/newsletter", `{"email": "mira@example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"mira@example.com"}, e.subscribers.emails)
}

func TestNewsletterSignup_Throttled(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 3; i++ {
		w := e.do(t, http.MethodPost, "/api/newsletter", `{"email": "mira@example.com"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
	}
	w := e.do(t, http.MethodPost, "/api/newsletter", `{"email": "mira@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// --- back-office ---

func TestAdmin_RequiresAPIKey(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/admin/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/orders", "", APIKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/orders", "", APIKeyHeader, testAPIKey)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPatch, "/api/admin/orders/"+ref+"/status",
		`{"status": "IN_PROGRESS"}`, APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res statusUpdateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "IN_PROGRESS", res.Status)
	assert.Equal(t, "PENDING", res.PreviousStatus)
	assert.True(t, res.Changed)

	// The audit entry records the operator behind the API key.
	entries := e.audit.entries
	last := entries[len(entries)-1]
	assert.Equal(t, "status_changed", last.Action)
	assert.Equal(t, "mira", last.OperatorCode)
}

func TestAdminUpdateOrderStatus_Unknown(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPatch, "/api/admin/orders/"+ref+"/status",
		`{"status": "SHIPPED"}`, APIKeyHeader, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUpdateOrderDetails(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPatch, "/api/admin/orders/"+ref,
		`{"customerPhone": "+359888123456"}`, APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "+359888123456", res.CustomerPhone)
	assert.Equal(t, "Mira", res.CustomerName)
}

func TestAdminOrderAudit(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPatch, "/api/admin/orders/"+ref+"/status",
		`{"status": "PAID"}`, APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/orders/"+ref+"/audit", "", APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "order_created")
	assert.Contains(t, w.Body.String(), "status_changed")
}

func TestAdminGetOrder_NotFound(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/admin/orders/BK-00000000-ffffff", "", APIKeyHeader, testAPIKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListOrders_StatusFilter(t *testing.T) {
	e := newEnv(t)
	ref := e.placeOrder(t)

	w := e.do(t, http.MethodPatch, "/api/admin/orders/"+ref+"/status",
		`{"status": "PAID"}`, APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/admin/orders?status=PAID", "", APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ref)

	w = e.do(t, http.MethodGet, "/api/admin/orders?status=PENDING", "", APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), ref)
}
