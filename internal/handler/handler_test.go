package handler

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
	"github.com/xenking/storefront-api/internal/domain/user"
)

const testServerKey = "SB-Mid-server-testkey"

// --- Mock implementations ---

type stubProductRepo struct {
	byID map[string]*product.Product
}

func (s *stubProductRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range s.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (s *stubProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubProductRepo) Create(_ context.Context, p *product.Product) error {
	s.byID[p.ID] = p
	return nil
}

func (s *stubProductRepo) Update(_ context.Context, id string, _ product.Update) (*product.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type stubOrderRepo struct {
	created  []*order.Order
	byNumber map[string]*order.Order
	statuses map[string]order.Status
}

func (s *stubOrderRepo) Create(_ context.Context, o *order.Order, _ []order.StockDecrement) error {
	s.created = append(s.created, o)
	return nil
}

func (s *stubOrderRepo) GetForUser(_ context.Context, userID, orderID string) (*order.Order, error) {
	for _, o := range s.byNumber {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *stubOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.byNumber {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) GetByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	o, ok := s.byNumber[orderNumber]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, orderID string, next order.Status) (*order.Order, error) {
	for _, o := range s.byNumber {
		if o.ID == orderID {
			if !o.Status.CanTransition(next) {
				return nil, &order.InvalidTransitionError{From: o.Status, To: next}
			}
			o.Status = next
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

type stubCartRepo struct{}

func (stubCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

func (stubCartRepo) AddItem(_ context.Context, userID, _ string, _ int) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

func (stubCartRepo) SetQuantity(_ context.Context, _, _ string, _ int) (*cart.Cart, error) {
	return nil, cart.ErrItemNotFound
}

func (stubCartRepo) RemoveItems(_ context.Context, _ string, _ []string) error { return nil }

type stubPromoValidator struct{}

func (stubPromoValidator) Validate(_ context.Context, _ string, _ decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, promo.ErrNotFound
}

type stubPaymentRepo struct {
	applies []payment.Apply
}

func (s *stubPaymentRepo) Apply(_ context.Context, a payment.Apply) (*payment.Payment, error) {
	s.applies = append(s.applies, a)
	return &payment.Payment{OrderID: a.OrderID}, nil
}

func (s *stubPaymentRepo) GetByOrderID(_ context.Context, _ string) (*payment.Payment, error) {
	return nil, order.ErrNotFound
}

type stubGateway struct{}

func (stubGateway) CreateTransaction(_ context.Context, _ string, _ decimal.Decimal, _ payment.Customer) (*payment.Session, error) {
	return &payment.Session{Token: "snap-token", RedirectURL: "https://pay.example/r"}, nil
}

func (stubGateway) GetTransactionStatus(_ context.Context, orderNumber string) (*payment.Transaction, error) {
	return &payment.Transaction{
		OrderNumber:       orderNumber,
		PaymentType:       "bank_transfer",
		TransactionStatus: "settlement",
		TransactionTime:   "2025-06-01 12:00:00",
		GrossAmount:       "60.00",
		TransactionID:     "mt-tx-1",
	}, nil
}

type stubPromoRepo struct{ promo.Repository }

type stubUserDirectory struct{}

func (stubUserDirectory) GetByID(_ context.Context, id string) (*user.User, error) {
	return &user.User{ID: id, Name: "Test Customer", Email: "customer@storefront.test"}, nil
}

// --- Test fixture ---

type fixture struct {
	server   *httptest.Server
	tokens   *auth.Tokens
	orders   *stubOrderRepo
	payments *stubPaymentRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &stubProductRepo{byID: map[string]*product.Product{
		"p1": {ID: "p1", Name: "Keyboard", Price: decimal.RequireFromString("25.00"), Stock: 10},
	}}
	orders := &stubOrderRepo{byNumber: map[string]*order.Order{
		"ORD-100": {ID: "o1", UserID: "u1", OrderNumber: "ORD-100", Status: order.StatusPending,
			TotalAmount: decimal.RequireFromString("60.00")},
	}}
	payments := &stubPaymentRepo{}
	lg := zap.NewNop()

	orderSvc := order.NewService(products, stubPromoValidator{}, orders, stubCartRepo{}, lg)
	reconciler := payment.NewReconciler(testServerKey, orders, payments, stubGateway{}, lg)
	initiator := payment.NewInitiator(orders, stubUserDirectory{}, stubGateway{})
	carts := cart.NewService(stubCartRepo{}, products)

	h := NewHandler(orderSvc, reconciler, initiator, products, stubPromoRepo{}, carts, lg)
	tokens := auth.NewTokens("test-secret", time.Hour)
	srv := httptest.NewServer(NewRouter(h, tokens))
	t.Cleanup(srv.Close)

	return &fixture{server: srv, tokens: tokens, orders: orders, payments: payments}
}

func (f *fixture) request(t *testing.T, method, path, body, role string) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if role != "" {
		signed, _, err := f.tokens.Issue("u1", "jane@example.com", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sign(orderNumber, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderNumber + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(sum[:])
}

// --- Tests ---

func TestCreateOrderRoute(t *testing.T) {
	f := newFixture(t)

	body := `{
		"items": [{"productId": "p1", "quantity": 2}],
		"address": {
			"recipientName": "Jane Buyer", "phoneNumber": "+628123456789",
			"addressLine1": "Jl. Sudirman 1", "city": "Jakarta",
			"province": "DKI Jakarta", "country": "ID", "postalCode": "10110"
		},
		"shippingCost": "10.00"
	}`

	t.Run("authenticated user places an order", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/api/orders", body, user.RoleUser)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "60", out["totalAmount"])
		assert.Equal(t, "PENDING", out["status"])
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/api/orders", body, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty items fail validation", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/api/orders", `{"items": []}`, user.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown product yields 404", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/api/orders",
			strings.Replace(body, `"p1"`, `"ghost"`, 1), user.RoleUser)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestOrderStatusRoute(t *testing.T) {
	f := newFixture(t)

	t.Run("admin moves status forward", func(t *testing.T) {
		resp := f.request(t, http.MethodPatch, "/api/orders/o1/status",
			`{"status": "PAID"}`, user.RoleAdmin)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("illegal transition yields 409", func(t *testing.T) {
		resp := f.request(t, http.MethodPatch, "/api/orders/o1/status",
			`{"status": "PENDING"}`, user.RoleAdmin)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		resp := f.request(t, http.MethodPatch, "/api/orders/o1/status",
			`{"status": "PAID"}`, user.RoleUser)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMidtransNotificationRoute(t *testing.T) {
	notification := func(signature string) string {
		n := map[string]string{
			"order_id":           "ORD-100",
			"payment_type":       "bank_transfer",
			"transaction_status": "settlement",
			"transaction_time":   "2025-06-01 12:00:00",
			"gross_amount":       "60.00",
			"transaction_id":     "mt-tx-1",
			"status_code":        "200",
			"signature_key":      signature,
		}
		raw, _ := json.Marshal(n)
		return string(raw)
	}

	t.Run("valid notification is accepted without auth", func(t *testing.T) {
		f := newFixture(t)
		resp := f.request(t, http.MethodPost, "/api/payments/midtrans-notification",
			notification(sign("ORD-100", "200", "60.00")), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, f.payments.applies, 1)
		assert.Equal(t, order.StatusPaid, f.payments.applies[0].OrderStatus)
	})

	t.Run("bad signature yields 403 and no writes", func(t *testing.T) {
		f := newFixture(t)
		resp := f.request(t, http.MethodPost, "/api/payments/midtrans-notification",
			notification("forged"), "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Empty(t, f.payments.applies)
	})

	t.Run("unknown order yields 404", func(t *testing.T) {
		f := newFixture(t)
		body := strings.ReplaceAll(notification(sign("ORD-404", "200", "60.00")), "ORD-100", "ORD-404")
		resp := f.request(t, http.MethodPost, "/api/payments/midtrans-notification", body, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestInitiatePaymentRoute(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/payments/o1/initiate", "", user.RoleUser)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out initiatePaymentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "snap-token", out.Token)
	assert.Equal(t, "https://pay.example/r", out.RedirectURL)
}

func TestProductRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("catalog is public", func(t *testing.T) {
		resp := f.request(t, http.MethodGet, "/api/products", "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("create requires admin", func(t *testing.T) {
		body := `{"name": "Monitor", "price": "199.00", "stock": 5}`
		resp := f.request(t, http.MethodPost, "/api/products", body, user.RoleUser)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.request(t, http.MethodPost, "/api/products", body, user.RoleAdmin)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})
}
