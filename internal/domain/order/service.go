package order

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
)

// CreateItem is one requested order line.
type CreateItem struct {
	ProductID string
	Quantity  int
}

// Address is the shipping address supplied with a create-order request. It
// is copied into an immutable snapshot; the request does not reference the
// user's stored address book.
type Address struct {
	RecipientName string
	PhoneNumber   string
	AddressLine1  string
	AddressLine2  string
	SubDistrict   string
	District      string
	City          string
	Province      string
	Country       string
	PostalCode    string
}

// CreateOrderRequest holds the input for assembling an order.
type CreateOrderRequest struct {
	Items        []CreateItem
	Address      Address
	ShippingCost decimal.Decimal
	PromoCode    string
}

// Service assembles orders: it prices requested items against the current
// catalog, applies an optional promo, persists the aggregate atomically, and
// clears purchased items from the user's cart.
type Service struct {
	products product.Repository
	promos   promo.Validator
	orders   Repository
	carts    cart.Repository
	lg       *zap.Logger
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	products product.Repository,
	promos promo.Validator,
	orders Repository,
	carts cart.Repository,
	lg *zap.Logger,
) *Service {
	return &Service{
		products: products,
		promos:   promos,
		orders:   orders,
		carts:    carts,
		lg:       lg,
		now:      time.Now,
	}
}

// CreateOrder validates the request, batch-fetches the requested products,
// freezes their current prices into order items, applies the promo discount,
// and persists snapshot + order + items + stock decrements in one
// transaction. After a successful commit the purchased products are removed
// from the user's cart; that cleanup is best-effort and never fails the
// order, since the purchase has already been committed.
func (s *Service) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
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

	orderID := uuid.New().String()
	lines := make([]pricing.Line, len(req.Items))
	items := make([]Item, len(req.Items))
	decrements := make([]StockDecrement, len(req.Items))

	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		// Fast rejection only. The conditional decrement inside the create
		// transaction is what actually guards against concurrent oversell.
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{ProductID: item.ProductID}
		}

		lines[i] = pricing.Line{UnitPrice: p.Price, Quantity: item.Quantity}
		items[i] = Item{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     p.Price,
		}
		decrements[i] = StockDecrement{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	discount := decimal.Zero
	if req.PromoCode != "" {
		subtotal := decimal.Zero
		for _, l := range lines {
			subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		discount, err = s.promos.Validate(ctx, req.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	totals, err := pricing.Quote(lines, discount, req.ShippingCost)
	if err != nil {
		return nil, errors.Wrap(err, "quote")
	}

	o := &Order{
		ID:            orderID,
		UserID:        userID,
		OrderNumber:   s.newOrderNumber(),
		TotalAmount:   totals.Total,
		ShippingCost:  totals.Shipping,
		PromoDiscount: totals.Discount,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Snapshot:      snapshotFromAddress(req.Address),
		Items:         items,
		CreatedAt:     s.now(),
	}

	if err := s.orders.Create(ctx, o, decrements); err != nil {
		return nil, err
	}

	if err := s.carts.RemoveItems(ctx, userID, ids); err != nil {
		// The order is committed; losing the cart cleanup is acceptable.
		s.lg.Warn("cart cleanup after order failed",
			zap.String("order_id", o.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return o, nil
}

// Get returns a single order owned by the user.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	return s.orders.GetForUser(ctx, userID, orderID)
}

// List returns all orders owned by the user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Cancel sets an order owned by the user to CANCELLED. Only PENDING and
// PAID orders can be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (*Order, error) {
	if _, err := s.orders.GetForUser(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, orderID, StatusCancelled)
}

// UpdateStatus applies an admin status change. It goes through the same
// guarded transition as every other status mutation; an admin cannot move an
// order backward or out of a terminal state.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(next)}
	}
	return s.orders.UpdateStatus(ctx, orderID, next)
}

func (s *Service) newOrderNumber() string {
	// Millisecond timestamp keeps numbers roughly monotonic; the random
	// suffix disambiguates concurrent orders within the same millisecond.
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return "ORD-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + suffix
}

func snapshotFromAddress(a Address) AddressSnapshot {
	return AddressSnapshot{
		ID:            uuid.New().String(),
		RecipientName: a.RecipientName,
		PhoneNumber:   a.PhoneNumber,
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		SubDistrict:   a.SubDistrict,
		District:      a.District,
		City:          a.City,
		Province:      a.Province,
		Country:       a.Country,
		PostalCode:    a.PostalCode,
	}
}

func validateCreate(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items.productId", Reason: "required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items.quantity", Reason: "must be greater than 0"}
		}
	}
	if req.ShippingCost.IsNegative() {
		return &ValidationError{Field: "shippingCost", Reason: "must not be negative"}
	}

	required := []struct {
		field string
		value string
	}{
		{"address.recipientName", req.Address.RecipientName},
		{"address.phoneNumber", req.Address.PhoneNumber},
		{"address.addressLine1", req.Address.AddressLine1},
		{"address.city", req.Address.City},
		{"address.province", req.Address.Province},
		{"address.country", req.Address.Country},
		{"address.postalCode", req.Address.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}
	return nil
}
