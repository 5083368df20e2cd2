package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/promo"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	RecipientName string `json:"recipientName"`
	PhoneNumber   string `json:"phoneNumber"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2"`
	SubDistrict   string `json:"subDistrict"`
	District      string `json:"district"`
	City          string `json:"city"`
	Province      string `json:"province"`
	Country       string `json:"country"`
	PostalCode    string `json:"postalCode"`
}

type createOrderRequest struct {
	Items        []orderItemRequest `json:"items"`
	Address      addressRequest     `json:"address"`
	ShippingCost decimal.Decimal    `json:"shippingCost"`
	PromoCode    string             `json:"promoCode"`
}

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	ShippingCost  decimal.Decimal     `json:"shippingCost"`
	PromoDiscount decimal.Decimal     `json:"promoDiscount"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Address       addressRequest      `json:"address"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrder places a new order for the authenticated user.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CreateItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.CreateOrder(r.Context(), auth.UserIDFrom(r.Context()), order.CreateOrderRequest{
		Items:        items,
		Address:      addressFromRequest(req.Address),
		ShippingCost: req.ShippingCost,
		PromoCode:    req.PromoCode,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrder(o))
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context(), auth.UserIDFrom(r.Context()))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = mapOrder(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns one of the authenticated user's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), auth.UserIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

// CancelOrder cancels one of the authenticated user's orders.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), auth.UserIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

// UpdateOrderStatus applies an admin status change through the transition
// guard.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *order.ProductNotFoundError
		stock      *order.InsufficientStockError
		validation *order.ValidationError
		transition *order.InvalidTransitionError
		minimum    *promo.MinimumNotMetError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, promo.ErrNotFound):
		writeError(w, http.StatusNotFound, "promo not found")
	case errors.As(err, &stock):
		writeError(w, http.StatusBadRequest, stock.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &minimum):
		writeError(w, http.StatusBadRequest, minimum.Error())
	case errors.Is(err, promo.ErrNotActive):
		writeError(w, http.StatusBadRequest, promo.ErrNotActive.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, transition.Error())
	default:
		h.lg.Error("order request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func addressFromRequest(a addressRequest) order.Address {
	return order.Address{
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

func mapOrder(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		TotalAmount:   o.TotalAmount,
		ShippingCost:  o.ShippingCost,
		PromoDiscount: o.PromoDiscount,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Address: addressRequest{
			RecipientName: o.Snapshot.RecipientName,
			PhoneNumber:   o.Snapshot.PhoneNumber,
			AddressLine1:  o.Snapshot.AddressLine1,
			AddressLine2:  o.Snapshot.AddressLine2,
			SubDistrict:   o.Snapshot.SubDistrict,
			District:      o.Snapshot.District,
			City:          o.Snapshot.City,
			Province:      o.Snapshot.Province,
			Country:       o.Snapshot.Country,
			PostalCode:    o.Snapshot.PostalCode,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
	}
}
