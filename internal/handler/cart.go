package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/product"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
}

// GetCart returns the authenticated user's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), auth.UserIDFrom(r.Context()))
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

// AddCartItem adds a product to the cart, incrementing any existing line.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.AddItem(r.Context(), auth.UserIDFrom(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

// SetCartItemQuantity replaces the quantity of a cart line.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), auth.UserIDFrom(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

// RemoveCartItem deletes a cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), auth.UserIDFrom(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	var quantity *cart.QuantityError
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "cart item not found")
	case errors.As(err, &quantity):
		writeError(w, http.StatusBadRequest, quantity.Error())
	default:
		h.lg.Error("cart request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func mapCart(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = cartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Stock:     item.Stock,
			Quantity:  item.Quantity,
		}
	}
	return cartResponse{Items: items}
}
