// Package handler exposes the HTTP API: order placement and tracking,
// payment initiation, the Midtrans webhook, catalog, cart, and promo admin.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// Handler holds the domain services behind the HTTP API.
type Handler struct {
	orders     *order.Service
	reconciler *payment.Reconciler
	initiator  *payment.Initiator
	products   product.Repository
	promos     promo.Repository
	carts      *cart.Service
	lg         *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	reconciler *payment.Reconciler,
	initiator *payment.Initiator,
	products product.Repository,
	promos promo.Repository,
	carts *cart.Service,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		orders:     orders,
		reconciler: reconciler,
		initiator:  initiator,
		products:   products,
		promos:     promos,
		carts:      carts,
		lg:         lg,
	}
}

// NewRouter mounts the API routes. The webhook endpoint is deliberately
// outside the authenticated groups: Midtrans authenticates by payload
// signature, not by bearer token.
func NewRouter(h *Handler, tokens *auth.Tokens) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/midtrans-notification", h.MidtransNotification)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(tokens))

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Patch("/orders/{id}/cancel", h.CancelOrder)

			r.Post("/payments/{id}/initiate", h.InitiatePayment)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Patch("/cart/items/{productId}", h.SetCartItemQuantity)
			r.Delete("/cart/items/{productId}", h.RemoveCartItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(tokens), auth.RequireRole(user.RoleAdmin))

			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)

			r.Post("/products", h.CreateProduct)
			r.Patch("/products/{id}", h.UpdateProduct)

			r.Get("/promos", h.ListPromos)
			r.Post("/promos", h.CreatePromo)
			r.Get("/promos/{id}", h.GetPromo)
			r.Patch("/promos/{id}", h.UpdatePromo)
			r.Delete("/promos/{id}", h.DeletePromo)
		})
	})

	return r
}
