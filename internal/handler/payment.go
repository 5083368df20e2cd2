package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/midtrans"
)

type initiatePaymentResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

type midtransNotificationRequest struct {
	OrderID           string `json:"order_id"`
	PaymentType       string `json:"payment_type"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id"`
	SignatureKey      string `json:"signature_key"`
	StatusCode        string `json:"status_code"`
}

// InitiatePayment opens a checkout session for one of the authenticated
// user's pending orders.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	s, err := h.initiator.Initiate(r.Context(), auth.UserIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		var (
			transition *order.InvalidTransitionError
			gateway    *midtrans.StatusError
		)
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.As(err, &transition):
			writeError(w, http.StatusConflict, "order is not awaiting payment")
		case errors.As(err, &gateway):
			h.lg.Error("payment gateway rejected initiation", zap.Error(err))
			writeError(w, http.StatusBadGateway, "payment gateway error")
		default:
			h.lg.Error("payment initiation failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "payment gateway error")
		}
		return
	}

	writeJSON(w, http.StatusOK, initiatePaymentResponse{Token: s.Token, RedirectURL: s.RedirectURL})
}

// MidtransNotification handles payment webhook deliveries. Midtrans retries
// on any non-2xx answer, so only authenticity and structural failures return
// errors; business-rule nuances (stale status, replays) answer 200.
func (h *Handler) MidtransNotification(w http.ResponseWriter, r *http.Request) {
	var req midtransNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.reconciler.HandleNotification(r.Context(), payment.Notification{
		OrderNumber:       req.OrderID,
		PaymentType:       req.PaymentType,
		TransactionStatus: req.TransactionStatus,
		TransactionTime:   req.TransactionTime,
		GrossAmount:       req.GrossAmount,
		TransactionID:     req.TransactionID,
		SignatureKey:      req.SignatureKey,
		StatusCode:        req.StatusCode,
	})
	if err != nil {
		var unknown *payment.UnknownStatusError
		switch {
		case errors.Is(err, payment.ErrForbidden):
			writeError(w, http.StatusForbidden, "invalid signature")
		case errors.Is(err, payment.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.As(err, &unknown):
			h.lg.Error("unknown transaction status in notification",
				zap.String("order_number", req.OrderID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "unknown transaction status")
		default:
			h.lg.Error("notification processing failed",
				zap.String("order_number", req.OrderID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
