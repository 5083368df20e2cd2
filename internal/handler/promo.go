package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/promo"
)

type createPromoRequest struct {
	Code           string           `json:"code"`
	Description    string           `json:"description"`
	DiscountType   string           `json:"discountType"`
	DiscountValue  decimal.Decimal  `json:"discountValue"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscount"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	StartDate      time.Time        `json:"startDate"`
	EndDate        time.Time        `json:"endDate"`
}

type updatePromoRequest struct {
	Description    *string          `json:"description"`
	DiscountType   *string          `json:"discountType"`
	DiscountValue  *decimal.Decimal `json:"discountValue"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscount"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	StartDate      *time.Time       `json:"startDate"`
	EndDate        *time.Time       `json:"endDate"`
}

type promoResponse struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Description    string           `json:"description"`
	DiscountType   string           `json:"discountType"`
	DiscountValue  decimal.Decimal  `json:"discountValue"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscount"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	StartDate      time.Time        `json:"startDate"`
	EndDate        time.Time        `json:"endDate"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ListPromos returns all promo rules. Admin only.
func (h *Handler) ListPromos(w http.ResponseWriter, r *http.Request) {
	list, err := h.promos.List(r.Context())
	if err != nil {
		h.writePromoError(w, err)
		return
	}

	out := make([]promoResponse, len(list))
	for i := range list {
		out[i] = mapPromo(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// CreatePromo adds a promo rule. Admin only.
func (h *Handler) CreatePromo(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg, ok := validatePromo(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p := &promo.Promo{
		ID:             uuid.New().String(),
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   promo.DiscountType(req.DiscountType),
		DiscountValue:  req.DiscountValue,
		MaxDiscount:    req.MaxDiscount,
		MinOrderAmount: req.MinOrderAmount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	if err := h.promos.Create(r.Context(), p); err != nil {
		h.writePromoError(w, err)
		return
	}

	created, err := h.promos.GetByID(r.Context(), p.ID)
	if err != nil {
		h.writePromoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapPromo(created))
}

// GetPromo returns a single promo rule. Admin only.
func (h *Handler) GetPromo(w http.ResponseWriter, r *http.Request) {
	p, err := h.promos.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writePromoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPromo(p))
}

// UpdatePromo applies a partial update to a promo rule. Admin only.
func (h *Handler) UpdatePromo(w http.ResponseWriter, r *http.Request) {
	var req updatePromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DiscountType != nil {
		if t := promo.DiscountType(*req.DiscountType); t != promo.DiscountPercentage && t != promo.DiscountFlat {
			writeError(w, http.StatusBadRequest, "discountType must be PERCENTAGE or FLAT")
			return
		}
	}

	var discountType *promo.DiscountType
	if req.DiscountType != nil {
		t := promo.DiscountType(*req.DiscountType)
		discountType = &t
	}

	p, err := h.promos.Update(r.Context(), chi.URLParam(r, "id"), promo.Update{
		Description:    req.Description,
		DiscountType:   discountType,
		DiscountValue:  req.DiscountValue,
		MaxDiscount:    req.MaxDiscount,
		MinOrderAmount: req.MinOrderAmount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		h.writePromoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPromo(p))
}

// DeletePromo removes a promo rule. Admin only.
func (h *Handler) DeletePromo(w http.ResponseWriter, r *http.Request) {
	if err := h.promos.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writePromoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writePromoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, promo.ErrNotFound):
		writeError(w, http.StatusNotFound, "promo not found")
	case errors.Is(err, promo.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "promo code already exists")
	default:
		h.lg.Error("promo request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func validatePromo(req createPromoRequest) (string, bool) {
	if req.Code == "" {
		return "code is required", false
	}
	if t := promo.DiscountType(req.DiscountType); t != promo.DiscountPercentage && t != promo.DiscountFlat {
		return "discountType must be PERCENTAGE or FLAT", false
	}
	if req.DiscountValue.IsNegative() {
		return "discountValue must not be negative", false
	}
	if !req.EndDate.After(req.StartDate) {
		return "endDate must be after startDate", false
	}
	return "", true
}

func mapPromo(p *promo.Promo) promoResponse {
	return promoResponse{
		ID:             p.ID,
		Code:           p.Code,
		Description:    p.Description,
		DiscountType:   string(p.DiscountType),
		DiscountValue:  p.DiscountValue,
		MaxDiscount:    p.MaxDiscount,
		MinOrderAmount: p.MinOrderAmount,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		CreatedAt:      p.CreatedAt,
	}
}
