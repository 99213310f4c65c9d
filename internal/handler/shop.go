package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
)

// ShopHandler handles the credit shop endpoints.
type ShopHandler struct {
	svc *service.PaymentService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(svc *service.PaymentService) *ShopHandler {
	return &ShopHandler{svc: svc}
}

// Packages handles GET /shop/packages.
func (h *ShopHandler) Packages(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.svc.Packages())
}

// Checkout handles POST /shop/checkout. Returns the hosted payment URL; the
// credits land when the webhook confirms the session.
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Package string `json:"package"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	session, err := h.svc.CreateCheckout(r.Context(), auth.AccountIDFromContext(r.Context()), input.Package)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, session)
}

// Purchases handles GET /shop/purchases.
func (h *ShopHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.ListPurchases(r.Context(), auth.AccountIDFromContext(r.Context()), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, purchases)
}
