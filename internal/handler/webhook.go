package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/bookieverse/platform/internal/provider"
	"github.com/bookieverse/platform/internal/service"
)

// WebhookHandler handles Stripe webhook callbacks.
type WebhookHandler struct {
	stripe     *provider.StripeProvider
	paymentSvc *service.PaymentService
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(stripe *provider.StripeProvider, paymentSvc *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{stripe: stripe, paymentSvc: paymentSvc, logger: logger}
}

// HandleStripeWebhook handles POST /webhooks/stripe.
// IMPORTANT: This handler must receive the raw request body (no JSON middleware parsing).
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// Read raw body (required for signature verification)
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		h.logger.Error("read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.Warn("missing Stripe-Signature header")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.stripe.VerifyWebhookSignature(body, sigHeader)
	if err != nil {
		h.logger.Warn("reject stripe webhook", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event.Type == "checkout.session.completed" {
		session, err := provider.ParseCheckoutSessionData(event.Data)
		if err != nil {
			h.logger.Error("parse checkout session", "event_id", event.ID, "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.paymentSvc.HandleCheckoutCompleted(r.Context(), session); err != nil {
			h.logger.Error("process checkout completion", "event_id", event.ID, "error", err)
			RespondError(w, err)
			return
		}
	} else {
		h.logger.Debug("ignoring stripe event", "type", event.Type)
	}

	// Stripe expects 200 OK
	w.WriteHeader(http.StatusOK)
}
