package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OfferHandler handles the offer (line) endpoints.
type OfferHandler struct {
	svc *service.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(svc *service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

// List handles GET /offers. Anonymous callers see public lines; authenticated
// callers also see lines scoped to their groups.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	var viewerID *uuid.UUID
	if id := auth.AccountIDFromContext(r.Context()); id != uuid.Nil {
		viewerID = &id
	}

	offers, err := h.svc.ListFeed(r.Context(), viewerID, r.URL.Query().Get("sport"), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, offers)
}

// ListMine handles GET /offers/mine.
func (h *OfferHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	offers, err := h.svc.ListByBookie(r.Context(), auth.AccountIDFromContext(r.Context()), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, offers)
}

// Get handles GET /offers/{offerID}.
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid offer id"))
		return
	}
	offer, err := h.svc.Get(r.Context(), offerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, offer)
}

// Create handles POST /offers.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateOfferInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	input.BookieID = auth.AccountIDFromContext(r.Context())

	offer, err := h.svc.Create(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, offer)
}

// Edit handles PATCH /offers/{offerID}.
func (h *OfferHandler) Edit(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid offer id"))
		return
	}
	var update domain.OfferUpdate
	if err := DecodeJSON(r, &update); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	offer, err := h.svc.Edit(r.Context(), offerID, auth.AccountIDFromContext(r.Context()), update)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, offer)
}

// Cancel handles DELETE /offers/{offerID}.
func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid offer id"))
		return
	}

	if err := h.svc.Cancel(r.Context(), offerID, auth.AccountIDFromContext(r.Context())); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Take handles POST /offers/{offerID}/take.
func (h *OfferHandler) Take(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid offer id"))
		return
	}
	var input service.TakeOfferInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	input.OfferID = offerID
	input.BettorID = auth.AccountIDFromContext(r.Context())

	wager, err := h.svc.Take(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, wager)
}
