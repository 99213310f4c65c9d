package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParlayHandler handles parlay endpoints.
type ParlayHandler struct {
	svc *service.ParlayService
}

// NewParlayHandler creates a new ParlayHandler.
func NewParlayHandler(svc *service.ParlayService) *ParlayHandler {
	return &ParlayHandler{svc: svc}
}

// Create handles POST /parlays.
func (h *ParlayHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateParlayInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	input.BettorID = auth.AccountIDFromContext(r.Context())

	parlay, err := h.svc.Create(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, parlay)
}

// ListMine handles GET /parlays/mine.
func (h *ParlayHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	parlays, err := h.svc.ListByBettor(r.Context(), auth.AccountIDFromContext(r.Context()), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, parlays)
}

// Get handles GET /parlays/{parlayID}.
func (h *ParlayHandler) Get(w http.ResponseWriter, r *http.Request) {
	parlayID, err := uuid.Parse(chi.URLParam(r, "parlayID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid parlay id"))
		return
	}
	parlay, err := h.svc.Get(r.Context(), parlayID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, parlay)
}
