package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WagerHandler serves wager reads and manual settlement.
type WagerHandler struct {
	svc    *service.WagerService
	settle *service.SettleService
}

// NewWagerHandler creates a new WagerHandler.
func NewWagerHandler(svc *service.WagerService, settle *service.SettleService) *WagerHandler {
	return &WagerHandler{svc: svc, settle: settle}
}

// ListMine handles GET /wagers/mine. Accepts an optional status filter.
func (h *WagerHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	var status *domain.WagerStatus
	switch q := r.URL.Query().Get("status"); q {
	case "":
	case string(domain.WagerPending), string(domain.WagerSettled):
		st := domain.WagerStatus(q)
		status = &st
	default:
		RespondError(w, domain.ErrValidation("status must be pending or settled"))
		return
	}

	wagers, err := h.svc.ListByAccount(r.Context(), auth.AccountIDFromContext(r.Context()), status, queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, wagers)
}

// Get handles GET /wagers/{wagerID}.
func (h *WagerHandler) Get(w http.ResponseWriter, r *http.Request) {
	wagerID, err := uuid.Parse(chi.URLParam(r, "wagerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid wager id"))
		return
	}
	wager, err := h.svc.Get(r.Context(), wagerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, wager)
}

// Settle handles POST /wagers/{wagerID}/settle. Either party asserts the
// winner; proposition and futures wagers have no other settlement path.
func (h *WagerHandler) Settle(w http.ResponseWriter, r *http.Request) {
	wagerID, err := uuid.Parse(chi.URLParam(r, "wagerID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid wager id"))
		return
	}
	var input struct {
		Winner domain.Winner `json:"winner"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	wager, err := h.settle.ManualSettle(r.Context(), wagerID, auth.AccountIDFromContext(r.Context()), input.Winner)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, wager)
}
