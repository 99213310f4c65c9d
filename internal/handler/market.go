package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MarketHandler serves the market catalog.
type MarketHandler struct {
	svc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(svc *service.MarketService) *MarketHandler {
	return &MarketHandler{svc: svc}
}

// List handles GET /markets.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	markets, err := h.svc.ListUpcoming(r.Context(), r.URL.Query().Get("sport"), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, markets)
}

// Get handles GET /markets/{marketID}.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	marketID, err := uuid.Parse(chi.URLParam(r, "marketID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid market id"))
		return
	}
	market, err := h.svc.Get(r.Context(), marketID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, market)
}

// Create handles POST /markets. Seeds futures markets and demo games the
// score feed does not carry.
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateMarketInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	market, err := h.svc.Create(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, market)
}
