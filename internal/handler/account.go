package handler

import (
	"net/http"
	"strconv"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/service"
)

// AccountHandler serves the authenticated account's own views.
type AccountHandler struct {
	svc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Me handles GET /users/me. Pending accrual is credited before the balance
// is read.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Me(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// Entries handles GET /users/me/entries.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	entries, err := h.svc.Entries(r.Context(), auth.AccountIDFromContext(r.Context()), cursor, queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, entries)
}

// queryLimit parses the optional limit query parameter. Zero means default.
func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
