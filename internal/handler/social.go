package handler

import (
	"net/http"

	"github.com/bookieverse/platform/internal/auth"
	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SocialHandler handles ratings, follows, groups, profiles, and the
// leaderboard.
type SocialHandler struct {
	svc *service.SocialService
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(svc *service.SocialService) *SocialHandler {
	return &SocialHandler{svc: svc}
}

// RateBookie handles POST /users/{accountID}/ratings.
func (h *SocialHandler) RateBookie(w http.ResponseWriter, r *http.Request) {
	bookieID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid account id"))
		return
	}
	var input service.RateBookieInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	input.BookieID = bookieID
	input.RaterID = auth.AccountIDFromContext(r.Context())

	rating, err := h.svc.RateBookie(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, rating)
}

// Stats handles GET /users/{accountID}/stats.
func (h *SocialHandler) Stats(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid account id"))
		return
	}
	stats, err := h.svc.BookieStats(r.Context(), accountID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

// Follow handles POST /users/{accountID}/follow.
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	bookieID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid account id"))
		return
	}
	if err := h.svc.Follow(r.Context(), auth.AccountIDFromContext(r.Context()), bookieID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

// Unfollow handles DELETE /users/{accountID}/follow.
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	bookieID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid account id"))
		return
	}
	if err := h.svc.Unfollow(r.Context(), auth.AccountIDFromContext(r.Context()), bookieID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}

// Following handles GET /users/me/following.
func (h *SocialHandler) Following(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListFollowing(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}

// CreateGroup handles POST /groups.
func (h *SocialHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var input service.CreateGroupInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	input.CreatorID = auth.AccountIDFromContext(r.Context())

	group, err := h.svc.CreateGroup(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, group)
}

// ListGroups handles GET /groups.
func (h *SocialHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, groups)
}

// Invite handles POST /groups/{groupID}/invite.
func (h *SocialHandler) Invite(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid group id"))
		return
	}
	var input struct {
		Username string `json:"username"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	if err := h.svc.InviteToGroup(r.Context(), groupID, auth.AccountIDFromContext(r.Context()), input.Username); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

// Search handles GET /users. Query params: q (substring), sort (rating,
// profit, win_rate, followers).
func (h *SocialHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchUsers(r.Context(),
		r.URL.Query().Get("q"), r.URL.Query().Get("sort"), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, results)
}

// Leaderboard handles GET /leaderboard.
func (h *SocialHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Leaderboard(r.Context(), queryLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}
