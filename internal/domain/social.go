package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a bettor's score for a bookie, allowed only after a settled
// wager between the pair.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	BookieID  uuid.UUID `json:"bookie_id"`
	RaterID   uuid.UUID `json:"rater_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary is the aggregate over a bookie's ratings.
type RatingSummary struct {
	Average float64 `json:"average"` // mean rounded to 2 decimals, 0 when unrated
	Count   int     `json:"count"`
}

// Follow is a directed edge: follower watches bookie. Unique, no self-follow.
type Follow struct {
	ID         uuid.UUID `json:"id"`
	FollowerID uuid.UUID `json:"follower_id"`
	BookieID   uuid.UUID `json:"bookie_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Group scopes private offers to an invited member set.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatorID   uuid.UUID `json:"creator_id"`
	CreatorName string    `json:"creator_name"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookieStats is the public profile computed for any account.
type BookieStats struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	TotalLines    int       `json:"total_lines_created"`
	ActiveLines   int       `json:"active_lines"`
	SettledWagers int       `json:"settled_wagers"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	WinRate       float64   `json:"win_rate"` // percent, 1 decimal
	Rating        float64   `json:"rating"`
	RatingCount   int       `json:"rating_count"`
	Followers     int       `json:"followers"`
	Profit        int64     `json:"profit"`
}
