package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/projection"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SocialService covers the reputation layer: bookie ratings, follows, private
// groups, public profiles, search, and the profit leaderboard. These tables
// never touch the ledger, so the service queries them directly. Profile stats
// and leaderboard pages are served through short-TTL projections.
type SocialService struct {
	pool     *pgxpool.Pool
	accounts repository.AccountRepository
	wagers   repository.WagerRepository
	cache    projection.Store
	logger   *slog.Logger
}

// NewSocialService creates a SocialService.
func NewSocialService(pool *pgxpool.Pool, accounts repository.AccountRepository, wagers repository.WagerRepository, cache projection.Store, logger *slog.Logger) *SocialService {
	return &SocialService{pool: pool, accounts: accounts, wagers: wagers, cache: cache, logger: logger}
}

// RateBookieInput holds a rating submission.
type RateBookieInput struct {
	BookieID uuid.UUID `json:"-"`
	RaterID  uuid.UUID `json:"-"`
	Rating   int       `json:"rating"`
	Comment  *string   `json:"comment,omitempty"`
}

// RateBookie records a 1-5 rating. Only a bettor with at least one settled
// wager against the bookie may rate them; a repeat rating from the same
// bettor replaces the earlier one.
func (s *SocialService) RateBookie(ctx context.Context, input RateBookieInput) (*domain.Rating, error) {
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, domain.ErrConstraint(err.Error())
	}
	if input.BookieID == input.RaterID {
		return nil, domain.ErrValidation("cannot rate yourself")
	}

	bookie, err := s.accounts.FindByID(ctx, s.pool, input.BookieID)
	if err != nil {
		return nil, domain.ErrInternal("find bookie", err)
	}
	if bookie == nil {
		return nil, domain.ErrNotFound("account", input.BookieID.String())
	}

	settled, err := s.wagers.HasSettledWagerBetween(ctx, s.pool, input.BookieID, input.RaterID)
	if err != nil {
		return nil, domain.ErrInternal("check settled wagers", err)
	}
	if !settled {
		return nil, domain.ErrForbidden("rating requires a settled wager with this bookie")
	}

	rating := &domain.Rating{
		ID:        uuid.New(),
		BookieID:  input.BookieID,
		RaterID:   input.RaterID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ratings (id, bookie_id, rater_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bookie_id, rater_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = EXCLUDED.created_at`,
		rating.ID, rating.BookieID, rating.RaterID, rating.Rating, rating.Comment, rating.CreatedAt)
	if err != nil {
		return nil, domain.ErrInternal("insert rating", err)
	}

	_ = projection.InvalidateBookieStats(ctx, s.cache, input.BookieID)

	s.logger.Info("bookie rated",
		"bookie_id", input.BookieID, "rater_id", input.RaterID, "rating", input.Rating)
	return rating, nil
}

// RatingSummary returns the mean rating (2 decimals) and count for a bookie.
func (s *SocialService) RatingSummary(ctx context.Context, bookieID uuid.UUID) (*domain.RatingSummary, error) {
	var sum domain.RatingSummary
	var avg *float64
	err := s.pool.QueryRow(ctx,
		`SELECT AVG(rating), COUNT(*) FROM ratings WHERE bookie_id = $1`,
		bookieID).Scan(&avg, &sum.Count)
	if err != nil {
		return nil, domain.ErrInternal("rating summary", err)
	}
	if avg != nil {
		sum.Average = math.Round(*avg*100) / 100
	}
	return &sum, nil
}

// Follow creates the directed follower edge. Duplicate follows are no-ops.
func (s *SocialService) Follow(ctx context.Context, followerID, bookieID uuid.UUID) error {
	if followerID == bookieID {
		return domain.ErrValidation("cannot follow yourself")
	}
	bookie, err := s.accounts.FindByID(ctx, s.pool, bookieID)
	if err != nil {
		return domain.ErrInternal("find bookie", err)
	}
	if bookie == nil {
		return domain.ErrNotFound("account", bookieID.String())
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO follows (id, follower_id, bookie_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (follower_id, bookie_id) DO NOTHING`,
		uuid.New(), followerID, bookieID)
	if err != nil {
		return domain.ErrInternal("insert follow", err)
	}
	_ = projection.InvalidateBookieStats(ctx, s.cache, bookieID)
	return nil
}

// Unfollow removes the edge if present.
func (s *SocialService) Unfollow(ctx context.Context, followerID, bookieID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND bookie_id = $2`,
		followerID, bookieID)
	if err != nil {
		return domain.ErrInternal("delete follow", err)
	}
	_ = projection.InvalidateBookieStats(ctx, s.cache, bookieID)
	return nil
}

// ListFollowing returns the accounts the follower watches.
func (s *SocialService) ListFollowing(ctx context.Context, followerID uuid.UUID) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.username, a.profit, a.wins, a.losses
		FROM follows f
		JOIN accounts a ON a.id = f.bookie_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC`, followerID)
	if err != nil {
		return nil, domain.ErrInternal("list following", err)
	}
	defer rows.Close()
	return collectAccountSummaries(rows)
}

// CreateGroupInput holds the fields for opening a private group.
type CreateGroupInput struct {
	CreatorID   uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

// CreateGroup opens a private group with the creator as its first member.
func (s *SocialService) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	if input.Name == "" || len(input.Name) > 64 {
		return nil, domain.ErrValidation("group name must be 1-64 characters")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	group := &domain.Group{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		MemberCount: 1,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO groups (id, name, description, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.Description, group.CreatorID, group.CreatedAt)
	if err != nil {
		return nil, domain.ErrInternal("insert group", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO group_members (group_id, account_id, joined_at)
		VALUES ($1, $2, $3)`,
		group.ID, group.CreatorID, group.CreatedAt)
	if err != nil {
		return nil, domain.ErrInternal("insert group member", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return group, nil
}

// InviteToGroup adds a member by username. Only existing members may invite;
// inviting a current member is a conflict.
func (s *SocialService) InviteToGroup(ctx context.Context, groupID, inviterID uuid.UUID, username string) error {
	member, err := isGroupMember(ctx, s.pool, groupID, inviterID)
	if err != nil {
		return domain.ErrInternal("check group membership", err)
	}
	if !member {
		return domain.ErrForbidden("not a member of this group")
	}

	invitee, err := s.accounts.FindByUsername(ctx, s.pool, username)
	if err != nil {
		return domain.ErrInternal("find account", err)
	}
	if invitee == nil {
		return domain.ErrNotFound("account", username)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, account_id, joined_at)
		VALUES ($1, $2, now())
		ON CONFLICT (group_id, account_id) DO NOTHING`,
		groupID, invitee.ID)
	if err != nil {
		return domain.ErrInternal("insert group member", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict(username + " is already a member")
	}
	return nil
}

// ListGroups returns the groups the account belongs to.
func (s *SocialService) ListGroups(ctx context.Context, accountID uuid.UUID) ([]domain.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.name, g.description, g.creator_id, c.username,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id),
		       g.created_at
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id
		JOIN accounts c ON c.id = g.creator_id
		WHERE gm.account_id = $1
		ORDER BY g.created_at DESC`, accountID)
	if err != nil {
		return nil, domain.ErrInternal("list groups", err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatorID, &g.CreatorName, &g.MemberCount, &g.CreatedAt); err != nil {
			return nil, domain.ErrInternal("scan group", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// BookieStats assembles the public profile for any account.
func (s *SocialService) BookieStats(ctx context.Context, accountID uuid.UUID) (*domain.BookieStats, error) {
	if cached, err := projection.GetBookieStats(ctx, s.cache, accountID); err == nil {
		return cached, nil
	}

	account, err := s.accounts.FindByID(ctx, s.pool, accountID)
	if err != nil {
		return nil, domain.ErrInternal("find account", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound("account", accountID.String())
	}

	stats := &domain.BookieStats{
		ID:         account.ID,
		Username:   account.Username,
		TotalLines: account.LinesCreated,
		Wins:       account.Wins,
		Losses:     account.Losses,
		Profit:     account.Profit,
	}
	if settled := account.Wins + account.Losses; settled > 0 {
		stats.WinRate = math.Round(float64(account.Wins)/float64(settled)*1000) / 10
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM offers WHERE bookie_id = $1 AND status = 'open'),
		  (SELECT COUNT(*) FROM wagers WHERE status = 'settled' AND (bookie_id = $1 OR bettor_id = $1)),
		  (SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) FROM ratings WHERE bookie_id = $1),
		  (SELECT COUNT(*) FROM ratings WHERE bookie_id = $1),
		  (SELECT COUNT(*) FROM follows WHERE bookie_id = $1)`,
		accountID).Scan(&stats.ActiveLines, &stats.SettledWagers, &stats.Rating, &stats.RatingCount, &stats.Followers)
	if err != nil {
		return nil, domain.ErrInternal("load profile stats", err)
	}

	if err := projection.PutBookieStats(ctx, s.cache, stats); err != nil {
		s.logger.Debug("cache profile stats", "error", err)
	}
	return stats, nil
}

// SearchUsers finds accounts by username substring and returns their public
// stats sorted by the requested field: rating, profit, win_rate, or
// followers (default username).
func (s *SocialService) SearchUsers(ctx context.Context, query, sortBy string, limit int) ([]domain.BookieStats, error) {
	order := "a.username ASC"
	switch sortBy {
	case "rating":
		order = "rating DESC, a.username ASC"
	case "profit":
		order = "a.profit DESC, a.username ASC"
	case "win_rate":
		order = "win_rate DESC, a.username ASC"
	case "followers":
		order = "followers DESC, a.username ASC"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.username, a.lines_created, a.wins, a.losses, a.profit,
		  CASE WHEN a.wins + a.losses > 0
		       THEN ROUND(a.wins::numeric / (a.wins + a.losses) * 1000) / 10
		       ELSE 0 END AS win_rate,
		  (SELECT COALESCE(ROUND(AVG(r.rating)::numeric, 2), 0) FROM ratings r WHERE r.bookie_id = a.id) AS rating,
		  (SELECT COUNT(*) FROM ratings r WHERE r.bookie_id = a.id) AS rating_count,
		  (SELECT COUNT(*) FROM follows f WHERE f.bookie_id = a.id) AS followers
		FROM accounts a
		WHERE a.username ILIKE '%' || $1 || '%'
		ORDER BY `+order+`
		LIMIT $2`, query, normalizeLimit(limit, 20, 100))
	if err != nil {
		return nil, domain.ErrInternal("search users", err)
	}
	defer rows.Close()

	var out []domain.BookieStats
	for rows.Next() {
		var st domain.BookieStats
		if err := rows.Scan(&st.ID, &st.Username, &st.TotalLines, &st.Wins, &st.Losses,
			&st.Profit, &st.WinRate, &st.Rating, &st.RatingCount, &st.Followers); err != nil {
			return nil, domain.ErrInternal("scan search row", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Leaderboard returns the top accounts by profit.
func (s *SocialService) Leaderboard(ctx context.Context, limit int) ([]domain.Account, error) {
	size := normalizeLimit(limit, 10, 100)
	if cached, err := projection.GetLeaderboard(ctx, s.cache, size); err == nil {
		return cached, nil
	}

	accounts, err := s.accounts.ListByProfit(ctx, s.pool, size)
	if err != nil {
		return nil, domain.ErrInternal("load leaderboard", err)
	}
	if err := projection.PutLeaderboard(ctx, s.cache, size, accounts); err != nil {
		s.logger.Debug("cache leaderboard", "error", err)
	}
	return accounts, nil
}

func collectAccountSummaries(rows pgx.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Profit, &a.Wins, &a.Losses); err != nil {
			return nil, domain.ErrInternal("scan account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
