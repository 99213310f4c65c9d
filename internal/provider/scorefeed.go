package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/google/uuid"
)

// feedNamespace maps the feed's string event IDs onto stable market UUIDs.
var feedNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// MarketIDForFeedEvent derives the deterministic market UUID for a feed
// event ID. Re-syncs of the same event always land on the same row.
func MarketIDForFeedEvent(feedID string) uuid.UUID {
	return uuid.NewSHA1(feedNamespace, []byte(feedID))
}

type feedEvent struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Completed    bool        `json:"completed"`
	LastUpdate   string      `json:"last_update"`
	Scores       []feedScore `json:"scores"`
}

type feedScore struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// ScoreFeedClient pulls market schedules and final scores from the external
// score feed. Calls run through a circuit breaker so a flapping feed backs
// off instead of hammering.
type ScoreFeedClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *guard.CircuitBreaker
	logger  *slog.Logger
}

const scoreFeedCircuitKey = "score-feed"

// NewScoreFeedClient creates a score feed client.
func NewScoreFeedClient(baseURL, apiKey string, breaker *guard.CircuitBreaker, logger *slog.Logger) *ScoreFeedClient {
	return &ScoreFeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: breaker,
		logger:  logger,
	}
}

func (c *ScoreFeedClient) get(ctx context.Context, path string) ([]byte, error) {
	if res := c.breaker.Check(ctx, scoreFeedCircuitKey); !res.Allowed {
		return nil, fmt.Errorf("score feed unavailable: %s", res.Reason)
	}

	url := c.baseURL + path
	if strings.Contains(path, "?") {
		url += "&apiKey=" + c.apiKey
	} else {
		url += "?apiKey=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure(scoreFeedCircuitKey)
		return nil, fmt.Errorf("score feed request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure(scoreFeedCircuitKey)
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("score feed returned %d: %s", resp.StatusCode, string(snippet))
	}

	c.breaker.RecordSuccess(scoreFeedCircuitKey)
	return body, nil
}

// FetchMarkets returns the feed's scheduled games for a sport as markets.
// Events with malformed commence times keep a zero CommenceTime; they stay
// open for offers until the feed reports them live.
func (c *ScoreFeedClient) FetchMarkets(ctx context.Context, sportKey string) ([]domain.Market, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v4/sports/%s/events", sportKey))
	if err != nil {
		return nil, err
	}

	var events []feedEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	markets := make([]domain.Market, 0, len(events))
	for _, e := range events {
		m := domain.Market{
			ID:     MarketIDForFeedEvent(e.ID),
			Kind:   domain.MarketGame,
			Sport:  e.SportKey,
			Home:   e.HomeTeam,
			Away:   e.AwayTeam,
			Status: domain.MarketUpcoming,
		}
		if t, err := time.Parse(time.RFC3339, e.CommenceTime); err == nil {
			m.CommenceTime = t
		} else {
			c.logger.Warn("score feed malformed commence time", "event_id", e.ID, "value", e.CommenceTime)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// FetchScores returns score updates for a sport. The feed reports in-progress
// games with scores and a completed flag once final.
func (c *ScoreFeedClient) FetchScores(ctx context.Context, sportKey string) ([]domain.ScoreUpdate, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v4/sports/%s/scores?daysFrom=1", sportKey))
	if err != nil {
		return nil, err
	}

	var events []feedEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}

	var updates []domain.ScoreUpdate
	for _, e := range events {
		if len(e.Scores) == 0 {
			continue
		}

		update := domain.ScoreUpdate{
			MarketID: MarketIDForFeedEvent(e.ID),
			Status:   domain.MarketLive,
		}
		if e.Completed {
			update.Status = domain.MarketFinal
		}
		if t, err := time.Parse(time.RFC3339, e.LastUpdate); err == nil {
			update.FeedTime = t
		}

		for _, s := range e.Scores {
			n, err := parseScore(s.Score)
			if err != nil {
				c.logger.Warn("score feed malformed score", "event_id", e.ID, "value", s.Score)
				continue
			}
			switch s.Name {
			case e.HomeTeam:
				update.HomeScore = n
			case e.AwayTeam:
				update.AwayScore = n
			}
		}
		updates = append(updates, update)
	}
	return updates, nil
}

func parseScore(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	return n, err
}
