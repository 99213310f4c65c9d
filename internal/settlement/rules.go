package settlement

import (
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
)

// RakePercent is the house cut withheld from the pooled stake at settlement.
const RakePercent = 5

// DetermineWinner resolves a score-based wager given the final scores and the
// bookie's chosen side. Scores landing exactly on the line settle as a push.
// Proposition and futures wagers have no score rule and return an error.
func DetermineWinner(t domain.WagerType, bookieSide domain.Side, value float64, homeScore, awayScore int) (domain.Winner, error) {
	diff := float64(homeScore - awayScore)

	switch t {
	case domain.WagerSpread:
		adjusted := diff + value
		if bookieSide == domain.SideAway {
			adjusted = diff - value
		}
		switch {
		case adjusted == 0:
			return domain.WinnerPush, nil
		case bookieSide == domain.SideHome && adjusted > 0:
			return domain.WinnerBookie, nil
		case bookieSide == domain.SideAway && adjusted < 0:
			return domain.WinnerBookie, nil
		default:
			return domain.WinnerBettor, nil
		}

	case domain.WagerMoneyline:
		if homeScore == awayScore {
			return domain.WinnerPush, nil
		}
		homeWon := homeScore > awayScore
		if (bookieSide == domain.SideHome) == homeWon {
			return domain.WinnerBookie, nil
		}
		return domain.WinnerBettor, nil

	case domain.WagerTotal:
		total := float64(homeScore + awayScore)
		switch {
		case total == value:
			return domain.WinnerPush, nil
		case bookieSide == domain.SideOver && total > value:
			return domain.WinnerBookie, nil
		case bookieSide == domain.SideUnder && total < value:
			return domain.WinnerBookie, nil
		default:
			return domain.WinnerBettor, nil
		}
	}

	return "", fmt.Errorf("wager type %q has no automatic score rule", t)
}

// Payout is the winner's credit from the pooled stake after the rake:
// stake x 2 x (1 - rake). Integer credits, truncated.
func Payout(stake int64) int64 {
	return stake * 2 * (100 - RakePercent) / 100
}

// Rake is the amount withheld from the pool per settlement.
func Rake(stake int64) int64 {
	return stake*2 - Payout(stake)
}
