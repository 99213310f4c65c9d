package settlement

import (
	"math"

	"github.com/bookieverse/platform/internal/domain"
)

// Parlay payout: stake x 2.5^legs x 0.95. The multiplier is a fixed geometric
// factor per leg with no per-leg odds variation.
const (
	parlayLegMultiplier = 2.5
	parlayPayoutFactor  = 0.95
)

// ParlayPayout computes the combined payout for a winning parlay over
// effectiveLegs legs (pushed legs drop out of the multiplier).
func ParlayPayout(stake int64, effectiveLegs int) int64 {
	if effectiveLegs <= 0 {
		return stake // every leg pushed: stake returned
	}
	multiplier := math.Pow(parlayLegMultiplier, float64(effectiveLegs)) * parlayPayoutFactor
	return int64(float64(stake) * multiplier)
}

// ParlayOutcome is the resolution of a whole parlay.
type ParlayOutcome struct {
	Status        domain.ParlayStatus
	EffectiveLegs int   // legs that counted toward the multiplier
	Payout        int64 // credited to the bettor when Status == ParlayWon
}

// ResolveParlay folds per-leg results into a parlay outcome. A leg result is
// the single-wager winner for that leg's offer terms: the parlay bettor takes
// the side opposite the leg's bookie, so the bettor needs WinnerBettor on
// every counted leg. Any bookie-won leg loses the parlay; pushed legs void
// and shrink the multiplier.
func ResolveParlay(stake int64, legResults []domain.Winner) ParlayOutcome {
	effective := 0
	for _, r := range legResults {
		switch r {
		case domain.WinnerBookie:
			return ParlayOutcome{Status: domain.ParlayLost}
		case domain.WinnerPush:
			// voided leg
		default:
			effective++
		}
	}
	return ParlayOutcome{
		Status:        domain.ParlayWon,
		EffectiveLegs: effective,
		Payout:        ParlayPayout(stake, effective),
	}
}
