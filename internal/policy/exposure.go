package policy

// ExposurePolicy caps how much a single account can put at risk.
type ExposurePolicy struct {
	SingleOfferMax int64 `json:"single_offer_max"` // credits
	SingleStakeMax int64 `json:"single_stake_max"` // credits
	DailyRiskMax   int64 `json:"daily_risk_max"`   // credits committed per rolling day
}

// DefaultExposurePolicy returns the default exposure limits.
func DefaultExposurePolicy() ExposurePolicy {
	return ExposurePolicy{
		SingleOfferMax: 10_000,
		SingleStakeMax: 5_000,
		DailyRiskMax:   25_000,
	}
}

// ExposureEvaluation holds the result of an exposure check.
type ExposureEvaluation struct {
	Allowed       bool   `json:"allowed"`
	BreachedLimit string `json:"breached_limit,omitempty"`
	LimitValue    int64  `json:"limit_value,omitempty"`
	RequestedAmt  int64  `json:"requested_amount,omitempty"`
}

// Commitment kinds for exposure evaluation.
const (
	CommitOffer = "offer"
	CommitStake = "stake"
)

// EvaluateExposure checks a commitment amount against the account's exposure
// limits. dailyRisk is the total already committed in the current rolling day.
func EvaluateExposure(policy ExposurePolicy, amount int64, kind string, dailyRisk int64) ExposureEvaluation {
	if kind == CommitOffer && policy.SingleOfferMax > 0 && amount > policy.SingleOfferMax {
		return ExposureEvaluation{
			Allowed:       false,
			BreachedLimit: "single_offer",
			LimitValue:    policy.SingleOfferMax,
			RequestedAmt:  amount,
		}
	}

	if kind == CommitStake && policy.SingleStakeMax > 0 && amount > policy.SingleStakeMax {
		return ExposureEvaluation{
			Allowed:       false,
			BreachedLimit: "single_stake",
			LimitValue:    policy.SingleStakeMax,
			RequestedAmt:  amount,
		}
	}

	if policy.DailyRiskMax > 0 && dailyRisk+amount > policy.DailyRiskMax {
		return ExposureEvaluation{
			Allowed:       false,
			BreachedLimit: "daily_risk",
			LimitValue:    policy.DailyRiskMax,
			RequestedAmt:  dailyRisk + amount,
		}
	}

	return ExposureEvaluation{Allowed: true}
}
