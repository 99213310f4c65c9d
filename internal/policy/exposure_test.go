package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateExposure_AllowsWithinLimits(t *testing.T) {
	policy := DefaultExposurePolicy()
	result := EvaluateExposure(policy, 500, CommitOffer, 0)
	assert.True(t, result.Allowed)
}

func TestEvaluateExposure_BlocksOfferOverLimit(t *testing.T) {
	policy := DefaultExposurePolicy()
	result := EvaluateExposure(policy, 15_000, CommitOffer, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "single_offer", result.BreachedLimit)
}

func TestEvaluateExposure_BlocksStakeOverLimit(t *testing.T) {
	policy := DefaultExposurePolicy()
	result := EvaluateExposure(policy, 6_000, CommitStake, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "single_stake", result.BreachedLimit)
}

func TestEvaluateExposure_OfferLimitDoesNotApplyToStakes(t *testing.T) {
	policy := ExposurePolicy{SingleOfferMax: 100, SingleStakeMax: 0, DailyRiskMax: 0}
	result := EvaluateExposure(policy, 500, CommitStake, 0)
	assert.True(t, result.Allowed)
}

func TestEvaluateExposure_BlocksDailyRiskOverLimit(t *testing.T) {
	policy := DefaultExposurePolicy()
	// Already committed 24_000, trying 2_000 more (total 26_000 > 25_000)
	result := EvaluateExposure(policy, 2_000, CommitStake, 24_000)
	assert.False(t, result.Allowed)
	assert.Equal(t, "daily_risk", result.BreachedLimit)
}

func TestEvaluateExposure_AllowsAtDailyRiskBoundary(t *testing.T) {
	policy := DefaultExposurePolicy()
	result := EvaluateExposure(policy, 1_000, CommitStake, 24_000)
	assert.True(t, result.Allowed)
}

func TestEvaluateExposure_ZeroLimitsDisableChecks(t *testing.T) {
	policy := ExposurePolicy{}
	result := EvaluateExposure(policy, 1_000_000, CommitOffer, 1_000_000)
	assert.True(t, result.Allowed)
}
