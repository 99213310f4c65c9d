package domain

import (
	"fmt"
	"regexp"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-]{3,32}$`)

// ValidateUsername checks the username format.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-32 characters: letters, digits, underscore, hyphen")
	}
	return nil
}

// ValidatePositiveAmount checks that a credit amount is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateRating checks the 1-5 rating bounds.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	return nil
}

// ValidateParlayLegCount checks the 2-10 leg bounds.
func ValidateParlayLegCount(n int) error {
	if n < ParlayMinLegs || n > ParlayMaxLegs {
		return fmt.Errorf("parlay needs %d-%d legs, got %d", ParlayMinLegs, ParlayMaxLegs, n)
	}
	return nil
}

// ValidateSideForType checks that the bookie's side fits the wager type.
func ValidateSideForType(t WagerType, s Side) error {
	switch t {
	case WagerTotal:
		if s != SideOver && s != SideUnder {
			return fmt.Errorf("total wagers take side over or under, got %q", s)
		}
	case WagerSpread, WagerMoneyline:
		if s != SideHome && s != SideAway {
			return fmt.Errorf("%s wagers take side home or away, got %q", t, s)
		}
	case WagerProposition, WagerFuture:
		if s == "" {
			return fmt.Errorf("side is required")
		}
	default:
		return fmt.Errorf("unknown wager type %q", t)
	}
	return nil
}
