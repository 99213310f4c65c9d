package domain

import "time"

// ComputeAccrual returns the idle-currency credit owed to an account whose
// last accrual happened at last, evaluated at now.
//
// The elapsed window is clamped to MaxOfflineHours so a long-dormant account
// cannot back-credit without bound. Only whole elapsed hours pay out; the
// fractional remainder is discarded each time the accrual timestamp advances
// to now, so calling twice within the same hour credits nothing the second
// time.
func ComputeAccrual(last, now time.Time) int64 {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	elapsed := now.Sub(last)
	if max := time.Duration(MaxOfflineHours) * time.Hour; elapsed > max {
		elapsed = max
	}
	wholeHours := int64(elapsed / time.Hour)
	return wholeHours * HourlyRate
}
