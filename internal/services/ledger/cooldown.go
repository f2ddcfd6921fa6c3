package ledger

import "time"

// DailyInterval is the default wait between two daily claims.
const DailyInterval = 24 * time.Hour

type Eligibility struct {
	Eligible  bool
	Remaining time.Duration
}

// CanClaim reports whether a reward last claimed at last may be claimed at now.
// A nil last means it was never claimed.
func CanClaim(now time.Time, last *time.Time, interval time.Duration) Eligibility {
	if last == nil {
		return Eligibility{Eligible: true}
	}

	next := last.Add(interval)
	if !now.Before(next) {
		return Eligibility{Eligible: true}
	}

	return Eligibility{Remaining: next.Sub(now)}
}

// Remaining is a wait time broken down for display.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// SplitRemaining breaks d into whole days, hours, minutes and seconds.
// Negative durations are treated as zero.
func SplitRemaining(d time.Duration) Remaining {
	if d <= 0 {
		return Remaining{}
	}

	total := int(d / time.Second)

	return Remaining{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}
