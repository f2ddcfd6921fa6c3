package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanClaim(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name          string
		last          *time.Time
		wantEligible  bool
		wantRemaining time.Duration
	}{
		{"never_claimed", nil, true, 0},
		{"claimed_just_now", at(0), false, 24 * time.Hour},
		{"one_minute_short", at(24*time.Hour - time.Minute), false, time.Minute},
		{"exactly_interval", at(24 * time.Hour), true, 0},
		{"long_ago", at(72 * time.Hour), true, 0},
		{"clock_went_back", at(-time.Hour), false, 25 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CanClaim(now, tt.last, DailyInterval)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
		})
	}
}

func TestSplitRemaining(t *testing.T) {
	t.Parallel()

	got := SplitRemaining(26*time.Hour + 3*time.Minute + 9*time.Second + 500*time.Millisecond)
	assert.Equal(t, Remaining{Days: 1, Hours: 2, Minutes: 3, Seconds: 9}, got)

	assert.Equal(t, Remaining{}, SplitRemaining(-time.Minute))
}

func TestCooldownError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("daily: %w", &CooldownError{Remaining: 5*time.Hour + 30*time.Minute})

	assert.True(t, errors.Is(err, ErrCooldownActive))

	var cdErr *CooldownError
	assert.True(t, errors.As(err, &cdErr))
	assert.Equal(t, 5*time.Hour+30*time.Minute, cdErr.Remaining)
	assert.Contains(t, err.Error(), "0 days, 5 hours, and 30 minutes")
}
