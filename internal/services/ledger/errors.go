package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidWager      = errors.New("invalid wager")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrUnknownItem       = errors.New("unknown item")
	ErrInvalidAccount    = errors.New("invalid account id")
)

// CooldownError is returned when a gated reward is claimed too early.
// It matches ErrCooldownActive.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	r := SplitRemaining(e.Remaining)

	return fmt.Sprintf("cooldown active: %d days, %d hours, and %d minutes remaining", r.Days, r.Hours, r.Minutes)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
