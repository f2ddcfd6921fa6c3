package ledger

import (
	"fmt"
	"strings"
	"sync"
)

const (
	WorkMin   = 100
	WorkMax   = 300
	DailyMin  = 100
	DailyMax  = 400
	GambleMin = 1
	GambleMax = 1000
)

// Source supplies uniform random integers in [0, n).
// *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.src.IntN(n)
}

type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

var choices = [...]Choice{Rock, Paper, Scissors}

// ParseChoice accepts rock, paper or scissors in any case.
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range choices {
		if c == valid {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %q, must be one of rock, paper or scissors", ErrInvalidChoice, s)
}

// Beats reports whether c wins against other.
func (c Choice) Beats(other Choice) bool {
	switch c {
	case Rock:
		return other == Scissors
	case Scissors:
		return other == Paper
	case Paper:
		return other == Rock
	default:
		return false
	}
}

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// ResolveRPS scores player against house.
func ResolveRPS(player, house Choice) Outcome {
	switch {
	case player == house:
		return OutcomeDraw
	case player.Beats(house):
		return OutcomeWin
	default:
		return OutcomeLose
	}
}

func WorkPayout(src Source) int64 { return uniform(src, WorkMin, WorkMax) }

func DailyReward(src Source) int64 { return uniform(src, DailyMin, DailyMax) }

// CoinFlip returns true on a win.
func CoinFlip(src Source) bool { return src.IntN(2) == 0 }

func HouseChoice(src Source) Choice { return choices[src.IntN(len(choices))] }

// ValidateGambleAmount checks amount against the gamble bounds.
func ValidateGambleAmount(amount int64) error {
	if amount < GambleMin || amount > GambleMax {
		return fmt.Errorf("%w: gamble amount must be between %d and %d", ErrInvalidWager, GambleMin, GambleMax)
	}

	return nil
}

func uniform(src Source, lo, hi int64) int64 {
	return lo + int64(src.IntN(int(hi-lo+1)))
}
