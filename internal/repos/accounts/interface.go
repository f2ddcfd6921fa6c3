package accounts

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	ErrCorruptState       = errors.New("corrupt state")
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Account is a single ledger record.
type Account struct {
	Balance        int64
	LastDailyClaim *time.Time

	// Reserved cooldown slots. They are persisted but no transaction gates on them.
	LastWork   *time.Time
	LastGamble *time.Time
	LastRPS    *time.Time

	// Inventory maps the lower-cased item name to the owned quantity.
	Inventory map[string]int64
}

// NewAccount returns the record a first-time user starts with.
func NewAccount(startingBalance int64) Account {
	return Account{
		Balance:   startingBalance,
		Inventory: make(map[string]int64),
	}
}

// Clone returns a deep copy that shares no memory with a.
func (a Account) Clone() Account {
	out := a
	out.LastDailyClaim = cloneTime(a.LastDailyClaim)
	out.LastWork = cloneTime(a.LastWork)
	out.LastGamble = cloneTime(a.LastGamble)
	out.LastRPS = cloneTime(a.LastRPS)

	out.Inventory = make(map[string]int64, len(a.Inventory))
	maps.Copy(out.Inventory, a.Inventory)

	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}

type Record struct {
	ID      string
	Account Account
}

// Table is the whole account table in insertion order.
type Table []Record

// Repository persists the account table as one durable document.
//
// Load returns an empty table when nothing was stored yet. When the stored
// document cannot be parsed it returns an empty table together with an error
// wrapping ErrCorruptState.
//
// Save replaces the stored document atomically. Write errors wrap
// ErrPersistenceFailure.
type Repository interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, table Table) error
}
