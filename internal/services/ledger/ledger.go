package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
)

const DefaultStartingBalance = 1000

// Config tunes a Service. Zero values fall back to the defaults noted.
type Config struct {
	StartingBalance    int64         // DefaultStartingBalance
	DailyCooldown      time.Duration // DailyInterval
	FlushInterval      time.Duration // 0: flush after every mutation
	FlushRetryInterval time.Duration // 0: no background retries in sync mode
	LeaderboardSize    int           // DefaultLeaderboardSize

	Source Source           // auto-seeded PCG
	Clock  func() time.Time // time.Now
	Items  []Item           // DefaultItems
	Names  NameResolver     // account id is used as the name
}

// Service is the transaction engine. Every check and the effect it guards
// run inside one per-account critical section.
type Service struct {
	store   *store
	flusher *Flusher
	repo    accounts.Repository
	catalog *Catalog
	rnd     *lockedSource
	now     func() time.Time
	names   NameResolver

	dailyCooldown   time.Duration
	leaderboardSize int
}

func New(repo accounts.Repository, cfg Config) (*Service, error) {
	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = DefaultStartingBalance
	}

	if cfg.DailyCooldown <= 0 {
		cfg.DailyCooldown = DailyInterval
	}

	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = DefaultLeaderboardSize
	}

	if cfg.Source == nil {
		cfg.Source = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Items == nil {
		cfg.Items = DefaultItems
	}

	if cfg.Names == nil {
		cfg.Names = idNames{}
	}

	catalog, err := NewCatalog(cfg.Items)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	s := &Service{
		store:           newStore(cfg.StartingBalance),
		repo:            repo,
		catalog:         catalog,
		rnd:             &lockedSource{src: cfg.Source},
		now:             cfg.Clock,
		names:           cfg.Names,
		dailyCooldown:   cfg.DailyCooldown,
		leaderboardSize: cfg.LeaderboardSize,
	}

	s.flusher = NewFlusher(repo, s.store.snapshot, cfg.FlushInterval, cfg.FlushRetryInterval)

	return s, nil
}

// Load replaces the in-memory table with the persisted one. A corrupt
// document leaves the table empty; the returned error then wraps
// accounts.ErrCorruptState and the service stays usable.
func (s *Service) Load(ctx context.Context) error {
	table, err := s.repo.Load(ctx)
	if err != nil && !errors.Is(err, accounts.ErrCorruptState) {
		return fmt.Errorf("load accounts: %w", err)
	}

	s.store.restore(table)

	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	slog.Info("accounts loaded", "accounts", s.store.size())

	return nil
}

// Flush pushes any unsaved state to the repository.
func (s *Service) Flush(ctx context.Context) error {
	return s.flusher.Flush(ctx)
}

// Close stops background flushing and saves what is left.
func (s *Service) Close(ctx context.Context) error {
	return s.flusher.Close(ctx)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || !utf8.ValidString(id) {
		return ErrInvalidAccount
	}

	return nil
}

// commit runs fn as one transaction on the account and persists the result.
// When fn fails nothing is applied; a freshly created account is still
// persisted. A persistence error is returned after the commit and never
// undoes it.
func (s *Service) commit(ctx context.Context, id string, fn func(a *accounts.Account) error) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	created, err := s.store.update(id, fn)
	if err != nil {
		if created {
			s.persistQuietly(ctx)
		}

		return err
	}

	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	err := s.flusher.Notify(ctx)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	return nil
}

func (s *Service) persistQuietly(ctx context.Context) {
	err := s.persist(ctx)
	if err != nil {
		slog.Warn("persist new account failed, will retry", "error", err)
	}
}

// EnsureAccount creates the default record for id if it does not exist.
func (s *Service) EnsureAccount(ctx context.Context, id string) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	_, created := s.store.ensure(id)
	if !created {
		return nil
	}

	return s.persist(ctx)
}

// Account returns a copy of the account, creating it on first reference.
func (s *Service) Account(ctx context.Context, id string) (accounts.Account, error) {
	err := validateID(id)
	if err != nil {
		return accounts.Account{}, err
	}

	acc, created := s.store.get(id)
	if created {
		return acc, s.persist(ctx)
	}

	return acc, nil
}

func (s *Service) Balance(ctx context.Context, id string) (int64, error) {
	acc, err := s.Account(ctx, id)

	return acc.Balance, err
}

func credit(a *accounts.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit must be positive, got %d", ErrInvalidAmount, amount)
	}

	if a.Balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: credit of %d overflows balance", ErrInvalidAmount, amount)
	}

	a.Balance += amount

	return nil
}

func debit(a *accounts.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit must be positive, got %d", ErrInvalidAmount, amount)
	}

	if amount > a.Balance {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, a.Balance)
	}

	a.Balance -= amount

	return nil
}

// Credit adds amount to the balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	var balance int64

	err := s.commit(ctx, id, func(a *accounts.Account) error {
		err := credit(a, amount)
		balance = a.Balance

		return err
	})

	return balance, err
}

// Debit removes amount from the balance. It fails with ErrInsufficientFunds
// and leaves the balance untouched when amount exceeds it.
func (s *Service) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	var balance int64

	err := s.commit(ctx, id, func(a *accounts.Account) error {
		err := debit(a, amount)
		balance = a.Balance

		return err
	})

	return balance, err
}

type WorkResult struct {
	Payout  int64
	Balance int64
}

// Work pays a random amount in [WorkMin, WorkMax]. It has no cooldown.
func (s *Service) Work(ctx context.Context, id string) (WorkResult, error) {
	var res WorkResult

	err := s.commit(ctx, id, func(a *accounts.Account) error {
		res.Payout = WorkPayout(s.rnd)

		err := credit(a, res.Payout)
		if err != nil {
			return err
		}

		res.Balance = a.Balance

		return nil
	})

	return res, err
}

type DailyResult struct {
	Reward    int64
	Balance   int64
	ClaimedAt time.Time
}

// Daily pays the daily reward once per cooldown interval. An early claim
// returns a *CooldownError and changes nothing.
func (s *Service) Daily(ctx context.Context, id string) (DailyResult, error) {
	var res DailyResult

	err := s.commit(ctx, id, func(a *accounts.Account) error {
		now := s.now().UTC()

		elig := CanClaim(now, a.LastDailyClaim, s.dailyCooldown)
		if !elig.Eligible {
			return &CooldownError{Remaining: elig.Remaining}
		}

		res.Reward = DailyReward(s.rnd)

		err := credit(a, res.Reward)
		if err != nil {
			return err
		}

		a.LastDailyClaim = &now
		res.Balance = a.Balance
		res.ClaimedAt = now

		return nil
	})

	return res, err
}

type GambleResult struct {
	Won     bool
	Amount  int64
	Balance int64
}

// Gamble stakes amount on a fair coin flip: win adds it, loss removes it.
func (s *Service) Gamble(ctx context.Context, id string, amount int64) (GambleResult, error) {
	err := ValidateGambleAmount(amount)
	if err != nil {
		return GambleResult{}, err
	}

	res := GambleResult{Amount: amount}

	err = s.commit(ctx, id, func(a *accounts.Account) error {
		if amount > a.Balance {
			return fmt.Errorf("%w: cannot gamble %d with %d", ErrInsufficientFunds, amount, a.Balance)
		}

		apply := debit

		res.Won = CoinFlip(s.rnd)
		if res.Won {
			apply = credit
		}

		err := apply(a, amount)
		if err != nil {
			return err
		}

		res.Balance = a.Balance

		return nil
	})

	return res, err
}

type RPSResult struct {
	Player  Choice
	House   Choice
	Outcome Outcome
	Wager   int64
	// Payout is what was credited back: 2x wager on a win, the wager on a
	// draw, nothing on a loss.
	Payout  int64
	Balance int64
}

// RPS plays rock-paper-scissors against the house. The wager is staked up
// front and a win returns it doubled, so the net effect is +wager on a win,
// -wager on a loss and nothing on a draw.
func (s *Service) RPS(ctx context.Context, id string, wager int64, choice string) (RPSResult, error) {
	player, err := ParseChoice(choice)
	if err != nil {
		return RPSResult{}, err
	}

	if wager < 1 {
		return RPSResult{}, fmt.Errorf("%w: wager must be at least 1", ErrInvalidWager)
	}

	// a win pays 2 * wager
	if wager > math.MaxInt64/2 {
		return RPSResult{}, fmt.Errorf("%w: wager %d too large", ErrInvalidAmount, wager)
	}

	res := RPSResult{Player: player, Wager: wager}

	err = s.commit(ctx, id, func(a *accounts.Account) error {
		err := debit(a, wager)
		if err != nil {
			return err
		}

		res.House = HouseChoice(s.rnd)
		res.Outcome = ResolveRPS(player, res.House)

		switch res.Outcome {
		case OutcomeWin:
			res.Payout = 2 * wager
		case OutcomeDraw:
			res.Payout = wager
		case OutcomeLose:
		}

		if res.Payout > 0 {
			err = credit(a, res.Payout)
			if err != nil {
				return err
			}
		}

		res.Balance = a.Balance

		return nil
	})

	return res, err
}

type PurchaseResult struct {
	Item     Item
	Quantity int64
	Balance  int64
}

// Buy debits the item price and adds one to the inventory as a single unit.
func (s *Service) Buy(ctx context.Context, id, itemName string) (PurchaseResult, error) {
	item, err := s.catalog.Lookup(itemName)
	if err != nil {
		return PurchaseResult{}, err
	}

	res := PurchaseResult{Item: item}

	err = s.commit(ctx, id, func(a *accounts.Account) error {
		err := debit(a, item.Price)
		if err != nil {
			return err
		}

		a.Inventory[item.Key()]++
		res.Quantity = a.Inventory[item.Key()]
		res.Balance = a.Balance

		return nil
	})

	return res, err
}

// Inventory returns the owned items. The map is empty, not nil, when
// nothing was bought.
func (s *Service) Inventory(ctx context.Context, id string) (map[string]int64, error) {
	acc, err := s.Account(ctx, id)
	if acc.Inventory == nil {
		acc.Inventory = map[string]int64{}
	}

	return acc.Inventory, err
}

func (s *Service) Catalog() []Item {
	return s.catalog.Items()
}
