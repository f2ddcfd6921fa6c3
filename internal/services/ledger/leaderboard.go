package ledger

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
)

const DefaultLeaderboardSize = 10

// NameResolver turns an account id into a display name.
type NameResolver interface {
	ResolveName(ctx context.Context, accountID string) (string, error)
}

type idNames struct{}

func (idNames) ResolveName(_ context.Context, accountID string) (string, error) {
	return accountID, nil
}

type Standing struct {
	Rank      int
	AccountID string
	Name      string
	Balance   int64
}

// rank orders the table by balance, highest first. Equal balances keep
// insertion order.
func rank(table accounts.Table, n int) accounts.Table {
	slices.SortStableFunc(table, func(a, b accounts.Record) int {
		return cmp.Compare(b.Account.Balance, a.Account.Balance)
	})

	if n < len(table) {
		table = table[:n]
	}

	return table
}

// TopN returns the n richest accounts. n <= 0 uses the configured size.
// A name that cannot be resolved falls back to the account id.
func (s *Service) TopN(ctx context.Context, n int) ([]Standing, error) {
	if n <= 0 {
		n = s.leaderboardSize
	}

	top := rank(s.store.snapshot(), n)
	out := make([]Standing, 0, len(top))

	for i, rec := range top {
		name, err := s.names.ResolveName(ctx, rec.ID)
		if err != nil || name == "" {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			slog.Debug("resolve name failed", "account_id", rec.ID, "error", err)

			name = rec.ID
		}

		out = append(out, Standing{
			Rank:      i + 1,
			AccountID: rec.ID,
			Name:      name,
			Balance:   rec.Account.Balance,
		})
	}

	return out, nil
}
