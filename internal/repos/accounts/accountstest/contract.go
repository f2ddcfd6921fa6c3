// Package accountstest holds the behaviour every accounts.Repository backend must share.
package accountstest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContract exercises repo against the Repository contract. newRepo must
// return a repository backed by fresh, empty storage on every call.
func RunContract(t *testing.T, newRepo func(t *testing.T) accounts.Repository) {
	t.Helper()

	t.Run("load_empty", func(t *testing.T) {
		repo := newRepo(t)

		table, err := repo.Load(ctx(t))
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("save_load_roundtrip", func(t *testing.T) {
		repo := newRepo(t)

		claim := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		want := accounts.Table{
			{ID: "9001", Account: accounts.Account{
				Balance:        1337,
				LastDailyClaim: &claim,
				Inventory:      map[string]int64{"snoopy": 1, "cheese": 4},
			}},
			{ID: "17", Account: accounts.NewAccount(1000)},
		}

		require.NoError(t, repo.Save(ctx(t), want))

		got, err := repo.Load(ctx(t))
		require.NoError(t, err)
		AssertTablesEqual(t, want, got)
	})

	t.Run("save_overwrites", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Save(ctx(t), accounts.Table{{ID: "1", Account: accounts.NewAccount(5)}}))

		want := accounts.Table{
			{ID: "1", Account: accounts.NewAccount(50)},
			{ID: "2", Account: accounts.NewAccount(60)},
		}
		require.NoError(t, repo.Save(ctx(t), want))

		got, err := repo.Load(ctx(t))
		require.NoError(t, err)
		AssertTablesEqual(t, want, got)
	})

	t.Run("concurrent_saves_never_interleave", func(t *testing.T) {
		repo := newRepo(t)

		var wg sync.WaitGroup

		for w := range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				table := make(accounts.Table, 0, 50)
				for i := range 50 {
					table = append(table, accounts.Record{
						ID:      fmt.Sprintf("acc-%d", i),
						Account: accounts.NewAccount(int64(w)),
					})
				}

				assert.NoError(t, repo.Save(ctx(t), table))
			}()
		}

		wg.Wait()

		got, err := repo.Load(ctx(t))
		require.NoError(t, err)
		require.Len(t, got, 50)

		// every record must come from the same writer
		first := got[0].Account.Balance
		for _, rec := range got {
			assert.Equal(t, first, rec.Account.Balance, "record %s from a different writer", rec.ID)
		}
	})
}

// AssertTablesEqual compares two tables field by field, including order.
func AssertTablesEqual(t *testing.T, want, got accounts.Table) {
	t.Helper()

	require.Len(t, got, len(want))

	for i := range want {
		w, g := want[i], got[i]

		assert.Equal(t, w.ID, g.ID, "id at %d", i)
		assert.Equal(t, w.Account.Balance, g.Account.Balance, "balance of %s", w.ID)
		assertTime(t, w.Account.LastDailyClaim, g.Account.LastDailyClaim)
		assertTime(t, w.Account.LastWork, g.Account.LastWork)
		assertTime(t, w.Account.LastGamble, g.Account.LastGamble)
		assertTime(t, w.Account.LastRPS, g.Account.LastRPS)
		assert.Len(t, g.Account.Inventory, len(w.Account.Inventory), "inventory of %s", w.ID)

		for item, qty := range w.Account.Inventory {
			assert.Equal(t, qty, g.Account.Inventory[item], "%s of %s", item, w.ID)
		}
	}
}

func assertTime(t *testing.T, want, got *time.Time) {
	t.Helper()

	if want == nil {
		assert.Nil(t, got)
		return
	}

	if assert.NotNil(t, got) {
		assert.True(t, want.Equal(*got), "want %v, got %v", *want, *got)
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)

	return c
}
