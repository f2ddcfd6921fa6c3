package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository that can be told to fail.
type memRepo struct {
	mu      sync.Mutex
	table   accounts.Table
	saves   int
	failing bool
	loadErr error
}

func (r *memRepo) Load(context.Context) (accounts.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return accounts.Table{}, r.loadErr
	}

	out := make(accounts.Table, len(r.table))
	for i, rec := range r.table {
		out[i] = accounts.Record{ID: rec.ID, Account: rec.Account.Clone()}
	}

	return out, nil
}

func (r *memRepo) Save(_ context.Context, table accounts.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing {
		return fmt.Errorf("%w: disk full", accounts.ErrPersistenceFailure)
	}

	r.table = table
	r.saves++

	return nil
}

func (r *memRepo) setFailing(v bool) {
	r.mu.Lock()
	r.failing = v
	r.mu.Unlock()
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saves
}

func (r *memRepo) balanceOf(id string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.table {
		if rec.ID == id {
			return rec.Account.Balance, true
		}
	}

	return 0, false
}

// scriptedSource replays vals, each reduced modulo n.
type scriptedSource struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func script(vals ...int) *scriptedSource { return &scriptedSource{vals: vals} }

func (s *scriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vals[s.i%len(s.vals)]
	s.i++

	return v % n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingNames struct{}

func (failingNames) ResolveName(context.Context, string) (string, error) {
	return "", errors.New("gateway down")
}

func newTestService(t *testing.T, repo accounts.Repository, cfg Config) *Service {
	t.Helper()

	svc, err := New(repo, cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	return svc
}
