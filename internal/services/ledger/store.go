package ledger

import (
	"sync"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
)

type entry struct {
	mu      sync.Mutex
	account accounts.Account
}

// store is the in-memory account table. The map is guarded by mu; each
// account has its own lock so different accounts never wait on each other.
// Lock order is always store.mu before entry.mu, and entry locks are never
// held while acquiring store.mu.
type store struct {
	mu              sync.RWMutex
	entries         map[string]*entry
	order           []string
	startingBalance int64
}

func newStore(startingBalance int64) *store {
	return &store{
		entries:         make(map[string]*entry),
		startingBalance: startingBalance,
	}
}

// ensure returns the entry for id, inserting the default record if needed.
// created is true only for the call that inserted it.
func (s *store) ensure(id string) (e *entry, created bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok = s.entries[id]
	if ok {
		return e, false
	}

	e = &entry{account: accounts.NewAccount(s.startingBalance)}
	s.entries[id] = e
	s.order = append(s.order, id)

	return e, true
}

// update runs fn on a working copy of the account under its lock. The copy
// replaces the stored record only when fn returns nil.
func (s *store) update(id string, fn func(a *accounts.Account) error) (created bool, err error) {
	e, created := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.account.Clone()

	err = fn(&working)
	if err != nil {
		return created, err
	}

	e.account = working

	return created, nil
}

func (s *store) get(id string) (acc accounts.Account, created bool) {
	e, created := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.account.Clone(), created
}

// snapshot copies the table in insertion order. Each record is consistent
// on its own; there are no cross-account transactions to tear.
func (s *store) snapshot() accounts.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := make(accounts.Table, 0, len(s.order))

	for _, id := range s.order {
		e := s.entries[id]

		e.mu.Lock()
		table = append(table, accounts.Record{ID: id, Account: e.account.Clone()})
		e.mu.Unlock()
	}

	return table
}

// restore replaces the whole table. Duplicate ids keep the first record.
func (s *store) restore(table accounts.Table) {
	entries := make(map[string]*entry, len(table))
	order := make([]string, 0, len(table))

	for _, rec := range table {
		if _, dup := entries[rec.ID]; dup {
			continue
		}

		acc := rec.Account.Clone()
		entries[rec.ID] = &entry{account: acc}
		order = append(order, rec.ID)
	}

	s.mu.Lock()
	s.entries = entries
	s.order = order
	s.mu.Unlock()
}

func (s *store) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
