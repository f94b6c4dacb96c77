// Package ledgertest provides an in-memory ledger repository with transactional
// copy-on-write semantics for tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

type seqKey struct {
	orgID int64
	typ   ledger.VoucherType
	year  int
}

type state struct {
	accounts  map[int64]ledger.Account
	vouchers  map[int64]ledger.Voucher
	entries   []ledger.LedgerEntry
	sequences map[seqKey]int64
	nextID    int64
}

func newState() *state {
	return &state{
		accounts:  map[int64]ledger.Account{},
		vouchers:  map[int64]ledger.Voucher{},
		sequences: map[seqKey]int64{},
	}
}

func (s *state) clone() *state {
	out := &state{
		accounts:  make(map[int64]ledger.Account, len(s.accounts)),
		vouchers:  make(map[int64]ledger.Voucher, len(s.vouchers)),
		entries:   make([]ledger.LedgerEntry, len(s.entries)),
		sequences: make(map[seqKey]int64, len(s.sequences)),
		nextID:    s.nextID,
	}
	for id, a := range s.accounts {
		out.accounts[id] = a
	}
	for id, v := range s.vouchers {
		v.Entries = append([]ledger.VoucherEntry(nil), v.Entries...)
		out.vouchers[id] = v
	}
	copy(out.entries, s.entries)
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type txKey struct{}

// Memory implements ledger.RepositoryPort. Transactions are serialized by a mutex and work on
// a private copy that replaces the committed state only when fn succeeds.
type Memory struct {
	mu            sync.Mutex
	st            *state
	corruptAdjust bool
	collisions    int
}

// NewMemory constructs an empty repository.
func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// WithinTx runs fn in a unit of work that ledger calls made with the returned context join.
func (m *Memory) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}
	ctx, runHooks := db.WithCommitHooks(ctx)
	if err := m.commit(ctx, fn); err != nil {
		return err
	}
	runHooks()
	return nil
}

func (m *Memory) commit(ctx context.Context, fn func(context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m, st: m.st.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	m.st = tx.st
	return nil
}

// WithTx implements ledger.RepositoryPort.
func (m *Memory) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx, tx)
	}
	return m.WithinTx(ctx, func(ctx context.Context) error {
		return fn(ctx, ctx.Value(txKey{}).(*memTx))
	})
}

// read runs fn against the transaction state carried by ctx or the committed state.
func (m *Memory) read(ctx context.Context, fn func(*state)) {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		fn(tx.st)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.st)
}

// CorruptNextAdjust makes the next balance adjustment report a wrong balance.
func (m *Memory) CorruptNextAdjust() {
	m.mu.Lock()
	m.corruptAdjust = true
	m.mu.Unlock()
}

// CollideNextNumbers makes the next n voucher stores fail with ledger.ErrDuplicateNumber, as a
// concurrent writer taking the same number would.
func (m *Memory) CollideNextNumbers(n int) {
	m.mu.Lock()
	m.collisions = n
	m.mu.Unlock()
}

// SeedVoucher stores a voucher as-is, bypassing numbering.
func (m *Memory) SeedVoucher(v ledger.Voucher) ledger.Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.st.id()
	v.Entries = append([]ledger.VoucherEntry(nil), v.Entries...)
	m.st.vouchers[v.ID] = v
	return v
}

// SetBalance overwrites a stored balance without ledger history.
func (m *Memory) SetBalance(accountID int64, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.st.accounts[accountID]
	acc.CurrentBalance = balance
	m.st.accounts[accountID] = acc
}

// Entries returns a copy of every committed ledger entry.
func (m *Memory) Entries() []ledger.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.LedgerEntry(nil), m.st.entries...)
}

// VoucherCount returns the number of committed vouchers.
func (m *Memory) VoucherCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.vouchers)
}

func (m *Memory) GetAccount(ctx context.Context, orgID, id int64) (ledger.Account, error) {
	var (
		acc ledger.Account
		err error
	)
	m.read(ctx, func(st *state) {
		a, ok := st.accounts[id]
		if !ok || a.OrgID != orgID || a.IsDeleted {
			err = ledger.ErrAccountNotFound
			return
		}
		acc = a
	})
	return acc, err
}

func (m *Memory) ListAccounts(ctx context.Context, orgID int64) ([]ledger.Account, error) {
	var out []ledger.Account
	m.read(ctx, func(st *state) {
		for _, a := range st.accounts {
			if a.OrgID == orgID && !a.IsDeleted {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) GetVoucher(ctx context.Context, orgID, id int64) (ledger.Voucher, error) {
	var (
		v   ledger.Voucher
		err error
	)
	m.read(ctx, func(st *state) {
		found, ok := st.vouchers[id]
		if !ok || found.OrgID != orgID {
			err = ledger.ErrVoucherNotFound
			return
		}
		found.Entries = append([]ledger.VoucherEntry(nil), found.Entries...)
		v = found
	})
	return v, err
}

func (m *Memory) ListVouchers(ctx context.Context, orgID int64, filter ledger.VoucherFilter) ([]ledger.Voucher, error) {
	var out []ledger.Voucher
	m.read(ctx, func(st *state) {
		for _, v := range st.vouchers {
			if v.OrgID != orgID {
				continue
			}
			if filter.Status != "" && v.Status != filter.Status {
				continue
			}
			if filter.Type != "" && v.Type != filter.Type {
				continue
			}
			if filter.FiscalPeriod != "" && v.FiscalPeriod != filter.FiscalPeriod {
				continue
			}
			v.Entries = nil
			out = append(out, v)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) ListEntriesByVoucher(ctx context.Context, orgID, voucherID int64) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	m.read(ctx, func(st *state) {
		for _, e := range st.entries {
			if e.OrgID == orgID && e.VoucherID == voucherID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

func (m *Memory) ListEntriesByAccount(ctx context.Context, orgID, accountID int64, filter ledger.EntryFilter) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	m.read(ctx, func(st *state) {
		for _, e := range st.entries {
			if e.OrgID != orgID || e.AccountID != accountID {
				continue
			}
			if filter.From != nil && e.CreatedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !e.CreatedAt.Before(*filter.To) {
				continue
			}
			out = append(out, e)
		}
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) Snapshot(ctx context.Context, orgID int64) (ledger.LedgerSnapshot, error) {
	var snap ledger.LedgerSnapshot
	totals := map[int64]ledger.AccountEntryTotals{}
	m.read(ctx, func(st *state) {
		for _, a := range st.accounts {
			if a.OrgID == orgID {
				snap.Accounts = append(snap.Accounts, a)
			}
		}
		for _, e := range st.entries {
			if e.OrgID != orgID {
				continue
			}
			t := totals[e.AccountID]
			t.AccountID = e.AccountID
			if e.Side == ledger.SideDebit {
				t.Debit = t.Debit.Add(e.Amount)
			} else {
				t.Credit = t.Credit.Add(e.Amount)
			}
			totals[e.AccountID] = t
		}
	})
	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].Code < snap.Accounts[j].Code })
	snap.Totals = make([]ledger.AccountEntryTotals, 0, len(totals))
	for _, t := range totals {
		snap.Totals = append(snap.Totals, t)
	}
	sort.Slice(snap.Totals, func(i, j int) bool { return snap.Totals[i].AccountID < snap.Totals[j].AccountID })
	return snap, nil
}

func (m *Memory) ListOrganizations(ctx context.Context) ([]int64, error) {
	seen := map[int64]struct{}{}
	m.read(ctx, func(st *state) {
		for _, a := range st.accounts {
			seen[a.OrgID] = struct{}{}
		}
	})
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var (
	_ ledger.RepositoryPort = (*Memory)(nil)
	_ ledger.TxRepository   = (*memTx)(nil)
)
