package ledgertest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type memTx struct {
	m  *Memory
	st *state
}

func (tx *memTx) accounts(orgID int64, ids []int64) map[int64]ledger.Account {
	out := make(map[int64]ledger.Account, len(ids))
	for _, id := range ids {
		if a, ok := tx.st.accounts[id]; ok && a.OrgID == orgID {
			out[id] = a
		}
	}
	return out
}

func (tx *memTx) GetAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]ledger.Account, error) {
	return tx.accounts(orgID, ids), nil
}

func (tx *memTx) LockAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]ledger.Account, error) {
	return tx.accounts(orgID, ids), nil
}

func (tx *memTx) LockAccount(ctx context.Context, orgID, id int64) (ledger.Account, error) {
	a, ok := tx.st.accounts[id]
	if !ok || a.OrgID != orgID {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (tx *memTx) FindAccountByCode(ctx context.Context, orgID int64, code string) (ledger.Account, error) {
	for _, a := range tx.st.accounts {
		if a.OrgID == orgID && a.Code == code && !a.IsDeleted {
			return a, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (tx *memTx) InsertAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	if _, err := tx.FindAccountByCode(ctx, acc.OrgID, acc.Code); err == nil {
		return ledger.Account{}, ledger.ErrDuplicateAccountCode
	}
	acc.ID = tx.st.id()
	acc.CurrentBalance = decimal.Zero
	tx.st.accounts[acc.ID] = acc
	return acc, nil
}

func (tx *memTx) UpdateAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	current, ok := tx.st.accounts[acc.ID]
	if !ok || current.OrgID != acc.OrgID {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	current.Name = acc.Name
	current.Category = acc.Category
	current.IsActive = acc.IsActive
	current.UpdatedAt = acc.UpdatedAt
	tx.st.accounts[acc.ID] = current
	return current, nil
}

func (tx *memTx) SetAccountGroup(ctx context.Context, orgID, id int64, isGroup bool) error {
	a, err := tx.LockAccount(ctx, orgID, id)
	if err != nil {
		return err
	}
	a.IsGroup = isGroup
	tx.st.accounts[id] = a
	return nil
}

func (tx *memTx) SoftDeleteAccount(ctx context.Context, orgID, id int64) error {
	a, err := tx.LockAccount(ctx, orgID, id)
	if err != nil || a.IsDeleted {
		return ledger.ErrAccountNotFound
	}
	a.IsDeleted = true
	a.IsActive = false
	tx.st.accounts[id] = a
	return nil
}

func (tx *memTx) CountActiveChildren(ctx context.Context, orgID, id int64) (int, error) {
	n := 0
	for _, a := range tx.st.accounts {
		if a.OrgID == orgID && !a.IsDeleted && a.ParentID != nil && *a.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) AccountHasEntries(ctx context.Context, orgID, id int64) (bool, error) {
	for _, e := range tx.st.entries {
		if e.OrgID == orgID && e.AccountID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) AccountHasOpenEntries(ctx context.Context, orgID, id int64) (bool, error) {
	for _, e := range tx.st.entries {
		if e.OrgID == orgID && e.AccountID == id && e.VoidedAt == nil && e.ReversalOf == nil {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) AdjustBalance(ctx context.Context, orgID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, err := tx.LockAccount(ctx, orgID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	tx.st.accounts[accountID] = a
	if tx.m.corruptAdjust {
		tx.m.corruptAdjust = false
		return a.CurrentBalance.Add(decimal.New(1, 0)), nil
	}
	return a.CurrentBalance, nil
}

func (tx *memTx) NextVoucherSequence(ctx context.Context, orgID int64, t ledger.VoucherType, fiscalYear int) (int64, error) {
	key := seqKey{orgID: orgID, typ: t, year: fiscalYear}
	last, ok := tx.st.sequences[key]
	if !ok {
		for _, v := range tx.st.vouchers {
			if v.OrgID != orgID {
				continue
			}
			if seq, ok := ledger.ParseVoucherSequence(v.Number, t, fiscalYear); ok && seq > last {
				last = seq
			}
		}
	}
	last++
	tx.st.sequences[key] = last
	return last, nil
}

func (tx *memTx) numberTaken(v ledger.Voucher) bool {
	if tx.m.collisions > 0 {
		tx.m.collisions--
		return true
	}
	for _, other := range tx.st.vouchers {
		if other.OrgID == v.OrgID && other.Number == v.Number && other.ID != v.ID {
			return true
		}
	}
	return false
}

func (tx *memTx) InsertVoucher(ctx context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	if tx.numberTaken(v) {
		return ledger.Voucher{}, ledger.ErrDuplicateNumber
	}
	v.ID = tx.st.id()
	v.Entries = append([]ledger.VoucherEntry(nil), v.Entries...)
	tx.st.vouchers[v.ID] = v
	return v, nil
}

func (tx *memTx) ReplaceDraft(ctx context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	current, ok := tx.st.vouchers[v.ID]
	if !ok || current.OrgID != v.OrgID || current.Status != ledger.VoucherStatusDraft {
		return ledger.Voucher{}, ledger.ErrNotDraft
	}
	if tx.numberTaken(v) {
		return ledger.Voucher{}, ledger.ErrDuplicateNumber
	}
	v.Entries = append([]ledger.VoucherEntry(nil), v.Entries...)
	tx.st.vouchers[v.ID] = v
	return v, nil
}

func (tx *memTx) DeleteVoucher(ctx context.Context, orgID, id int64) error {
	v, ok := tx.st.vouchers[id]
	if !ok || v.OrgID != orgID || v.Status != ledger.VoucherStatusDraft {
		return ledger.ErrNotDraft
	}
	delete(tx.st.vouchers, id)
	return nil
}

func (tx *memTx) LockVoucher(ctx context.Context, orgID, id int64) (ledger.Voucher, error) {
	v, ok := tx.st.vouchers[id]
	if !ok || v.OrgID != orgID {
		return ledger.Voucher{}, ledger.ErrVoucherNotFound
	}
	v.Entries = append([]ledger.VoucherEntry(nil), v.Entries...)
	return v, nil
}

func (tx *memTx) UpdateVoucherStatus(ctx context.Context, v ledger.Voucher) error {
	current, ok := tx.st.vouchers[v.ID]
	if !ok || current.OrgID != v.OrgID {
		return ledger.ErrVoucherNotFound
	}
	current.Status = v.Status
	current.PostedBy, current.PostedAt = v.PostedBy, v.PostedAt
	current.VoidedBy, current.VoidedAt, current.VoidReason = v.VoidedBy, v.VoidedAt, v.VoidReason
	current.UpdatedAt = v.UpdatedAt
	tx.st.vouchers[v.ID] = current
	return nil
}

func (tx *memTx) InsertLedgerEntries(ctx context.Context, entries []ledger.LedgerEntry) ([]ledger.LedgerEntry, error) {
	out := make([]ledger.LedgerEntry, len(entries))
	for i, e := range entries {
		e.ID = tx.st.id()
		tx.st.entries = append(tx.st.entries, e)
		out[i] = e
	}
	return out, nil
}

func (tx *memTx) LockOpenEntries(ctx context.Context, orgID, voucherID int64) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	for _, e := range tx.st.entries {
		if e.OrgID == orgID && e.VoucherID == voucherID && e.VoidedAt == nil && e.ReversalOf == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (tx *memTx) MarkEntriesVoided(ctx context.Context, orgID int64, ids []int64, marker ledger.VoidMarker) error {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	marked := 0
	for i, e := range tx.st.entries {
		if _, ok := want[e.ID]; !ok || e.OrgID != orgID || e.VoidedAt != nil {
			continue
		}
		at, by := marker.At, marker.By
		e.VoidedAt, e.VoidedBy, e.VoidReason = &at, &by, marker.Reason
		tx.st.entries[i] = e
		marked++
	}
	if marked != len(ids) {
		return fmt.Errorf("ledgertest: voided %d of %d entries: %w", marked, len(ids), shared.ErrIntegrity)
	}
	return nil
}
