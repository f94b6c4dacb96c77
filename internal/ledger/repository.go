package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts ledger persistence. Reads outside WithTx see committed state
// only; every mutation goes through a TxRepository.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetAccount(ctx context.Context, orgID, id int64) (Account, error)
	ListAccounts(ctx context.Context, orgID int64) ([]Account, error)
	GetVoucher(ctx context.Context, orgID, id int64) (Voucher, error)
	ListVouchers(ctx context.Context, orgID int64, filter VoucherFilter) ([]Voucher, error)
	ListEntriesByVoucher(ctx context.Context, orgID, voucherID int64) ([]LedgerEntry, error)
	ListEntriesByAccount(ctx context.Context, orgID, accountID int64, filter EntryFilter) ([]LedgerEntry, error)
	Snapshot(ctx context.Context, orgID int64) (LedgerSnapshot, error)
	ListOrganizations(ctx context.Context) ([]int64, error)
}

// TxRepository exposes transactional operations. Lock* methods take row locks held until
// the transaction ends; account locks are acquired in ascending id order.
type TxRepository interface {
	GetAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error)
	LockAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error)
	LockAccount(ctx context.Context, orgID, id int64) (Account, error)
	FindAccountByCode(ctx context.Context, orgID int64, code string) (Account, error)
	InsertAccount(ctx context.Context, acc Account) (Account, error)
	UpdateAccount(ctx context.Context, acc Account) (Account, error)
	SetAccountGroup(ctx context.Context, orgID, id int64, isGroup bool) error
	SoftDeleteAccount(ctx context.Context, orgID, id int64) error
	CountActiveChildren(ctx context.Context, orgID, id int64) (int, error)
	AccountHasEntries(ctx context.Context, orgID, id int64) (bool, error)
	AccountHasOpenEntries(ctx context.Context, orgID, id int64) (bool, error)
	AdjustBalance(ctx context.Context, orgID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)

	NextVoucherSequence(ctx context.Context, orgID int64, t VoucherType, fiscalYear int) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	ReplaceDraft(ctx context.Context, v Voucher) (Voucher, error)
	DeleteVoucher(ctx context.Context, orgID, id int64) error
	LockVoucher(ctx context.Context, orgID, id int64) (Voucher, error)
	UpdateVoucherStatus(ctx context.Context, v Voucher) error

	InsertLedgerEntries(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error)
	LockOpenEntries(ctx context.Context, orgID, voucherID int64) ([]LedgerEntry, error)
	MarkEntriesVoided(ctx context.Context, orgID int64, ids []int64, marker VoidMarker) error
}

// VoidMarker is the only mutation a ledger entry ever receives.
type VoidMarker struct {
	At     time.Time
	By     int64
	Reason string
}

// AccountEntryTotals sums the ledger history of one account.
type AccountEntryTotals struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// LedgerSnapshot is one consistent read of every account, soft deleted ones included, and
// the entry totals per account.
type LedgerSnapshot struct {
	Accounts []Account
	Totals   []AccountEntryTotals
}
