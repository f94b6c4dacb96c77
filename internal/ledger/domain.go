package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance returns the side on which accounts of this type increase.
func (t AccountType) NormalBalance() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Side is the closed debit/credit enum.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite flips debit and credit.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// VoucherType enumerates voucher books.
type VoucherType string

const (
	VoucherTypeJournal VoucherType = "JV"
	VoucherTypePayment VoucherType = "PV"
	VoucherTypeReceipt VoucherType = "RV"
	VoucherTypeContra  VoucherType = "CV"
)

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherTypeJournal, VoucherTypePayment, VoucherTypeReceipt, VoucherTypeContra:
		return true
	}
	return false
}

// VoucherStatus enumerates voucher lifecycle values.
type VoucherStatus string

const (
	VoucherStatusDraft  VoucherStatus = "draft"
	VoucherStatusPosted VoucherStatus = "posted"
	VoucherStatusVoid   VoucherStatus = "void"
)

// Account models a chart of accounts node.
type Account struct {
	ID             int64           `json:"id"`
	OrgID          int64           `json:"org_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Category       string          `json:"category"`
	NormalBalance  Side            `json:"normal_balance"`
	ParentID       *int64          `json:"parent_id,omitempty"`
	Level          int             `json:"level"`
	IsGroup        bool            `json:"is_group"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	IsDeleted      bool            `json:"is_deleted"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// VoucherEntry is one proposed debit or credit line.
type VoucherEntry struct {
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// Side reports the single positive side of the entry and its amount.
func (e VoucherEntry) Side() (Side, decimal.Decimal, bool) {
	debit := e.Debit.IsPositive()
	credit := e.Credit.IsPositive()
	switch {
	case debit && !credit && e.Credit.IsZero():
		return SideDebit, e.Debit, true
	case credit && !debit && e.Debit.IsZero():
		return SideCredit, e.Credit, true
	}
	return "", decimal.Zero, false
}

// Voucher is a proposed or recorded balanced transaction.
type Voucher struct {
	ID            int64          `json:"id"`
	OrgID         int64          `json:"org_id"`
	Number        string         `json:"number"`
	Type          VoucherType    `json:"type"`
	Date          time.Time      `json:"date"`
	FiscalYear    int            `json:"fiscal_year"`
	FiscalPeriod  string         `json:"fiscal_period"`
	Narration     string         `json:"narration"`
	Entries       []VoucherEntry `json:"entries"`
	Status        VoucherStatus  `json:"status"`
	ReferenceType string         `json:"reference_type,omitempty"`
	ReferenceID   *int64         `json:"reference_id,omitempty"`
	CreatedBy     int64          `json:"created_by"`
	PostedBy      *int64         `json:"posted_by,omitempty"`
	PostedAt      *time.Time     `json:"posted_at,omitempty"`
	VoidedBy      *int64         `json:"voided_by,omitempty"`
	VoidedAt      *time.Time     `json:"voided_at,omitempty"`
	VoidReason    string         `json:"void_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Totals returns the computed debit and credit sums.
func (v Voucher) Totals() Totals {
	return ComputeTotals(v.Entries)
}

// LedgerEntry is one immutable posting against an account.
type LedgerEntry struct {
	ID             int64           `json:"id"`
	OrgID          int64           `json:"org_id"`
	VoucherID      int64           `json:"voucher_id"`
	AccountID      int64           `json:"account_id"`
	Side           Side            `json:"side"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	ReversalOf     *int64          `json:"reversal_of,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	VoidedBy       *int64          `json:"voided_by,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
}

// IsReversal reports whether the entry offsets another entry.
func (e LedgerEntry) IsReversal() bool {
	return e.ReversalOf != nil
}

// CreateAccountInput carries fields for a new chart of accounts node.
type CreateAccountInput struct {
	OrgID    int64
	Code     string
	Name     string
	Type     AccountType
	Category string
	ParentID *int64
	ActorID  int64
}

// UpdateAccountInput carries the mutable account attributes. Balance is not among them.
type UpdateAccountInput struct {
	OrgID     int64
	AccountID int64
	Name      *string
	Category  *string
	IsActive  *bool
	ActorID   int64
}

// DraftInput groups fields required to create or replace a draft voucher.
type DraftInput struct {
	OrgID         int64
	Type          VoucherType
	Date          time.Time
	Narration     string
	Entries       []VoucherEntry
	ReferenceType string
	ReferenceID   *int64
	CreatedBy     int64
}

// PostInput wraps parameters for posting.
type PostInput struct {
	OrgID     int64
	VoucherID int64
	ActorID   int64
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	OrgID     int64
	VoucherID int64
	ActorID   int64
	Reason    string
}

// VoucherFilter narrows voucher listings.
type VoucherFilter struct {
	Status       VoucherStatus
	Type         VoucherType
	FiscalPeriod string
	Limit        int
	Offset       int
}

// EntryFilter narrows per-account ledger history.
type EntryFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
