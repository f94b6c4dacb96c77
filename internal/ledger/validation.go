package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// DefaultEpsilon is the tolerated debit/credit drift, one minor currency unit.
var DefaultEpsilon = decimal.New(1, -2)

// Rules carries tunable validation thresholds.
type Rules struct {
	Epsilon             decimal.Decimal
	NarrationMinLength  int
	VoidReasonMinLength int
}

// DefaultRules returns the standard thresholds.
func DefaultRules() Rules {
	return Rules{Epsilon: DefaultEpsilon, NarrationMinLength: 3, VoidReasonMinLength: 5}
}

func (r Rules) normalized() Rules {
	def := DefaultRules()
	if !r.Epsilon.IsPositive() {
		r.Epsilon = def.Epsilon
	}
	if r.NarrationMinLength <= 0 {
		r.NarrationMinLength = def.NarrationMinLength
	}
	if r.VoidReasonMinLength <= 0 {
		r.VoidReasonMinLength = def.VoidReasonMinLength
	}
	return r
}

// maxAmountScale is the number of decimal places ledger amounts are stored with.
const maxAmountScale = 4

// AmountScale returns the decimal places an amount may carry under epsilon: the places of
// epsilon itself, capped at the storage scale.
func AmountScale(epsilon decimal.Decimal) int32 {
	for n := int32(0); n < maxAmountScale; n++ {
		if epsilon.Truncate(n).Equal(epsilon) {
			return n
		}
	}
	return maxAmountScale
}

// Totals holds debit and credit sums of a voucher.
type Totals struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Difference returns |debit - credit|.
func (t Totals) Difference() decimal.Decimal {
	return t.Debit.Sub(t.Credit).Abs()
}

// Balanced reports whether the difference is within epsilon.
func (t Totals) Balanced(epsilon decimal.Decimal) bool {
	return t.Difference().LessThanOrEqual(epsilon)
}

// ComputeTotals sums entry sides.
func ComputeTotals(entries []VoucherEntry) Totals {
	totals := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range entries {
		totals.Debit = totals.Debit.Add(e.Debit)
		totals.Credit = totals.Credit.Add(e.Credit)
	}
	return totals
}

// ValidationResult is the outcome of ValidateDoubleEntry.
type ValidationResult struct {
	IsValid bool                `json:"is_valid"`
	Totals  Totals              `json:"totals"`
	Errors  []shared.FieldError `json:"errors,omitempty"`
	err     *ValidationError
}

// Err returns the aggregated error or nil when valid.
func (r ValidationResult) Err() error {
	if r.IsValid || r.err == nil {
		return nil
	}
	return r.err
}

// ValidateDoubleEntry checks the double-entry invariant and that every entry targets an
// active, non-deleted leaf account present in accounts. Amounts finer than epsilon are
// rejected.
func ValidateDoubleEntry(v Voucher, accounts map[int64]Account, epsilon decimal.Decimal) ValidationResult {
	if !epsilon.IsPositive() {
		epsilon = DefaultEpsilon
	}
	scale := AmountScale(epsilon)
	verr := &ValidationError{}
	add := func(field string, err error) {
		verr.Problems = append(verr.Problems, Problem{Field: field, Err: err})
	}
	if len(v.Entries) < 2 {
		add("entries", ErrInsufficientEntries)
	}
	for i, entry := range v.Entries {
		field := fmt.Sprintf("entries[%d]", i)
		if entry.Debit.IsNegative() || entry.Credit.IsNegative() {
			add(field, ErrInvalidEntry)
			continue
		}
		_, amount, ok := entry.Side()
		if !ok {
			add(field, ErrInvalidEntry)
			continue
		}
		if !amount.Equal(amount.Truncate(scale)) {
			add(field, ErrAmountPrecision)
		}
		acc, ok := accounts[entry.AccountID]
		switch {
		case !ok || acc.IsDeleted || !acc.IsActive:
			add(field+".account_id", ErrInvalidEntry)
		case acc.IsGroup:
			add(field+".account_id", ErrGroupAccountPosting)
		}
	}
	totals := ComputeTotals(v.Entries)
	if !totals.Balanced(epsilon) {
		add("entries", ErrImbalancedVoucher)
	}
	result := ValidationResult{IsValid: len(verr.Problems) == 0, Totals: totals}
	if !result.IsValid {
		result.err = verr
		result.Errors = verr.FieldErrors()
	}
	return result
}

// validateHeader checks fields that do not depend on account lookups.
func validateHeader(in DraftInput, rules Rules) error {
	verr := &ValidationError{}
	if in.OrgID <= 0 {
		verr.Problems = append(verr.Problems, Problem{Field: "org_id", Err: ErrInvalidEntry})
	}
	if !in.Type.Valid() {
		verr.Problems = append(verr.Problems, Problem{Field: "type", Err: ErrInvalidVoucherType})
	}
	if in.Date.IsZero() {
		verr.Problems = append(verr.Problems, Problem{Field: "date", Err: ErrInvalidVoucherDate})
	}
	if len([]rune(strings.TrimSpace(in.Narration))) < rules.NarrationMinLength {
		verr.Problems = append(verr.Problems, Problem{Field: "narration", Err: ErrNarrationTooShort})
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validateVoidReason(reason string, rules Rules) error {
	if len([]rune(strings.TrimSpace(reason))) < rules.VoidReasonMinLength {
		return fieldError("reason", ErrVoidReasonTooShort)
	}
	return nil
}
