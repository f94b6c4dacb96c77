package ledger

import (
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

var (
	// ErrImbalancedVoucher indicates total debits differ from total credits beyond epsilon.
	ErrImbalancedVoucher = shared.NewKindError(shared.ErrValidation, "ledger: voucher debits and credits do not balance")
	// ErrInsufficientEntries indicates fewer than two entries.
	ErrInsufficientEntries = shared.NewKindError(shared.ErrValidation, "ledger: voucher needs at least two entries")
	// ErrInvalidEntry indicates an entry with both, neither or a non-positive side, or a bad account.
	ErrInvalidEntry = shared.NewKindError(shared.ErrValidation, "ledger: invalid voucher entry")
	// ErrGroupAccountPosting is an invalid entry that targets a group account.
	ErrGroupAccountPosting = shared.NewKindError(ErrInvalidEntry, "ledger: group accounts cannot receive postings")
	// ErrAmountPrecision is an invalid entry whose amount has more decimal places than epsilon.
	ErrAmountPrecision = shared.NewKindError(ErrInvalidEntry, "ledger: amount precision exceeds the ledger scale")
	// ErrNarrationTooShort indicates the narration is below the configured minimum.
	ErrNarrationTooShort = shared.NewKindError(shared.ErrValidation, "ledger: narration too short")
	// ErrVoidReasonTooShort indicates the void reason is below the configured minimum.
	ErrVoidReasonTooShort = shared.NewKindError(shared.ErrValidation, "ledger: void reason too short")
	// ErrInvalidVoucherType indicates an unknown voucher type.
	ErrInvalidVoucherType = shared.NewKindError(shared.ErrValidation, "ledger: invalid voucher type")
	// ErrInvalidVoucherDate indicates a missing voucher date.
	ErrInvalidVoucherDate = shared.NewKindError(shared.ErrValidation, "ledger: voucher date required")
	// ErrInvalidAccount indicates malformed account attributes.
	ErrInvalidAccount = shared.NewKindError(shared.ErrValidation, "ledger: invalid account")
	// ErrInvalidParent indicates a parent from another organization, inactive or deleted.
	ErrInvalidParent = shared.NewKindError(shared.ErrValidation, "ledger: invalid parent account")
	// ErrParentHasPostings indicates an account with ledger history cannot become a group.
	ErrParentHasPostings = shared.NewKindError(shared.ErrValidation, "ledger: account with postings cannot become a parent")

	// ErrAlreadyPosted indicates the voucher or document was already posted.
	ErrAlreadyPosted = shared.NewKindError(shared.ErrStateConflict, "ledger: voucher already posted")
	// ErrVoidedVoucher indicates the voucher is void and terminal.
	ErrVoidedVoucher = shared.NewKindError(shared.ErrStateConflict, "ledger: voucher is void")
	// ErrNotPosted indicates a void was attempted on a draft.
	ErrNotPosted = shared.NewKindError(shared.ErrStateConflict, "ledger: voucher not posted")
	// ErrAlreadyVoid indicates a second void.
	ErrAlreadyVoid = shared.NewKindError(shared.ErrStateConflict, "ledger: voucher already void")
	// ErrNotDraft indicates edit or delete on a posted or void voucher.
	ErrNotDraft = shared.NewKindError(shared.ErrStateConflict, "ledger: only draft vouchers can be changed")
	// ErrDuplicateAccountCode indicates the code already exists in the organization.
	ErrDuplicateAccountCode = shared.NewKindError(shared.ErrStateConflict, "ledger: account code already exists")
	// ErrAccountHasChildren indicates delete was attempted on an account with active children.
	ErrAccountHasChildren = shared.NewKindError(shared.ErrStateConflict, "ledger: account has active children")
	// ErrAccountHasBalance indicates delete was attempted on an account with a non-zero balance.
	ErrAccountHasBalance = shared.NewKindError(shared.ErrStateConflict, "ledger: account balance is not zero")
	// ErrAccountHasOpenEntries indicates delete was attempted on an account with ledger entries
	// that a void could still reverse.
	ErrAccountHasOpenEntries = shared.NewKindError(shared.ErrStateConflict, "ledger: account has unvoided ledger entries")
	// ErrRoundingAccount indicates the rounding account cannot absorb a difference.
	ErrRoundingAccount = shared.NewKindError(shared.ErrStateConflict, "ledger: rounding account is inactive or a group")

	// ErrVoucherNotFound indicates voucher lookup failure.
	ErrVoucherNotFound = shared.NewKindError(shared.ErrNotFound, "ledger: voucher not found")
	// ErrAccountNotFound indicates account lookup failure.
	ErrAccountNotFound = shared.NewKindError(shared.ErrNotFound, "ledger: account not found")

	// ErrBalanceUpdate indicates the stored balance diverged from the expected value.
	ErrBalanceUpdate = shared.NewKindError(shared.ErrIntegrity, "ledger: balance update mismatch")
	// ErrDuplicateNumber indicates number generation kept colliding after all retries.
	ErrDuplicateNumber = shared.NewKindError(shared.ErrIntegrity, "ledger: duplicate voucher number")
	// ErrBalanceDrift indicates stored balances disagree with ledger history.
	ErrBalanceDrift = shared.NewKindError(shared.ErrIntegrity, "ledger: account balances drifted from ledger history")
)

// Problem pairs a voucher field with the sentinel it violated.
type Problem struct {
	Field string
	Err   error
}

// ValidationError aggregates voucher problems. errors.Is matches every contained sentinel.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "ledger: validation failed"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Err.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the contained sentinels to errors.Is.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Problems)+1)
	for _, p := range e.Problems {
		out = append(out, p.Err)
	}
	return append(out, shared.ErrValidation)
}

// FieldErrors renders problems for transport.
func (e *ValidationError) FieldErrors() []shared.FieldError {
	out := make([]shared.FieldError, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, shared.FieldError{Field: p.Field, Reason: p.Err.Error()})
	}
	return out
}

func fieldError(field string, err error) error {
	return &ValidationError{Problems: []Problem{{Field: field, Err: err}}}
}
