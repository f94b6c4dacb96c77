package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func leaf(id int64, typ ledger.AccountType) ledger.Account {
	return ledger.Account{ID: id, OrgID: 1, Code: "X", Type: typ, NormalBalance: typ.NormalBalance(), IsActive: true, Level: 1}
}

func dr(account int64, amount string) ledger.VoucherEntry {
	return ledger.VoucherEntry{AccountID: account, Debit: d(amount), Credit: decimal.Zero}
}

func cr(account int64, amount string) ledger.VoucherEntry {
	return ledger.VoucherEntry{AccountID: account, Debit: decimal.Zero, Credit: d(amount)}
}

func TestComputeTotals(t *testing.T) {
	totals := ledger.ComputeTotals([]ledger.VoucherEntry{dr(1, "600.50"), dr(2, "399.50"), cr(3, "1000")})
	require.True(t, totals.Debit.Equal(d("1000")))
	require.True(t, totals.Credit.Equal(d("1000")))
	require.True(t, totals.Difference().IsZero())
	require.True(t, totals.Balanced(ledger.DefaultEpsilon))

	empty := ledger.ComputeTotals(nil)
	require.True(t, empty.Debit.IsZero())
	require.True(t, empty.Credit.IsZero())
}

func TestVoucherEntrySide(t *testing.T) {
	side, amount, ok := dr(1, "10").Side()
	require.True(t, ok)
	require.Equal(t, ledger.SideDebit, side)
	require.True(t, amount.Equal(d("10")))

	side, _, ok = cr(1, "10").Side()
	require.True(t, ok)
	require.Equal(t, ledger.SideCredit, side)

	_, _, ok = ledger.VoucherEntry{AccountID: 1, Debit: d("5"), Credit: d("5")}.Side()
	require.False(t, ok)
	_, _, ok = ledger.VoucherEntry{AccountID: 1}.Side()
	require.False(t, ok)
}

func TestValidateDoubleEntry(t *testing.T) {
	expense := leaf(1, ledger.AccountTypeExpense)
	payable := leaf(2, ledger.AccountTypeLiability)
	inactive := leaf(3, ledger.AccountTypeAsset)
	inactive.IsActive = false
	group := leaf(4, ledger.AccountTypeAsset)
	group.IsGroup = true
	deleted := leaf(5, ledger.AccountTypeAsset)
	deleted.IsDeleted = true
	accounts := map[int64]ledger.Account{1: expense, 2: payable, 3: inactive, 4: group, 5: deleted}

	cases := []struct {
		name    string
		entries []ledger.VoucherEntry
		want    []error
	}{
		{name: "balanced", entries: []ledger.VoucherEntry{dr(1, "1000"), cr(2, "1000")}},
		{name: "within epsilon", entries: []ledger.VoucherEntry{dr(1, "1000.01"), cr(2, "1000")}},
		{name: "imbalanced", entries: []ledger.VoucherEntry{dr(1, "1000"), cr(2, "999.98")}, want: []error{ledger.ErrImbalancedVoucher}},
		{name: "single entry", entries: []ledger.VoucherEntry{dr(1, "10")}, want: []error{ledger.ErrInsufficientEntries}},
		{name: "sub cent debit", entries: []ledger.VoucherEntry{dr(1, "0.001"), cr(2, "0.001")}, want: []error{ledger.ErrAmountPrecision, ledger.ErrInvalidEntry}},
		{name: "beyond storage scale", entries: []ledger.VoucherEntry{dr(1, "10.00001"), cr(2, "10.00001")}, want: []error{ledger.ErrAmountPrecision}},
		{name: "trailing zeros", entries: []ledger.VoucherEntry{dr(1, "10.5000"), cr(2, "10.50")}},
		{name: "both sides", entries: []ledger.VoucherEntry{{AccountID: 1, Debit: d("5"), Credit: d("5")}, cr(2, "0")}, want: []error{ledger.ErrInvalidEntry}},
		{name: "neither side", entries: []ledger.VoucherEntry{{AccountID: 1}, {AccountID: 2}}, want: []error{ledger.ErrInvalidEntry}},
		{name: "negative amount", entries: []ledger.VoucherEntry{dr(1, "-10"), cr(2, "-10")}, want: []error{ledger.ErrInvalidEntry}},
		{name: "missing account", entries: []ledger.VoucherEntry{dr(99, "10"), cr(2, "10")}, want: []error{ledger.ErrInvalidEntry}},
		{name: "inactive account", entries: []ledger.VoucherEntry{dr(3, "10"), cr(2, "10")}, want: []error{ledger.ErrInvalidEntry}},
		{name: "deleted account", entries: []ledger.VoucherEntry{dr(5, "10"), cr(2, "10")}, want: []error{ledger.ErrInvalidEntry}},
		{name: "group account", entries: []ledger.VoucherEntry{dr(4, "10"), cr(2, "10")}, want: []error{ledger.ErrGroupAccountPosting, ledger.ErrInvalidEntry}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ledger.ValidateDoubleEntry(ledger.Voucher{Entries: tc.entries}, accounts, ledger.DefaultEpsilon)
			if len(tc.want) == 0 {
				require.True(t, result.IsValid)
				require.NoError(t, result.Err())
				require.Empty(t, result.Errors)
				return
			}
			require.False(t, result.IsValid)
			require.NotEmpty(t, result.Errors)
			err := result.Err()
			require.Error(t, err)
			require.ErrorIs(t, err, shared.ErrValidation)
			require.Equal(t, shared.ErrValidation, shared.KindOf(err))
			for _, want := range tc.want {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestAmountScale(t *testing.T) {
	require.Equal(t, int32(2), ledger.AmountScale(ledger.DefaultEpsilon))
	require.Equal(t, int32(2), ledger.AmountScale(d("0.010")))
	require.Equal(t, int32(3), ledger.AmountScale(d("0.005")))
	require.Equal(t, int32(0), ledger.AmountScale(d("1")))
	require.Equal(t, int32(4), ledger.AmountScale(d("0.0000001")))

	accounts := map[int64]ledger.Account{1: leaf(1, ledger.AccountTypeExpense), 2: leaf(2, ledger.AccountTypeLiability)}
	fine := ledger.Voucher{Entries: []ledger.VoucherEntry{dr(1, "0.005"), cr(2, "0.005")}}
	require.True(t, ledger.ValidateDoubleEntry(fine, accounts, d("0.005")).IsValid)
	require.ErrorIs(t, ledger.ValidateDoubleEntry(fine, accounts, ledger.DefaultEpsilon).Err(), ledger.ErrAmountPrecision)
}

func TestValidationErrorFields(t *testing.T) {
	accounts := map[int64]ledger.Account{1: leaf(1, ledger.AccountTypeExpense), 2: leaf(2, ledger.AccountTypeLiability)}
	result := ledger.ValidateDoubleEntry(ledger.Voucher{Entries: []ledger.VoucherEntry{dr(1, "10"), {AccountID: 2}}}, accounts, ledger.DefaultEpsilon)

	var verr *ledger.ValidationError
	require.True(t, errors.As(result.Err(), &verr))
	fields := map[string]bool{}
	for _, fe := range verr.FieldErrors() {
		fields[fe.Field] = true
		require.NotEmpty(t, fe.Reason)
	}
	require.True(t, fields["entries[1]"])
	require.True(t, fields["entries"])

	var reporter shared.FieldReporter
	require.True(t, errors.As(result.Err(), &reporter))
	require.Len(t, reporter.FieldErrors(), len(result.Errors))
}

func TestSignedDelta(t *testing.T) {
	amount := d("1000")
	require.True(t, ledger.SignedDelta(ledger.SideDebit, ledger.SideDebit, amount).Equal(amount))
	require.True(t, ledger.SignedDelta(ledger.SideDebit, ledger.SideCredit, amount).Equal(amount.Neg()))
	require.True(t, ledger.SignedDelta(ledger.SideCredit, ledger.SideCredit, amount).Equal(amount))
	require.True(t, ledger.SignedDelta(ledger.SideCredit, ledger.SideDebit, amount).Equal(amount.Neg()))
}

func TestNormalBalanceByType(t *testing.T) {
	require.Equal(t, ledger.SideDebit, ledger.AccountTypeAsset.NormalBalance())
	require.Equal(t, ledger.SideDebit, ledger.AccountTypeExpense.NormalBalance())
	require.Equal(t, ledger.SideCredit, ledger.AccountTypeLiability.NormalBalance())
	require.Equal(t, ledger.SideCredit, ledger.AccountTypeEquity.NormalBalance())
	require.Equal(t, ledger.SideCredit, ledger.AccountTypeRevenue.NormalBalance())
}

func TestVoucherNumberFormat(t *testing.T) {
	require.Equal(t, "JV-2025-0001", ledger.FormatVoucherNumber(ledger.VoucherTypeJournal, 2025, 1))
	require.Equal(t, "RV-2025-12345", ledger.FormatVoucherNumber(ledger.VoucherTypeReceipt, 2025, 12345))

	seq, ok := ledger.ParseVoucherSequence("PV-2024-0042", ledger.VoucherTypePayment, 2024)
	require.True(t, ok)
	require.Equal(t, int64(42), seq)

	_, ok = ledger.ParseVoucherSequence("PV-2024-0042", ledger.VoucherTypeJournal, 2024)
	require.False(t, ok)
	_, ok = ledger.ParseVoucherSequence("PV-2024-abc", ledger.VoucherTypePayment, 2024)
	require.False(t, ok)
}
