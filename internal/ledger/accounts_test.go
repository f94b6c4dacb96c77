package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func TestDefaultAccountCodes(t *testing.T) {
	codes := ledger.DefaultAccountCodes()
	require.Equal(t, []string{
		ledger.CodeCash, ledger.CodeReceivable, ledger.CodeInputTax,
		ledger.CodePayable, ledger.CodeSalesTaxPayable,
		ledger.CodeSalesRevenue, ledger.CodeSalesDiscounts,
		ledger.CodePurchases, ledger.CodeRounding,
	}, codes)
	def, ok := ledger.LookupDefaultAccount(ledger.CodeSalesDiscounts)
	require.True(t, ok)
	require.Equal(t, ledger.AccountTypeRevenue, def.Type)
}

func TestFindOrCreateDefaultAccount(t *testing.T) {
	f := newFixture(t, ledger.Config{})
	ctx := context.Background()

	first, err := f.svc.FindOrCreateDefaultAccount(ctx, orgID, ledger.CodePayable)
	require.NoError(t, err)
	require.Equal(t, ledger.AccountTypeLiability, first.Type)
	require.Equal(t, ledger.SideCredit, first.NormalBalance)
	require.Equal(t, 1, first.Level)
	require.Nil(t, first.ParentID)

	again, err := f.svc.FindOrCreateDefaultAccount(ctx, orgID, ledger.CodePayable)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	other, err := f.svc.FindOrCreateDefaultAccount(ctx, orgID+1, ledger.CodePayable)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	_, err = f.svc.FindOrCreateDefaultAccount(ctx, orgID, "9-999")
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestAccountHierarchyRules(t *testing.T) {
	f := newFixture(t, ledger.Config{})
	ctx := context.Background()
	assets := f.account(t, "1-000", "Assets", ledger.AccountTypeAsset)
	revenue := f.account(t, "4-100", "Sales", ledger.AccountTypeRevenue)

	cash, err := f.svc.CreateAccount(ctx, ledger.CreateAccountInput{OrgID: orgID, Code: "1-100", Name: "Cash", Type: ledger.AccountTypeAsset, ParentID: &assets.ID, ActorID: actorID})
	require.NoError(t, err)
	require.Equal(t, 2, cash.Level)
	parent, err := f.svc.FindAccountByID(ctx, orgID, assets.ID)
	require.NoError(t, err)
	require.True(t, parent.IsGroup)

	v := f.draft(t, "Sale", dr(cash.ID, "40"), cr(revenue.ID, "40"))
	_, err = f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: v.ID, ActorID: actorID})
	require.NoError(t, err)

	_, err = f.svc.CreateAccount(ctx, ledger.CreateAccountInput{OrgID: orgID, Code: "1-110", Name: "Till", Type: ledger.AccountTypeAsset, ParentID: &cash.ID, ActorID: actorID})
	require.ErrorIs(t, err, ledger.ErrParentHasPostings)

	_, err = f.svc.CreateAccount(ctx, ledger.CreateAccountInput{OrgID: orgID, Code: "1-100", Name: "Duplicate", Type: ledger.AccountTypeAsset, ActorID: actorID})
	require.ErrorIs(t, err, ledger.ErrDuplicateAccountCode)

	_, err = f.svc.CreateAccount(ctx, ledger.CreateAccountInput{OrgID: orgID, Code: "", Name: "", Type: "asset-ish", ActorID: actorID})
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 3)
}

func TestDeleteAccountRules(t *testing.T) {
	f := newFixture(t, ledger.Config{})
	ctx := context.Background()
	assets := f.account(t, "1-000", "Assets", ledger.AccountTypeAsset)
	revenue := f.account(t, "4-100", "Sales", ledger.AccountTypeRevenue)
	cash, err := f.svc.CreateAccount(ctx, ledger.CreateAccountInput{OrgID: orgID, Code: "1-100", Name: "Cash", Type: ledger.AccountTypeAsset, ParentID: &assets.ID, ActorID: actorID})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.DeleteAccount(ctx, orgID, assets.ID, actorID), ledger.ErrAccountHasChildren)

	v := f.draft(t, "Sale", dr(cash.ID, "40"), cr(revenue.ID, "40"))
	_, err = f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: v.ID, ActorID: actorID})
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteAccount(ctx, orgID, cash.ID, actorID), ledger.ErrAccountHasBalance)

	_, err = f.svc.Void(ctx, ledger.VoidInput{OrgID: orgID, VoucherID: v.ID, ActorID: actorID, Reason: "entered twice"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteAccount(ctx, orgID, cash.ID, actorID))

	_, err = f.svc.FindAccountByID(ctx, orgID, cash.ID)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	parent, err := f.svc.FindAccountByID(ctx, orgID, assets.ID)
	require.NoError(t, err)
	require.False(t, parent.IsGroup)
	require.Contains(t, f.audit.actions(), "account.delete")
}

func TestDeleteAccountWithReversibleHistory(t *testing.T) {
	f := newFixture(t, ledger.Config{})
	ctx := context.Background()
	cash := f.account(t, "1-100", "Cash", ledger.AccountTypeAsset)
	revenue := f.account(t, "4-100", "Sales", ledger.AccountTypeRevenue)
	suspense := f.account(t, "1-900", "Suspense", ledger.AccountTypeAsset)

	into := f.draft(t, "Into suspense", dr(suspense.ID, "100"), cr(revenue.ID, "100"))
	_, err := f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: into.ID, ActorID: actorID})
	require.NoError(t, err)
	out := f.draft(t, "Out of suspense", dr(cash.ID, "100"), cr(suspense.ID, "100"))
	_, err = f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: out.ID, ActorID: actorID})
	require.NoError(t, err)
	require.True(t, f.balance(t, suspense.ID).IsZero())

	err = f.svc.DeleteAccount(ctx, orgID, suspense.ID, actorID)
	require.ErrorIs(t, err, ledger.ErrAccountHasOpenEntries)
	require.Equal(t, shared.ErrStateConflict, shared.KindOf(err))

	_, err = f.svc.Void(ctx, ledger.VoidInput{OrgID: orgID, VoucherID: into.ID, ActorID: actorID, Reason: "posted in error"})
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteAccount(ctx, orgID, suspense.ID, actorID), ledger.ErrAccountHasBalance)
	_, err = f.svc.Void(ctx, ledger.VoidInput{OrgID: orgID, VoucherID: out.ID, ActorID: actorID, Reason: "posted in error"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteAccount(ctx, orgID, suspense.ID, actorID))

	tb, err := f.svc.TrialBalance(ctx, orgID)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	report, err := f.svc.CheckIntegrity(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, 3, report.Accounts)

	f.mem.SetBalance(suspense.ID, d("5"))
	report, err = f.svc.CheckIntegrity(ctx, orgID)
	require.ErrorIs(t, err, ledger.ErrBalanceDrift)
	require.Len(t, report.Drifts, 1)
	require.Equal(t, suspense.ID, report.Drifts[0].AccountID)
}

func TestTrialBalanceFlipsNegativeBalances(t *testing.T) {
	f := newFixture(t, ledger.Config{})
	ctx := context.Background()
	cash := f.account(t, "1-100", "Cash", ledger.AccountTypeAsset)
	payable := f.account(t, "2-100", "Payable", ledger.AccountTypeLiability)
	purchases := f.account(t, "5-100", "Purchases", ledger.AccountTypeExpense)

	v := f.draft(t, "Stock paid in cash", dr(purchases.ID, "70"), cr(cash.ID, "70"))
	_, err := f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: v.ID, ActorID: actorID})
	require.NoError(t, err)
	v = f.draft(t, "Stock on credit", dr(purchases.ID, "30"), cr(payable.ID, "30"))
	_, err = f.svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: v.ID, ActorID: actorID})
	require.NoError(t, err)

	tb, err := f.svc.TrialBalance(ctx, orgID)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	require.True(t, tb.TotalDebit.Equal(d("100")))
	require.Len(t, tb.Lines, 3)
	for _, line := range tb.Lines {
		if line.AccountID == cash.ID {
			require.True(t, line.Credit.Equal(d("70")))
			require.True(t, line.Debit.IsZero())
		}
	}
}
