package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultAccount describes a well-known account created on first use.
type DefaultAccount struct {
	Code     string
	Name     string
	Type     AccountType
	Category string
}

// Well-known account codes used by document postings.
const (
	CodeCash            = "1-100"
	CodeReceivable      = "1-130"
	CodeInputTax        = "1-140"
	CodePayable         = "2-100"
	CodeSalesTaxPayable = "2-140"
	CodeSalesRevenue    = "4-100"
	CodeSalesDiscounts  = "4-900"
	CodePurchases       = "5-100"
	CodeRounding        = "5-900"
)

var defaultAccounts = map[string]DefaultAccount{
	CodeCash:            {Code: CodeCash, Name: "Cash in Hand", Type: AccountTypeAsset, Category: "current_asset"},
	CodeReceivable:      {Code: CodeReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset, Category: "current_asset"},
	CodeInputTax:        {Code: CodeInputTax, Name: "Input Tax", Type: AccountTypeAsset, Category: "current_asset"},
	CodePayable:         {Code: CodePayable, Name: "Accounts Payable", Type: AccountTypeLiability, Category: "current_liability"},
	CodeSalesTaxPayable: {Code: CodeSalesTaxPayable, Name: "Sales Tax Payable", Type: AccountTypeLiability, Category: "current_liability"},
	CodeSalesRevenue:    {Code: CodeSalesRevenue, Name: "Sales Revenue", Type: AccountTypeRevenue, Category: "operating_revenue"},
	CodeSalesDiscounts:  {Code: CodeSalesDiscounts, Name: "Sales Discounts", Type: AccountTypeRevenue, Category: "contra_revenue"},
	CodePurchases:       {Code: CodePurchases, Name: "Purchases", Type: AccountTypeExpense, Category: "cost_of_sales"},
	CodeRounding:        {Code: CodeRounding, Name: "Rounding Differences", Type: AccountTypeExpense, Category: "other_expense"},
}

// LookupDefaultAccount returns the definition of a well-known code.
func LookupDefaultAccount(code string) (DefaultAccount, bool) {
	def, ok := defaultAccounts[code]
	return def, ok
}

// DefaultAccountCodes lists the well-known codes in code order.
func DefaultAccountCodes() []string {
	codes := make([]string, 0, len(defaultAccounts))
	for code := range defaultAccounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

const maxCodeLength = 32

// CreateAccount adds a node to the chart of accounts. Attaching a child turns the parent into a
// group account, which is refused once the parent has ledger history or a balance.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateAccountInput(in); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := s.insertAccount(ctx, tx, in)
		if err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.OrgID, in.ActorID, "account.create", "account", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

func (s *Service) insertAccount(ctx context.Context, tx TxRepository, in CreateAccountInput) (Account, error) {
	now := s.now()
	acc := Account{
		OrgID:          in.OrgID,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		Category:       in.Category,
		NormalBalance:  in.Type.NormalBalance(),
		ParentID:       in.ParentID,
		Level:          1,
		CurrentBalance: decimal.Zero,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ParentID != nil {
		parent, err := tx.LockAccount(ctx, in.OrgID, *in.ParentID)
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, fieldError("parent_id", ErrInvalidParent)
		}
		if err != nil {
			return Account{}, err
		}
		if parent.IsDeleted || !parent.IsActive {
			return Account{}, fieldError("parent_id", ErrInvalidParent)
		}
		if !parent.IsGroup {
			hasEntries, err := tx.AccountHasEntries(ctx, in.OrgID, parent.ID)
			if err != nil {
				return Account{}, err
			}
			if hasEntries || !parent.CurrentBalance.IsZero() {
				return Account{}, fieldError("parent_id", ErrParentHasPostings)
			}
			if err := tx.SetAccountGroup(ctx, in.OrgID, parent.ID, true); err != nil {
				return Account{}, err
			}
		}
		acc.Level = parent.Level + 1
	}
	return tx.InsertAccount(ctx, acc)
}

// UpdateAccount changes descriptive attributes. Balances are never written here.
func (s *Service) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.LockAccount(ctx, in.OrgID, in.AccountID)
		if err != nil {
			return err
		}
		if acc.IsDeleted {
			return ErrAccountNotFound
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fieldError("name", ErrInvalidAccount)
			}
			acc.Name = name
		}
		if in.Category != nil {
			acc.Category = strings.TrimSpace(*in.Category)
		}
		if in.IsActive != nil {
			acc.IsActive = *in.IsActive
		}
		acc.UpdatedAt = s.now()
		updated, err = tx.UpdateAccount(ctx, acc)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.OrgID, in.ActorID, "account.update", "account", updated.ID, map[string]any{"code": updated.Code})
	return updated, nil
}

// DeleteAccount soft deletes a leaf account with a zero balance whose ledger entries are all
// voided or reversals, so no later void can move it. A parent left without active children
// becomes a leaf again.
func (s *Service) DeleteAccount(ctx context.Context, orgID, accountID, actorID int64) error {
	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.LockAccount(ctx, orgID, accountID)
		if err != nil {
			return err
		}
		if acc.IsDeleted {
			return ErrAccountNotFound
		}
		children, err := tx.CountActiveChildren(ctx, orgID, acc.ID)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrAccountHasChildren
		}
		if !acc.CurrentBalance.IsZero() {
			return ErrAccountHasBalance
		}
		open, err := tx.AccountHasOpenEntries(ctx, orgID, acc.ID)
		if err != nil {
			return err
		}
		if open {
			return ErrAccountHasOpenEntries
		}
		if err := tx.SoftDeleteAccount(ctx, orgID, acc.ID); err != nil {
			return err
		}
		code = acc.Code
		if acc.ParentID == nil {
			return nil
		}
		remaining, err := tx.CountActiveChildren(ctx, orgID, *acc.ParentID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return tx.SetAccountGroup(ctx, orgID, *acc.ParentID, false)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, orgID, actorID, "account.delete", "account", accountID, map[string]any{"code": code})
	return nil
}

// FindAccountByID loads an active account.
func (s *Service) FindAccountByID(ctx context.Context, orgID, accountID int64) (Account, error) {
	return s.repo.GetAccount(ctx, orgID, accountID)
}

// ListAccounts returns the organization's active chart of accounts ordered by code.
func (s *Service) ListAccounts(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.ListAccounts(ctx, orgID)
}

// FindOrCreateDefaultAccount resolves a well-known code, creating it as a root leaf account on
// first use. Joins the caller's transaction when one is in progress.
func (s *Service) FindOrCreateDefaultAccount(ctx context.Context, orgID int64, code string) (Account, error) {
	def, known := LookupDefaultAccount(code)
	var acc Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		found, err := tx.FindAccountByCode(ctx, orgID, code)
		if err == nil {
			acc = found
			return nil
		}
		if !errors.Is(err, ErrAccountNotFound) || !known {
			return err
		}
		inserted, err := s.insertAccount(ctx, tx, CreateAccountInput{
			OrgID:    orgID,
			Code:     def.Code,
			Name:     def.Name,
			Type:     def.Type,
			Category: def.Category,
		})
		if errors.Is(err, ErrDuplicateAccountCode) {
			inserted, err = tx.FindAccountByCode(ctx, orgID, code)
		}
		if err != nil {
			return err
		}
		acc = inserted
		return nil
	})
	return acc, err
}

// TrialBalanceLine is one account row of a trial balance.
type TrialBalanceLine struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// TrialBalance lists leaf balances split by side.
type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	Balanced    bool               `json:"balanced"`
}

// TrialBalance reports every non-zero leaf balance on its effective side.
func (s *Service) TrialBalance(ctx context.Context, orgID int64) (TrialBalance, error) {
	accounts, err := s.repo.ListAccounts(ctx, orgID)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{Lines: []TrialBalanceLine{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acc := range accounts {
		if acc.IsGroup || acc.CurrentBalance.IsZero() {
			continue
		}
		line := TrialBalanceLine{AccountID: acc.ID, Code: acc.Code, Name: acc.Name, Type: acc.Type, Debit: decimal.Zero, Credit: decimal.Zero}
		side := acc.NormalBalance
		amount := acc.CurrentBalance
		if amount.IsNegative() {
			side = side.Opposite()
			amount = amount.Neg()
		}
		if side == SideDebit {
			line.Debit = amount
			tb.TotalDebit = tb.TotalDebit.Add(amount)
		} else {
			line.Credit = amount
			tb.TotalCredit = tb.TotalCredit.Add(amount)
		}
		tb.Lines = append(tb.Lines, line)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

func validateAccountInput(in CreateAccountInput) error {
	verr := &ValidationError{}
	if in.OrgID <= 0 {
		verr.Problems = append(verr.Problems, Problem{Field: "org_id", Err: ErrInvalidAccount})
	}
	if in.Code == "" || len(in.Code) > maxCodeLength {
		verr.Problems = append(verr.Problems, Problem{Field: "code", Err: ErrInvalidAccount})
	}
	if in.Name == "" {
		verr.Problems = append(verr.Problems, Problem{Field: "name", Err: ErrInvalidAccount})
	}
	if !in.Type.Valid() {
		verr.Problems = append(verr.Problems, Problem{Field: "type", Err: ErrInvalidAccount})
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
