package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type createAccountRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=200"`
	Type     string `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	Category string `json:"category" validate:"max=100"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type updateAccountRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

type entryRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

type voucherRequest struct {
	Type          string         `json:"type" validate:"required,oneof=JV PV RV CV"`
	Date          string         `json:"date" validate:"required,datetime=2006-01-02"`
	Narration     string         `json:"narration" validate:"required,max=1000"`
	Entries       []entryRequest `json:"entries" validate:"required,dive"`
	ReferenceType string         `json:"reference_type" validate:"max=50"`
	ReferenceID   *int64         `json:"reference_id" validate:"omitempty,gt=0"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (r voucherRequest) toDraft(orgID, actorID int64) DraftInput {
	date, _ := time.Parse(dateLayout, r.Date)
	entries := make([]VoucherEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, VoucherEntry{AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit, Description: e.Description})
	}
	return DraftInput{
		OrgID:         orgID,
		Type:          VoucherType(r.Type),
		Date:          date,
		Narration:     r.Narration,
		Entries:       entries,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		CreatedBy:     actorID,
	}
}
