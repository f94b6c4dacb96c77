package ap

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// PurchaseInvoice is a supplier bill recorded against the ledger when posted.
type PurchaseInvoice struct {
	ID           int64                 `json:"id"`
	OrgID        int64                 `json:"org_id"`
	Number       string                `json:"number"`
	SupplierName string                `json:"supplier_name"`
	InvoiceDate  time.Time             `json:"invoice_date"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	Tax          decimal.Decimal       `json:"tax"`
	Total        decimal.Decimal       `json:"total"`
	PaidInCash   bool                  `json:"paid_in_cash"`
	Status       shared.DocumentStatus `json:"status"`
	IsPosted     bool                  `json:"is_posted"`
	VoucherID    *int64                `json:"voucher_id,omitempty"`
	AccountRefs  map[string]int64      `json:"account_refs,omitempty"`
	CreatedBy    int64                 `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CreateInvoiceInput carries the fields of a new purchase invoice. Total is derived.
type CreateInvoiceInput struct {
	OrgID        int64
	Number       string
	SupplierName string
	InvoiceDate  time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	PaidInCash   bool
	CreatedBy    int64
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	OrgID  int64
	Status shared.DocumentStatus
	Limit  int
	Offset int
}
