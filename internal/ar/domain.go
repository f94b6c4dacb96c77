package ar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// SalesInvoice is a credit sale billed to a named customer.
type SalesInvoice struct {
	ID           int64                 `json:"id"`
	OrgID        int64                 `json:"org_id"`
	Number       string                `json:"number"`
	CustomerName string                `json:"customer_name"`
	InvoiceDate  time.Time             `json:"invoice_date"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	Tax          decimal.Decimal       `json:"tax"`
	Total        decimal.Decimal       `json:"total"`
	Status       shared.DocumentStatus `json:"status"`
	IsPosted     bool                  `json:"is_posted"`
	VoucherID    *int64                `json:"voucher_id,omitempty"`
	AccountRefs  map[string]int64      `json:"account_refs,omitempty"`
	CreatedBy    int64                 `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// WalkInSale is a counter sale settled in cash.
type WalkInSale struct {
	ID          int64                 `json:"id"`
	OrgID       int64                 `json:"org_id"`
	Number      string                `json:"number"`
	SaleDate    time.Time             `json:"sale_date"`
	Gross       decimal.Decimal       `json:"gross"`
	Discount    decimal.Decimal       `json:"discount"`
	Tax         decimal.Decimal       `json:"tax"`
	Total       decimal.Decimal       `json:"total"`
	Status      shared.DocumentStatus `json:"status"`
	IsPosted    bool                  `json:"is_posted"`
	VoucherID   *int64                `json:"voucher_id,omitempty"`
	AccountRefs map[string]int64      `json:"account_refs,omitempty"`
	CreatedBy   int64                 `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// SalesInvoiceInput carries the fields of a new sales invoice. Total is derived.
type SalesInvoiceInput struct {
	OrgID        int64
	Number       string
	CustomerName string
	InvoiceDate  time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	CreatedBy    int64
}

// WalkInSaleInput carries the fields of a new walk-in sale. Total is gross less discount
// plus tax.
type WalkInSaleInput struct {
	OrgID     int64
	Number    string
	SaleDate  time.Time
	Gross     decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
	CreatedBy int64
}

// ListRequest filters document listings.
type ListRequest struct {
	OrgID  int64
	Status shared.DocumentStatus
	Limit  int
	Offset int
}
