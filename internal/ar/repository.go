package ar

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort defines data access methods for AR documents. Calls made inside a unit of
// work started by db.WithTx join its transaction.
type RepositoryPort interface {
	CreateSalesInvoice(ctx context.Context, inv SalesInvoice) (SalesInvoice, error)
	GetSalesInvoice(ctx context.Context, orgID, id int64) (SalesInvoice, error)
	ListSalesInvoices(ctx context.Context, req ListRequest) ([]SalesInvoice, error)
	LockSalesInvoice(ctx context.Context, orgID, id int64) (SalesInvoice, error)
	MarkSalesInvoicePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkSalesInvoiceVoid(ctx context.Context, orgID, id int64) error

	CreateWalkInSale(ctx context.Context, sale WalkInSale) (WalkInSale, error)
	GetWalkInSale(ctx context.Context, orgID, id int64) (WalkInSale, error)
	ListWalkInSales(ctx context.Context, req ListRequest) ([]WalkInSale, error)
	LockWalkInSale(ctx context.Context, orgID, id int64) (WalkInSale, error)
	MarkWalkInSalePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkWalkInSaleVoid(ctx context.Context, orgID, id int64) error
}

var (
	ErrNotFound        = shared.NewKindError(shared.ErrNotFound, "ar: document not found")
	ErrInvalidDocument = shared.NewKindError(shared.ErrValidation, "ar: invalid document")
	ErrDuplicateNumber = shared.NewKindError(shared.ErrStateConflict, "ar: document number already used")
	ErrNotConfigured   = shared.NewKindError(shared.ErrIntegrity, "ar: ledger posting not configured")
)
