package ar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const salesInvoiceColumns = `id, org_id, number, customer_name, invoice_date, subtotal, tax, total, status,
is_posted, voucher_id, account_refs, created_by, created_at, updated_at`

const walkInSaleColumns = `id, org_id, number, sale_date, gross, discount, tax, total, status,
is_posted, voucher_id, account_refs, created_by, created_at, updated_at`

func decodeRefs(raw []byte) (map[string]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var refs map[string]int64
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("ar: decode account refs: %w", err)
	}
	return refs, nil
}

func scanSalesInvoice(row pgx.Row) (SalesInvoice, error) {
	var inv SalesInvoice
	var refs []byte
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Number, &inv.CustomerName, &inv.InvoiceDate, &inv.Subtotal, &inv.Tax,
		&inv.Total, &inv.Status, &inv.IsPosted, &inv.VoucherID, &refs, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesInvoice{}, ErrNotFound
	}
	if err != nil {
		return SalesInvoice{}, err
	}
	inv.AccountRefs, err = decodeRefs(refs)
	return inv, err
}

func scanWalkInSale(row pgx.Row) (WalkInSale, error) {
	var sale WalkInSale
	var refs []byte
	err := row.Scan(&sale.ID, &sale.OrgID, &sale.Number, &sale.SaleDate, &sale.Gross, &sale.Discount, &sale.Tax,
		&sale.Total, &sale.Status, &sale.IsPosted, &sale.VoucherID, &refs, &sale.CreatedBy, &sale.CreatedAt, &sale.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return WalkInSale{}, ErrNotFound
	}
	if err != nil {
		return WalkInSale{}, err
	}
	sale.AccountRefs, err = decodeRefs(refs)
	return sale, err
}

func requireTx(ctx context.Context) error {
	if _, ok := db.TxFromContext(ctx); !ok {
		return errors.New("ar: row lock requested outside transaction")
	}
	return nil
}

// CreateSalesInvoice inserts a draft sales invoice.
func (r *Repository) CreateSalesInvoice(ctx context.Context, inv SalesInvoice) (SalesInvoice, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO sales_invoices
(org_id, number, customer_name, invoice_date, subtotal, tax, total, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING `+salesInvoiceColumns,
		inv.OrgID, inv.Number, inv.CustomerName, inv.InvoiceDate, inv.Subtotal, inv.Tax, inv.Total,
		shared.DocumentStatusDraft, inv.CreatedBy, inv.CreatedAt)
	created, err := scanSalesInvoice(row)
	if db.IsUniqueViolation(err, "") {
		return SalesInvoice{}, ErrDuplicateNumber
	}
	return created, err
}

// GetSalesInvoice loads a sales invoice.
func (r *Repository) GetSalesInvoice(ctx context.Context, orgID, id int64) (SalesInvoice, error) {
	return scanSalesInvoice(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+salesInvoiceColumns+` FROM sales_invoices WHERE org_id = $1 AND id = $2`, orgID, id))
}

// LockSalesInvoice loads a sales invoice FOR UPDATE.
func (r *Repository) LockSalesInvoice(ctx context.Context, orgID, id int64) (SalesInvoice, error) {
	if err := requireTx(ctx); err != nil {
		return SalesInvoice{}, err
	}
	return scanSalesInvoice(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+salesInvoiceColumns+` FROM sales_invoices WHERE org_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
}

// ListSalesInvoices returns sales invoices newest first.
func (r *Repository) ListSalesInvoices(ctx context.Context, req ListRequest) ([]SalesInvoice, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+salesInvoiceColumns+` FROM sales_invoices
WHERE org_id = $1 AND ($2 = '' OR status = $2)
ORDER BY invoice_date DESC, id DESC LIMIT $3 OFFSET $4`, req.OrgID, string(req.Status), req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []SalesInvoice
	for rows.Next() {
		inv, err := scanSalesInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkSalesInvoicePosted links the invoice to its voucher.
func (r *Repository) MarkSalesInvoicePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	return r.markPosted(ctx, "sales_invoices", orgID, id, link)
}

// MarkSalesInvoiceVoid flags the invoice void.
func (r *Repository) MarkSalesInvoiceVoid(ctx context.Context, orgID, id int64) error {
	return r.markVoid(ctx, "sales_invoices", orgID, id)
}

// CreateWalkInSale inserts a draft walk-in sale.
func (r *Repository) CreateWalkInSale(ctx context.Context, sale WalkInSale) (WalkInSale, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO walk_in_sales
(org_id, number, sale_date, gross, discount, tax, total, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING `+walkInSaleColumns,
		sale.OrgID, sale.Number, sale.SaleDate, sale.Gross, sale.Discount, sale.Tax, sale.Total,
		shared.DocumentStatusDraft, sale.CreatedBy, sale.CreatedAt)
	created, err := scanWalkInSale(row)
	if db.IsUniqueViolation(err, "") {
		return WalkInSale{}, ErrDuplicateNumber
	}
	return created, err
}

// GetWalkInSale loads a walk-in sale.
func (r *Repository) GetWalkInSale(ctx context.Context, orgID, id int64) (WalkInSale, error) {
	return scanWalkInSale(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+walkInSaleColumns+` FROM walk_in_sales WHERE org_id = $1 AND id = $2`, orgID, id))
}

// LockWalkInSale loads a walk-in sale FOR UPDATE.
func (r *Repository) LockWalkInSale(ctx context.Context, orgID, id int64) (WalkInSale, error) {
	if err := requireTx(ctx); err != nil {
		return WalkInSale{}, err
	}
	return scanWalkInSale(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+walkInSaleColumns+` FROM walk_in_sales WHERE org_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
}

// ListWalkInSales returns walk-in sales newest first.
func (r *Repository) ListWalkInSales(ctx context.Context, req ListRequest) ([]WalkInSale, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+walkInSaleColumns+` FROM walk_in_sales
WHERE org_id = $1 AND ($2 = '' OR status = $2)
ORDER BY sale_date DESC, id DESC LIMIT $3 OFFSET $4`, req.OrgID, string(req.Status), req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []WalkInSale
	for rows.Next() {
		sale, err := scanWalkInSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// MarkWalkInSalePosted links the sale to its voucher.
func (r *Repository) MarkWalkInSalePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	return r.markPosted(ctx, "walk_in_sales", orgID, id, link)
}

// MarkWalkInSaleVoid flags the sale void.
func (r *Repository) MarkWalkInSaleVoid(ctx context.Context, orgID, id int64) error {
	return r.markVoid(ctx, "walk_in_sales", orgID, id)
}

// table is one of the fixed document table names above, never user input.
func (r *Repository) markPosted(ctx context.Context, table string, orgID, id int64, link shared.LedgerLink) error {
	refs, err := json.Marshal(link.AccountRefs)
	if err != nil {
		return err
	}
	at := link.At
	if at.IsZero() {
		at = time.Now()
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE `+table+`
SET status = $3, is_posted = TRUE, voucher_id = $4, account_refs = $5, updated_at = $6
WHERE org_id = $1 AND id = $2`, orgID, id, shared.DocumentStatusPosted, link.VoucherID, refs, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) markVoid(ctx context.Context, table string, orgID, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE `+table+`
SET status = $3, is_posted = FALSE, updated_at = NOW()
WHERE org_id = $1 AND id = $2`, orgID, id, shared.DocumentStatusVoid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
