package ap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort defines purchase invoice data access. Calls made inside a unit of work
// started by db.WithTx join its transaction.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv PurchaseInvoice) (PurchaseInvoice, error)
	GetInvoice(ctx context.Context, orgID, id int64) (PurchaseInvoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]PurchaseInvoice, error)
	LockInvoice(ctx context.Context, orgID, id int64) (PurchaseInvoice, error)
	MarkPosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkVoid(ctx context.Context, orgID, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, org_id, number, supplier_name, invoice_date, subtotal, tax, total, paid_in_cash,
status, is_posted, voucher_id, account_refs, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (PurchaseInvoice, error) {
	var inv PurchaseInvoice
	var refs []byte
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Number, &inv.SupplierName, &inv.InvoiceDate, &inv.Subtotal, &inv.Tax,
		&inv.Total, &inv.PaidInCash, &inv.Status, &inv.IsPosted, &inv.VoucherID, &refs, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseInvoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return PurchaseInvoice{}, err
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &inv.AccountRefs); err != nil {
			return PurchaseInvoice{}, fmt.Errorf("ap: decode account refs: %w", err)
		}
	}
	return inv, nil
}

// CreateInvoice inserts a draft invoice.
func (r *Repository) CreateInvoice(ctx context.Context, inv PurchaseInvoice) (PurchaseInvoice, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO purchase_invoices
(org_id, number, supplier_name, invoice_date, subtotal, tax, total, paid_in_cash, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING `+invoiceColumns,
		inv.OrgID, inv.Number, inv.SupplierName, inv.InvoiceDate, inv.Subtotal, inv.Tax, inv.Total, inv.PaidInCash,
		shared.DocumentStatusDraft, inv.CreatedBy, inv.CreatedAt)
	created, err := scanInvoice(row)
	if db.IsUniqueViolation(err, "") {
		return PurchaseInvoice{}, ErrDuplicateNumber
	}
	return created, err
}

// GetInvoice loads an invoice.
func (r *Repository) GetInvoice(ctx context.Context, orgID, id int64) (PurchaseInvoice, error) {
	return scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM purchase_invoices WHERE org_id = $1 AND id = $2`, orgID, id))
}

// LockInvoice loads an invoice with a row lock held until the surrounding transaction ends.
func (r *Repository) LockInvoice(ctx context.Context, orgID, id int64) (PurchaseInvoice, error) {
	if _, ok := db.TxFromContext(ctx); !ok {
		return PurchaseInvoice{}, errors.New("ap: lock invoice outside transaction")
	}
	return scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM purchase_invoices WHERE org_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
}

// ListInvoices returns invoices newest first.
func (r *Repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]PurchaseInvoice, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+invoiceColumns+` FROM purchase_invoices
WHERE org_id = $1 AND ($2 = '' OR status = $2)
ORDER BY invoice_date DESC, id DESC LIMIT $3 OFFSET $4`, req.OrgID, string(req.Status), req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []PurchaseInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkPosted links the invoice to its voucher.
func (r *Repository) MarkPosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	refs, err := json.Marshal(link.AccountRefs)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE purchase_invoices
SET status = $3, is_posted = TRUE, voucher_id = $4, account_refs = $5, updated_at = $6
WHERE org_id = $1 AND id = $2`, orgID, id, shared.DocumentStatusPosted, link.VoucherID, refs, link.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// MarkVoid flags the invoice void. The voucher link is kept for audit.
func (r *Repository) MarkVoid(ctx context.Context, orgID, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE purchase_invoices
SET status = $3, is_posted = FALSE, updated_at = NOW()
WHERE org_id = $1 AND id = $2`, orgID, id, shared.DocumentStatusVoid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
