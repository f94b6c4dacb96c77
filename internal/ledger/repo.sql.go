package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	accountColumns = `id, org_id, code, name, type, category, normal_balance, parent_id, level, is_group, current_balance, is_active, is_deleted, created_at, updated_at`
	voucherColumns = `id, org_id, number, voucher_type, voucher_date, fiscal_year, fiscal_period, narration, status, reference_type, reference_id,
created_by, posted_by, posted_at, voided_by, voided_at, void_reason, created_at, updated_at`
	entryColumns = `id, org_id, voucher_id, account_id, side, amount, running_balance, reversal_of, description, created_at, voided_at, voided_by, void_reason`

	voucherNumberConstraint = "uq_ledger_vouchers_org_number"
)

// Repository persists ledger entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a READ COMMITTED transaction, joining one already carried by ctx.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance, &a.ParentID, &a.Level,
		&a.IsGroup, &a.CurrentBalance, &a.IsActive, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanVoucher(row rowScanner) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.OrgID, &v.Number, &v.Type, &v.Date, &v.FiscalYear, &v.FiscalPeriod, &v.Narration, &v.Status,
		&v.ReferenceType, &v.ReferenceID, &v.CreatedBy, &v.PostedBy, &v.PostedAt, &v.VoidedBy, &v.VoidedAt, &v.VoidReason,
		&v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func scanEntry(row rowScanner) (LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(&e.ID, &e.OrgID, &e.VoucherID, &e.AccountID, &e.Side, &e.Amount, &e.RunningBalance, &e.ReversalOf,
		&e.Description, &e.CreatedAt, &e.VoidedAt, &e.VoidedBy, &e.VoidReason)
	return e, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func loadVoucherEntries(ctx context.Context, q db.Querier, voucherID int64) ([]VoucherEntry, error) {
	rows, err := q.Query(ctx, `SELECT account_id, debit, credit, description FROM ledger_voucher_entries WHERE voucher_id=$1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoucherEntry
	for rows.Next() {
		var e VoucherEntry
		if err := rows.Scan(&e.AccountID, &e.Debit, &e.Credit, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertVoucherEntries(ctx context.Context, q db.Querier, voucherID int64, entries []VoucherEntry) error {
	for i, e := range entries {
		if _, err := q.Exec(ctx, `INSERT INTO ledger_voucher_entries (voucher_id, line_no, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6)`, voucherID, i+1, e.AccountID, e.Debit, e.Credit, e.Description); err != nil {
			return err
		}
	}
	return nil
}

// GetAccount loads an active account.
func (r *Repository) GetAccount(ctx context.Context, orgID, id int64) (Account, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_active_accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return acc, err
}

// ListAccounts returns active accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+accountColumns+` FROM ledger_active_accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// GetVoucher loads a voucher with entries.
func (r *Repository) GetVoucher(ctx context.Context, orgID, id int64) (Voucher, error) {
	q := db.Conn(ctx, r.pool)
	v, err := scanVoucher(q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM ledger_vouchers WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	v.Entries, err = loadVoucherEntries(ctx, q, v.ID)
	return v, err
}

// ListVouchers returns voucher headers matching filter.
func (r *Repository) ListVouchers(ctx context.Context, orgID int64, filter VoucherFilter) ([]Voucher, error) {
	var b strings.Builder
	args := []any{orgID}
	b.WriteString(`SELECT ` + voucherColumns + ` FROM ledger_vouchers WHERE org_id=$1`)
	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&b, " AND status=$%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		fmt.Fprintf(&b, " AND voucher_type=$%d", len(args))
	}
	if filter.FiscalPeriod != "" {
		args = append(args, filter.FiscalPeriod)
		fmt.Fprintf(&b, " AND fiscal_period=$%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY voucher_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := db.Conn(ctx, r.pool).Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListEntriesByVoucher returns a voucher's ledger entries in creation order.
func (r *Repository) ListEntriesByVoucher(ctx context.Context, orgID, voucherID int64) ([]LedgerEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE org_id=$1 AND voucher_id=$2 ORDER BY id`, orgID, voucherID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListEntriesByAccount returns an account's ledger history.
func (r *Repository) ListEntriesByAccount(ctx context.Context, orgID, accountID int64, filter EntryFilter) ([]LedgerEntry, error) {
	var b strings.Builder
	args := []any{orgID, accountID}
	b.WriteString(`SELECT ` + entryColumns + ` FROM ledger_entries WHERE org_id=$1 AND account_id=$2`)
	if filter.From != nil {
		args = append(args, *filter.From)
		fmt.Fprintf(&b, " AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		fmt.Fprintf(&b, " AND created_at < $%d", len(args))
	}
	args = append(args, filter.Limit)
	fmt.Fprintf(&b, " ORDER BY created_at, id LIMIT $%d", len(args))
	rows, err := db.Conn(ctx, r.pool).Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// Snapshot reads all accounts and per-account entry totals in one REPEATABLE READ
// transaction.
func (r *Repository) Snapshot(ctx context.Context, orgID int64) (LedgerSnapshot, error) {
	var snap LedgerSnapshot
	err := db.ReadSnapshot(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+accountColumns+` FROM ledger_accounts WHERE org_id=$1 ORDER BY code`, orgID)
		if err != nil {
			return err
		}
		if snap.Accounts, err = collectAccounts(rows); err != nil {
			return err
		}
		snap.Totals, err = entryTotals(ctx, tx, orgID)
		return err
	})
	return snap, err
}

func entryTotals(ctx context.Context, q db.Querier, orgID int64) ([]AccountEntryTotals, error) {
	rows, err := q.Query(ctx, `SELECT account_id,
COALESCE(SUM(amount) FILTER (WHERE side='debit'), 0),
COALESCE(SUM(amount) FILTER (WHERE side='credit'), 0)
FROM ledger_entries WHERE org_id=$1 GROUP BY account_id ORDER BY account_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountEntryTotals
	for rows.Next() {
		var t AccountEntryTotals
		if err := rows.Scan(&t.AccountID, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOrganizations returns every organization with a chart of accounts.
func (r *Repository) ListOrganizations(ctx context.Context) ([]int64, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT DISTINCT org_id FROM ledger_accounts ORDER BY org_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *txRepository) queryAccounts(ctx context.Context, orgID int64, ids []int64, lock bool) (map[int64]Account, error) {
	out := make(map[int64]Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sql := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE org_id=$1 AND id = ANY($2) ORDER BY id`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := r.tx.Query(ctx, sql, orgID, ids)
	if err != nil {
		return nil, err
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func (r *txRepository) GetAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error) {
	return r.queryAccounts(ctx, orgID, ids, false)
}

func (r *txRepository) LockAccounts(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error) {
	return r.queryAccounts(ctx, orgID, ids, true)
}

func (r *txRepository) LockAccount(ctx context.Context, orgID, id int64) (Account, error) {
	acc, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_accounts WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return acc, err
}

func (r *txRepository) FindAccountByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	acc, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_active_accounts WHERE org_id=$1 AND code=$2`, orgID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return acc, err
}

func (r *txRepository) InsertAccount(ctx context.Context, acc Account) (Account, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_accounts (org_id, code, name, type, category, normal_balance, parent_id, level, is_group, current_balance, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10)
ON CONFLICT (org_id, code) WHERE NOT is_deleted DO NOTHING
RETURNING id, created_at, updated_at`,
		acc.OrgID, acc.Code, acc.Name, acc.Type, acc.Category, acc.NormalBalance, acc.ParentID, acc.Level, acc.IsGroup, acc.IsActive).
		Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrDuplicateAccountCode
	}
	if err != nil {
		return Account{}, err
	}
	acc.CurrentBalance = decimal.Zero
	return acc, nil
}

func (r *txRepository) UpdateAccount(ctx context.Context, acc Account) (Account, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_accounts SET name=$3, category=$4, is_active=$5, updated_at=$6 WHERE org_id=$1 AND id=$2`,
		acc.OrgID, acc.ID, acc.Name, acc.Category, acc.IsActive, acc.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (r *txRepository) SetAccountGroup(ctx context.Context, orgID, id int64, isGroup bool) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_accounts SET is_group=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, isGroup)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) SoftDeleteAccount(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_accounts SET is_deleted=TRUE, is_active=FALSE, updated_at=NOW() WHERE org_id=$1 AND id=$2 AND NOT is_deleted`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) CountActiveChildren(ctx context.Context, orgID, id int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_active_accounts WHERE org_id=$1 AND parent_id=$2`, orgID, id).Scan(&n)
	return n, err
}

func (r *txRepository) AccountHasEntries(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE org_id=$1 AND account_id=$2)`, orgID, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) AccountHasOpenEntries(ctx context.Context, orgID, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries
WHERE org_id=$1 AND account_id=$2 AND voided_at IS NULL AND reversal_of IS NULL)`, orgID, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) AdjustBalance(ctx context.Context, orgID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.tx.QueryRow(ctx, `UPDATE ledger_accounts SET current_balance = current_balance + $3, updated_at=NOW()
WHERE org_id=$1 AND id=$2 RETURNING current_balance`, orgID, accountID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	return balance, err
}

// NextVoucherSequence increments the (org, type, year) counter, seeding it from the highest
// existing number the first time the book is used. The upsert's row lock serializes callers.
func (r *txRepository) NextVoucherSequence(ctx context.Context, orgID int64, t VoucherType, fiscalYear int) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_voucher_sequences (org_id, voucher_type, fiscal_year, last_value)
VALUES ($1, $2, $3, COALESCE((
	SELECT MAX(CAST(substring(number FROM length($4) + 1) AS BIGINT))
	FROM ledger_vouchers
	WHERE org_id=$1 AND voucher_type=$2 AND fiscal_year=$3 AND number ~ ('^' || $4 || '[0-9]+$')
), 0) + 1)
ON CONFLICT (org_id, voucher_type, fiscal_year) DO UPDATE SET last_value = ledger_voucher_sequences.last_value + 1
RETURNING last_value`, orgID, t, fiscalYear, NumberPrefix(t, fiscalYear)).Scan(&seq)
	return seq, err
}

// InsertVoucher stores a draft inside a savepoint so a number collision leaves the outer
// transaction usable for a retry.
func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return Voucher{}, err
	}
	defer func() { _ = sp.Rollback(ctx) }()
	err = sp.QueryRow(ctx, `INSERT INTO ledger_vouchers (org_id, number, voucher_type, voucher_date, fiscal_year, fiscal_period, narration, status,
reference_type, reference_id, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		v.OrgID, v.Number, v.Type, v.Date, v.FiscalYear, v.FiscalPeriod, v.Narration, v.Status,
		v.ReferenceType, v.ReferenceID, v.CreatedBy, v.CreatedAt, v.UpdatedAt).Scan(&v.ID)
	if err != nil {
		if db.IsUniqueViolation(err, voucherNumberConstraint) {
			return Voucher{}, ErrDuplicateNumber
		}
		return Voucher{}, err
	}
	if err := insertVoucherEntries(ctx, sp, v.ID, v.Entries); err != nil {
		return Voucher{}, err
	}
	if err := sp.Commit(ctx); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) ReplaceDraft(ctx context.Context, v Voucher) (Voucher, error) {
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return Voucher{}, err
	}
	defer func() { _ = sp.Rollback(ctx) }()
	cmd, err := sp.Exec(ctx, `UPDATE ledger_vouchers SET number=$3, voucher_type=$4, voucher_date=$5, fiscal_year=$6, fiscal_period=$7,
narration=$8, reference_type=$9, reference_id=$10, updated_at=$11
WHERE org_id=$1 AND id=$2 AND status='draft'`,
		v.OrgID, v.ID, v.Number, v.Type, v.Date, v.FiscalYear, v.FiscalPeriod, v.Narration, v.ReferenceType, v.ReferenceID, v.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, voucherNumberConstraint) {
			return Voucher{}, ErrDuplicateNumber
		}
		return Voucher{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Voucher{}, ErrNotDraft
	}
	if _, err := sp.Exec(ctx, `DELETE FROM ledger_voucher_entries WHERE voucher_id=$1`, v.ID); err != nil {
		return Voucher{}, err
	}
	if err := insertVoucherEntries(ctx, sp, v.ID, v.Entries); err != nil {
		return Voucher{}, err
	}
	if err := sp.Commit(ctx); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) DeleteVoucher(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ledger_vouchers WHERE org_id=$1 AND id=$2 AND status='draft'`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

func (r *txRepository) LockVoucher(ctx context.Context, orgID, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM ledger_vouchers WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	v.Entries, err = loadVoucherEntries(ctx, r.tx, v.ID)
	return v, err
}

func (r *txRepository) UpdateVoucherStatus(ctx context.Context, v Voucher) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_vouchers SET status=$3, posted_by=$4, posted_at=$5, voided_by=$6, voided_at=$7, void_reason=$8, updated_at=$9
WHERE org_id=$1 AND id=$2`, v.OrgID, v.ID, v.Status, v.PostedBy, v.PostedAt, v.VoidedBy, v.VoidedAt, v.VoidReason, v.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) InsertLedgerEntries(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error) {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO ledger_entries (org_id, voucher_id, account_id, side, amount, running_balance, reversal_of, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			e.OrgID, e.VoucherID, e.AccountID, e.Side, e.Amount, e.RunningBalance, e.ReversalOf, e.Description, e.CreatedAt)
	}
	results := r.tx.SendBatch(ctx, batch)
	out := make([]LedgerEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if err := results.QueryRow().Scan(&out[i].ID); err != nil {
			_ = results.Close()
			return nil, err
		}
	}
	if err := results.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *txRepository) LockOpenEntries(ctx context.Context, orgID, voucherID int64) ([]LedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE org_id=$1 AND voucher_id=$2 AND voided_at IS NULL AND reversal_of IS NULL ORDER BY id FOR UPDATE`, orgID, voucherID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *txRepository) MarkEntriesVoided(ctx context.Context, orgID int64, ids []int64, marker VoidMarker) error {
	if len(ids) == 0 {
		return nil
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET voided_at=$3, voided_by=$4, void_reason=$5
WHERE org_id=$1 AND id = ANY($2) AND voided_at IS NULL`, orgID, ids, marker.At, marker.By, marker.Reason)
	if err != nil {
		return err
	}
	if int(cmd.RowsAffected()) != len(ids) {
		return fmt.Errorf("ledger: voided %d of %d entries: %w", cmd.RowsAffected(), len(ids), shared.ErrIntegrity)
	}
	return nil
}

var (
	_ RepositoryPort = (*Repository)(nil)
	_ TxRepository   = (*txRepository)(nil)
)
