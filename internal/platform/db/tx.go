package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txContextKey struct{}

// TxFromContext returns the transaction opened by an enclosing WithTx.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// WithTx executes fn within a READ COMMITTED transaction. Row locks taken inside fn
// serialize writers; when ctx already carries a transaction fn joins it instead of
// opening a new one, so the outermost caller owns commit and rollback.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	if pool == nil {
		return errors.New("platform/db: pool not initialised")
	}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCtx, runHooks := WithCommitHooks(context.WithValue(ctx, txContextKey{}, tx))
	if err := fn(txCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	runHooks()

	return nil
}

var snapshotTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// ReadSnapshot executes fn within a read-only REPEATABLE READ transaction so every query in
// fn sees the same committed state. A transaction already carried by ctx is joined.
func ReadSnapshot(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	if pool == nil {
		return errors.New("platform/db: pool not initialised")
	}
	tx, err := pool.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return fmt.Errorf("platform/db: begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(context.WithValue(ctx, txContextKey{}, tx), tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit snapshot: %w", err)
	}
	return nil
}

// Conn returns the transaction carried by ctx, falling back to the pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return pool
}

// Transactor runs units of work spanning several repositories.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor constructs a Transactor.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx runs fn in one transaction; repositories called from fn join it through ctx.
func (t *Transactor) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	return WithTx(ctx, t.pool, func(ctx context.Context, _ pgx.Tx) error {
		return fn(ctx)
	})
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-index violation. An empty
// constraint matches any unique index.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
