package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uq_ledger_vouchers_number"}
	wrapped := fmt.Errorf("insert voucher: %w", dup)

	require.True(t, IsUniqueViolation(wrapped, ""))
	require.True(t, IsUniqueViolation(wrapped, "uq_ledger_vouchers_number"))
	require.False(t, IsUniqueViolation(wrapped, "uq_ledger_accounts_code"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}, ""))
	require.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestWithTxWithoutPool(t *testing.T) {
	err := WithTx(context.Background(), nil, nil)
	require.Error(t, err)

	_, ok := TxFromContext(context.Background())
	require.False(t, ok)
}

func TestAfterCommitRunsOnlyForOutermostUnit(t *testing.T) {
	var calls []string

	AfterCommit(context.Background(), func() { calls = append(calls, "immediate") })
	require.Equal(t, []string{"immediate"}, calls)

	outer, run := WithCommitHooks(context.Background())
	inner, innerRun := WithCommitHooks(outer)
	AfterCommit(inner, func() { calls = append(calls, "deferred") })
	innerRun()
	require.Len(t, calls, 1)

	run()
	require.Equal(t, []string{"immediate", "deferred"}, calls)
	run()
	require.Len(t, calls, 2)

	rolledBack, _ := WithCommitHooks(context.Background())
	AfterCommit(rolledBack, func() { calls = append(calls, "rolled back") })
	require.Len(t, calls, 2)
}

func TestReadSnapshotIsolation(t *testing.T) {
	require.Equal(t, pgx.RepeatableRead, snapshotTxOptions.IsoLevel)
	require.Equal(t, pgx.ReadOnly, snapshotTxOptions.AccessMode)

	err := ReadSnapshot(context.Background(), nil, func(context.Context, pgx.Tx) error {
		t.Fatal("fn must not run without a pool")
		return nil
	})
	require.Error(t, err)
}
