package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

const (
	codeCapital = "3-100"
	seedActorID = 1
)

func main() {
	orgID := flag.Int64("org", 1, "organization to seed")
	opening := flag.String("opening", "10000", "opening cash balance funded by owner's capital, 0 to skip")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.DatabaseOptions())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	svc := ledger.NewService(ledger.NewRepository(pool), nil, nil, logger, cfg.LedgerConfig())
	if err := seed(ctx, svc, *orgID, *opening, logger); err != nil {
		logger.Error("seed ledger", slog.Int64("org_id", *orgID), slog.Any("error", err))
		os.Exit(1)
	}
}

func seed(ctx context.Context, svc *ledger.Service, orgID int64, opening string, logger *slog.Logger) error {
	for _, code := range ledger.DefaultAccountCodes() {
		acc, err := svc.FindOrCreateDefaultAccount(ctx, orgID, code)
		if err != nil {
			return err
		}
		logger.Info("account ready", slog.String("code", acc.Code), slog.String("name", acc.Name))
	}

	amount, err := decimal.NewFromString(opening)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return nil
	}
	capital, err := svc.CreateAccount(ctx, ledger.CreateAccountInput{
		OrgID:    orgID,
		Code:     codeCapital,
		Name:     "Owner's Capital",
		Type:     ledger.AccountTypeEquity,
		Category: "capital",
		ActorID:  seedActorID,
	})
	if errors.Is(err, ledger.ErrDuplicateAccountCode) {
		logger.Info("opening balance already seeded")
		return nil
	}
	if err != nil {
		return err
	}
	cash, err := svc.FindOrCreateDefaultAccount(ctx, orgID, ledger.CodeCash)
	if err != nil {
		return err
	}
	draft, err := svc.CreateDraft(ctx, ledger.DraftInput{
		OrgID:     orgID,
		Type:      ledger.VoucherTypeJournal,
		Date:      time.Now().UTC(),
		Narration: "Opening balance",
		Entries: []ledger.VoucherEntry{
			{AccountID: cash.ID, Debit: amount, Credit: decimal.Zero},
			{AccountID: capital.ID, Debit: decimal.Zero, Credit: amount},
		},
		CreatedBy: seedActorID,
	})
	if err != nil {
		return err
	}
	posted, err := svc.Post(ctx, ledger.PostInput{OrgID: orgID, VoucherID: draft.ID, ActorID: seedActorID})
	if err != nil {
		return err
	}
	logger.Info("opening balance posted", slog.String("number", posted.Number))
	return nil
}
