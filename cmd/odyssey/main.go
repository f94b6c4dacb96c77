package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCLI(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.DatabaseOptions())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, metrics, logger, cfg.LedgerConfig())
	rules := ledgerService.Rules()
	logger.Info("ledger rules",
		slog.String("epsilon", rules.Epsilon.String()),
		slog.Int("narration_min_length", rules.NarrationMinLength),
		slog.Int("void_reason_min_length", rules.VoidReasonMinLength),
		slog.Int("fiscal_year_start_month", cfg.LedgerFiscalYearStartMonth),
	)

	apRepo := ap.NewRepository(dbpool)
	apService := ap.NewService(apRepo, logger)
	arRepo := ar.NewRepository(dbpool)
	arService := ar.NewService(arRepo, logger)

	hooks := integration.NewHooks(db.NewTransactor(dbpool), ledgerService, apRepo, arRepo,
		integration.WithAudit(auditLogger),
		integration.WithMetrics(metrics),
		integration.WithLogger(logger),
	)
	apService.SetIntegrationHandler(hooks)
	arService.SetIntegrationHandler(hooks)

	inspector := asynq.NewInspector(cfg.RedisOptions().QueueOptions())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledger.NewHandler(logger, ledgerService),
		APHandler:     ap.NewHandler(logger, apService),
		ARHandler:     ar.NewHandler(logger, arService),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		Database:      dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobsCLI(ctx context.Context, cfg *app.Config, args []string) error {
	redisOpts := cfg.RedisOptions().QueueOptions()
	client := jobs.NewClient(redisOpts)
	defer client.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()
	return cli.NewJobsCLI(client, inspector, os.Stdout).Run(ctx, args)
}
