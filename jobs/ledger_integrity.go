package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// IntegrityChecker is the ledger surface the integrity job needs.
type IntegrityChecker interface {
	ListOrganizations(ctx context.Context) ([]int64, error)
	CheckIntegrity(ctx context.Context, orgID int64) (ledger.IntegrityReport, error)
}

// Locker obtains distributed locks.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// LedgerIntegrityConfig configures LedgerIntegrityJob.
type LedgerIntegrityConfig struct {
	Checker     IntegrityChecker
	Locker      Locker
	Metrics     *jobmetrics.Metrics
	Logger      *slog.Logger
	LockTTL     time.Duration
	Concurrency int
}

// LedgerIntegrityJob verifies, per organization, that posted entries balance and that stored
// account balances match ledger history. Each organization is guarded by a lock so that
// concurrent workers never check the same organization twice.
type LedgerIntegrityJob struct {
	checker     IntegrityChecker
	locker      Locker
	metrics     *jobmetrics.Metrics
	logger      *slog.Logger
	lockTTL     time.Duration
	concurrency int
}

// IntegritySummary is the outcome of one integrity sweep.
type IntegritySummary struct {
	Checked []int64
	Skipped []int64
	Drifted map[int64][]ledger.BalanceDrift
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(cfg LedgerIntegrityConfig) *LedgerIntegrityJob {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &LedgerIntegrityJob{
		checker:     cfg.Checker,
		locker:      cfg.Locker,
		metrics:     cfg.Metrics,
		logger:      logger,
		lockTTL:     ttl,
		concurrency: concurrency,
	}
}

// Handle executes the integrity task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload.OrgIDs...)
	return err
}

// Run checks the given organizations, or every organization owning accounts when none are
// given. Drift is reported through logs and metrics; only operational failures are returned.
func (j *LedgerIntegrityJob) Run(ctx context.Context, orgIDs ...int64) (summary IntegritySummary, err error) {
	tracker := j.metrics.Track(TaskLedgerIntegrityCheck)
	defer func() {
		err = tracker.End(err)
	}()

	start := time.Now()
	if len(orgIDs) == 0 {
		orgIDs, err = j.checker.ListOrganizations(ctx)
		if err != nil {
			return summary, fmt.Errorf("ledger integrity: list organizations: %w", err)
		}
	}
	summary.Drifted = make(map[int64][]ledger.BalanceDrift)

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, orgID := range orgIDs {
		orgID := orgID
		g.Go(func() error {
			report, checked, err := j.checkOrg(gctx, orgID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && errors.Is(err, ledger.ErrBalanceDrift):
				summary.Checked = append(summary.Checked, orgID)
				summary.Drifted[orgID] = report.Drifts
			case err != nil:
				failures = append(failures, fmt.Errorf("org %d: %w", orgID, err))
			case !checked:
				summary.Skipped = append(summary.Skipped, orgID)
			default:
				summary.Checked = append(summary.Checked, orgID)
			}
			return nil
		})
	}
	_ = g.Wait()
	sortIDs(summary.Checked)
	sortIDs(summary.Skipped)

	j.logger.InfoContext(ctx, "ledger integrity sweep completed",
		slog.Int("organizations", len(orgIDs)),
		slog.Int("checked", len(summary.Checked)),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("drifted", len(summary.Drifted)),
		slog.Duration("duration", time.Since(start)),
	)
	return summary, errors.Join(failures...)
}

func (j *LedgerIntegrityJob) checkOrg(ctx context.Context, orgID int64) (ledger.IntegrityReport, bool, error) {
	logger := j.logger.With(slog.Int64("org_id", orgID))
	if j.locker != nil {
		lock, err := j.locker.Obtain(ctx, shared.LedgerIntegrityLockKey(orgID), j.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.InfoContext(ctx, "integrity check already running elsewhere")
			j.metrics.Skip(TaskLedgerIntegrityCheck)
			return ledger.IntegrityReport{}, false, nil
		}
		if err != nil {
			return ledger.IntegrityReport{}, false, fmt.Errorf("obtain lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.WarnContext(ctx, "release integrity lock", slog.Any("error", err))
			}
		}()
	}

	report, err := j.checker.CheckIntegrity(ctx, orgID)
	if errors.Is(err, ledger.ErrBalanceDrift) {
		findings := len(report.Drifts)
		if findings == 0 {
			findings = 1
		}
		j.metrics.AddDrifts(orgID, findings)
		for _, d := range report.Drifts {
			logger.ErrorContext(ctx, "ledger balance drift",
				slog.Int64("account_id", d.AccountID),
				slog.String("code", d.Code),
				slog.String("stored", d.Stored.String()),
				slog.String("ledger", d.Ledger.String()),
			)
		}
		if len(report.Drifts) == 0 {
			logger.ErrorContext(ctx, "ledger entries do not balance",
				slog.String("debit", report.TotalDebit.String()),
				slog.String("credit", report.TotalCredit.String()),
			)
		}
		return report, true, err
	}
	if err != nil {
		logger.ErrorContext(ctx, "integrity check failed", slog.Any("error", err))
		return report, false, err
	}
	return report, true, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
}
