package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts ledger operations.
type MetricsPort interface {
	ObserveLedgerOperation(operation, voucherType string, err error)
}

// Config tunes the engine.
type Config struct {
	Rules                Rules
	NumberMaxRetries     int
	FiscalYearStartMonth int
}

// Service coordinates the chart of accounts, the voucher lifecycle and ledger postings.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	rules   Rules
	retries int
	fyStart int
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.NumberMaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Service{
		repo:    repo,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		rules:   cfg.Rules.normalized(),
		retries: retries,
		fyStart: cfg.FiscalYearStartMonth,
		now:     time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Rules exposes the active validation thresholds.
func (s *Service) Rules() Rules {
	return s.rules
}

// FiscalYearOf returns the fiscal year a date belongs to.
func (s *Service) FiscalYearOf(date time.Time) int {
	return shared.FiscalYear(date, s.fyStart)
}

// CreateDraft validates and stores a new draft voucher with a freshly assigned number.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (Voucher, error) {
	if err := validateHeader(in, s.rules); err != nil {
		return Voucher{}, err
	}
	v := s.draftFromInput(in)
	var created Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.validateAgainst(ctx, tx, v); err != nil {
			return err
		}
		inserted, err := s.withNumber(ctx, tx, v, tx.InsertVoucher)
		if err != nil {
			return err
		}
		created = inserted
		return nil
	})
	s.observe(ctx, "create", v.Type, err)
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, in.OrgID, in.CreatedBy, "voucher.create", "voucher", created.ID, map[string]any{"number": created.Number})
	return created, nil
}

// UpdateDraft replaces header and entries of a draft. Changing type or fiscal year assigns a
// new number; the old one stays consumed.
func (s *Service) UpdateDraft(ctx context.Context, voucherID int64, in DraftInput) (Voucher, error) {
	if err := validateHeader(in, s.rules); err != nil {
		return Voucher{}, err
	}
	next := s.draftFromInput(in)
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockVoucher(ctx, in.OrgID, voucherID)
		if err != nil {
			return err
		}
		if current.Status != VoucherStatusDraft {
			return ErrNotDraft
		}
		if err := s.validateAgainst(ctx, tx, next); err != nil {
			return err
		}
		next.ID = current.ID
		next.CreatedBy = current.CreatedBy
		next.CreatedAt = current.CreatedAt
		next.Number = current.Number
		if current.Type == next.Type && current.FiscalYear == next.FiscalYear {
			updated, err = tx.ReplaceDraft(ctx, next)
			return err
		}
		updated, err = s.withNumber(ctx, tx, next, tx.ReplaceDraft)
		return err
	})
	s.observe(ctx, "update", next.Type, err)
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, in.OrgID, in.CreatedBy, "voucher.update", "voucher", updated.ID, map[string]any{"number": updated.Number})
	return updated, nil
}

// DeleteDraft removes a draft voucher. Its number is not reused.
func (s *Service) DeleteDraft(ctx context.Context, orgID, voucherID, actorID int64) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockVoucher(ctx, orgID, voucherID)
		if err != nil {
			return err
		}
		if current.Status != VoucherStatusDraft {
			return ErrNotDraft
		}
		number = current.Number
		return tx.DeleteVoucher(ctx, orgID, voucherID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, orgID, actorID, "voucher.delete", "voucher", voucherID, map[string]any{"number": number})
	return nil
}

// GetVoucher loads a voucher with its entries.
func (s *Service) GetVoucher(ctx context.Context, orgID, voucherID int64) (Voucher, error) {
	return s.repo.GetVoucher(ctx, orgID, voucherID)
}

// ListVouchers returns vouchers matching filter, newest first.
func (s *Service) ListVouchers(ctx context.Context, orgID int64, filter VoucherFilter) ([]Voucher, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListVouchers(ctx, orgID, filter)
}

// ValidateDoubleEntry resolves the voucher's accounts and checks it without persisting.
func (s *Service) ValidateDoubleEntry(ctx context.Context, orgID int64, v Voucher) (ValidationResult, error) {
	var result ValidationResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.GetAccounts(ctx, orgID, accountIDs(v.Entries))
		if err != nil {
			return err
		}
		result = ValidateDoubleEntry(v, accounts, s.rules.Epsilon)
		return nil
	})
	return result, err
}

// GenerateVoucherNumber reserves the next number of the (type, fiscal year) book.
func (s *Service) GenerateVoucherNumber(ctx context.Context, orgID int64, t VoucherType, fiscalYear int) (string, error) {
	if !t.Valid() {
		return "", fieldError("type", ErrInvalidVoucherType)
	}
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextVoucherSequence(ctx, orgID, t, fiscalYear)
		if err != nil {
			return err
		}
		number = FormatVoucherNumber(t, fiscalYear, seq)
		return nil
	})
	return number, err
}

// Post turns a draft into ledger entries and balance movements in one transaction. A
// difference within epsilon is booked to the rounding account so the ledger itself always
// balances exactly.
func (s *Service) Post(ctx context.Context, in PostInput) (Voucher, error) {
	var posted Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.LockVoucher(ctx, in.OrgID, in.VoucherID)
		if err != nil {
			return err
		}
		switch v.Status {
		case VoucherStatusPosted:
			return ErrAlreadyPosted
		case VoucherStatusVoid:
			return ErrVoidedVoucher
		}
		touched := v.Entries
		totals := ComputeTotals(v.Entries)
		diff := totals.Debit.Sub(totals.Credit)
		var rounding Account
		if !diff.IsZero() && diff.Abs().LessThanOrEqual(s.rules.Epsilon) {
			rounding, err = s.FindOrCreateDefaultAccount(ctx, in.OrgID, CodeRounding)
			if err != nil {
				return err
			}
			touched = append(append([]VoucherEntry(nil), v.Entries...), VoucherEntry{AccountID: rounding.ID})
		}
		accounts, err := tx.LockAccounts(ctx, in.OrgID, accountIDs(touched))
		if err != nil {
			return err
		}
		if err := ValidateDoubleEntry(v, accounts, s.rules.Epsilon).Err(); err != nil {
			return err
		}
		lines := linesFromVoucher(v.Entries)
		if rounding.ID != 0 {
			line, err := roundingLine(accounts[rounding.ID], diff)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}
		now := s.now()
		if _, err := s.apply(ctx, tx, v, lines, accounts, now); err != nil {
			return err
		}
		actor := in.ActorID
		v.Status = VoucherStatusPosted
		v.PostedBy = &actor
		v.PostedAt = &now
		v.UpdatedAt = now
		if err := tx.UpdateVoucherStatus(ctx, v); err != nil {
			return err
		}
		posted = v
		return nil
	})
	s.observe(ctx, "post", posted.Type, err)
	if err != nil {
		s.logFailure(ctx, "post", in.OrgID, in.VoucherID, err)
		return Voucher{}, err
	}
	db.AfterCommit(ctx, func() {
		s.logger.InfoContext(ctx, "voucher posted",
			slog.Int64("org_id", in.OrgID),
			slog.Int64("voucher_id", posted.ID),
			slog.String("number", posted.Number),
		)
	})
	s.record(ctx, in.OrgID, in.ActorID, "voucher.post", "voucher", posted.ID, map[string]any{
		"number": posted.Number,
		"total":  posted.Totals().Debit.StringFixed(2),
	})
	return posted, nil
}

// Void reverses a posted voucher with flipped entries, leaving the originals in place.
func (s *Service) Void(ctx context.Context, in VoidInput) (Voucher, error) {
	if err := validateVoidReason(in.Reason, s.rules); err != nil {
		return Voucher{}, err
	}
	var voided Voucher
	var reversals int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.LockVoucher(ctx, in.OrgID, in.VoucherID)
		if err != nil {
			return err
		}
		switch v.Status {
		case VoucherStatusDraft:
			return ErrNotPosted
		case VoucherStatusVoid:
			return ErrAlreadyVoid
		}
		originals, err := tx.LockOpenEntries(ctx, in.OrgID, v.ID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(originals))
		touched := make([]VoucherEntry, 0, len(originals))
		for _, e := range originals {
			ids = append(ids, e.ID)
			touched = append(touched, VoucherEntry{AccountID: e.AccountID})
		}
		accounts, err := tx.LockAccounts(ctx, in.OrgID, accountIDs(touched))
		if err != nil {
			return err
		}
		now := s.now()
		inserted, err := s.apply(ctx, tx, v, reversalLines(originals), accounts, now)
		if err != nil {
			return err
		}
		reversals = len(inserted)
		marker := VoidMarker{At: now, By: in.ActorID, Reason: in.Reason}
		if err := tx.MarkEntriesVoided(ctx, in.OrgID, ids, marker); err != nil {
			return err
		}
		actor := in.ActorID
		v.Status = VoucherStatusVoid
		v.VoidedBy = &actor
		v.VoidedAt = &now
		v.VoidReason = in.Reason
		v.UpdatedAt = now
		if err := tx.UpdateVoucherStatus(ctx, v); err != nil {
			return err
		}
		voided = v
		return nil
	})
	s.observe(ctx, "void", voided.Type, err)
	if err != nil {
		s.logFailure(ctx, "void", in.OrgID, in.VoucherID, err)
		return Voucher{}, err
	}
	db.AfterCommit(ctx, func() {
		s.logger.InfoContext(ctx, "voucher voided",
			slog.Int64("org_id", in.OrgID),
			slog.Int64("voucher_id", voided.ID),
			slog.String("number", voided.Number),
			slog.Int("reversals", reversals),
		)
	})
	s.record(ctx, in.OrgID, in.ActorID, "voucher.void", "voucher", voided.ID, map[string]any{
		"number": voided.Number,
		"reason": in.Reason,
	})
	return voided, nil
}

// FindLedgerEntriesByVoucher lists originals and reversals of a voucher in creation order.
func (s *Service) FindLedgerEntriesByVoucher(ctx context.Context, orgID, voucherID int64) ([]LedgerEntry, error) {
	if _, err := s.repo.GetVoucher(ctx, orgID, voucherID); err != nil {
		return nil, err
	}
	return s.repo.ListEntriesByVoucher(ctx, orgID, voucherID)
}

// FindLedgerEntriesByAccount lists an account's history ordered by creation time.
func (s *Service) FindLedgerEntriesByAccount(ctx context.Context, orgID, accountID int64, filter EntryFilter) ([]LedgerEntry, error) {
	if _, err := s.repo.GetAccount(ctx, orgID, accountID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 500
	}
	return s.repo.ListEntriesByAccount(ctx, orgID, accountID, filter)
}

// BalanceDrift describes an account whose stored balance disagrees with its history.
type BalanceDrift struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Stored    decimal.Decimal `json:"stored"`
	Ledger    decimal.Decimal `json:"ledger"`
}

// IntegrityReport summarises a ledger integrity check.
type IntegrityReport struct {
	OrgID       int64           `json:"org_id"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Accounts    int             `json:"accounts"`
	Drifts      []BalanceDrift  `json:"drifts,omitempty"`
}

// CheckIntegrity recomputes every account balance, soft deleted ones included, from ledger
// history and compares it with the stored running balance. Both sides come from one
// consistent snapshot.
func (s *Service) CheckIntegrity(ctx context.Context, orgID int64) (IntegrityReport, error) {
	report := IntegrityReport{OrgID: orgID, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	snap, err := s.repo.Snapshot(ctx, orgID)
	if err != nil {
		return report, err
	}
	byID := make(map[int64]AccountEntryTotals, len(snap.Totals))
	for _, t := range snap.Totals {
		byID[t.AccountID] = t
		report.TotalDebit = report.TotalDebit.Add(t.Debit)
		report.TotalCredit = report.TotalCredit.Add(t.Credit)
	}
	for _, acc := range snap.Accounts {
		report.Accounts++
		t := byID[acc.ID]
		ledger := SignedDelta(acc.NormalBalance, SideDebit, t.Debit).Add(SignedDelta(acc.NormalBalance, SideCredit, t.Credit))
		if !ledger.Equal(acc.CurrentBalance) {
			report.Drifts = append(report.Drifts, BalanceDrift{AccountID: acc.ID, Code: acc.Code, Stored: acc.CurrentBalance, Ledger: ledger})
		}
	}
	if !report.TotalDebit.Equal(report.TotalCredit) {
		return report, fmt.Errorf("%w: entries debit %s credit %s", ErrBalanceDrift, report.TotalDebit, report.TotalCredit)
	}
	if len(report.Drifts) > 0 {
		return report, fmt.Errorf("%w: %d account(s)", ErrBalanceDrift, len(report.Drifts))
	}
	return report, nil
}

// ListOrganizations returns every organization owning ledger accounts.
func (s *Service) ListOrganizations(ctx context.Context) ([]int64, error) {
	return s.repo.ListOrganizations(ctx)
}

func (s *Service) draftFromInput(in DraftInput) Voucher {
	entries := make([]VoucherEntry, len(in.Entries))
	copy(entries, in.Entries)
	now := s.now()
	return Voucher{
		OrgID:         in.OrgID,
		Type:          in.Type,
		Date:          in.Date,
		FiscalYear:    s.FiscalYearOf(in.Date),
		FiscalPeriod:  shared.FiscalPeriod(in.Date),
		Narration:     in.Narration,
		Entries:       entries,
		Status:        VoucherStatusDraft,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Service) validateAgainst(ctx context.Context, tx TxRepository, v Voucher) error {
	accounts, err := tx.GetAccounts(ctx, v.OrgID, accountIDs(v.Entries))
	if err != nil {
		return err
	}
	return ValidateDoubleEntry(v, accounts, s.rules.Epsilon).Err()
}

// withNumber assigns the next sequence number and stores v, retrying when the number
// collides with an existing voucher.
func (s *Service) withNumber(ctx context.Context, tx TxRepository, v Voucher, store func(context.Context, Voucher) (Voucher, error)) (Voucher, error) {
	for attempt := 0; attempt <= s.retries; attempt++ {
		seq, err := tx.NextVoucherSequence(ctx, v.OrgID, v.Type, v.FiscalYear)
		if err != nil {
			return Voucher{}, err
		}
		v.Number = FormatVoucherNumber(v.Type, v.FiscalYear, seq)
		stored, err := store(ctx, v)
		if errors.Is(err, ErrDuplicateNumber) {
			s.logger.WarnContext(ctx, "voucher number taken, retrying",
				slog.Int64("org_id", v.OrgID),
				slog.String("number", v.Number),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		return stored, err
	}
	return Voucher{}, ErrDuplicateNumber
}

// apply persists lines as ledger entries with running balance snapshots and moves account
// balances, verifying each returned balance.
func (s *Service) apply(ctx context.Context, tx TxRepository, v Voucher, lines []postingLine, accounts map[int64]Account, at time.Time) ([]LedgerEntry, error) {
	for _, line := range lines {
		if _, ok := accounts[line.AccountID]; !ok {
			return nil, ErrAccountNotFound
		}
	}
	snapshots, deltas := planBalances(lines, accounts)
	entries := make([]LedgerEntry, 0, len(lines))
	for i, line := range lines {
		entries = append(entries, LedgerEntry{
			OrgID:          v.OrgID,
			VoucherID:      v.ID,
			AccountID:      line.AccountID,
			Side:           line.Side,
			Amount:         line.Amount,
			RunningBalance: snapshots[i],
			ReversalOf:     line.ReversalOf,
			Description:    line.Description,
			CreatedAt:      at,
		})
	}
	inserted, err := tx.InsertLedgerEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	expected := expectedBalances(deltas, accounts)
	for _, d := range deltas {
		got, err := tx.AdjustBalance(ctx, v.OrgID, d.AccountID, d.Delta)
		if err != nil {
			return nil, err
		}
		if !got.Equal(expected[d.AccountID]) {
			return nil, fmt.Errorf("%w: account %d expected %s got %s", ErrBalanceUpdate, d.AccountID, expected[d.AccountID], got)
		}
	}
	return inserted, nil
}

// observe reports failures at once; successes wait for the enclosing unit of work to commit.
func (s *Service) observe(ctx context.Context, op string, t VoucherType, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.ObserveLedgerOperation(op, string(t), err)
		return
	}
	db.AfterCommit(ctx, func() {
		s.metrics.ObserveLedgerOperation(op, string(t), nil)
	})
}

func (s *Service) logFailure(ctx context.Context, op string, orgID, voucherID int64, err error) {
	level := slog.LevelWarn
	if errors.Is(err, shared.ErrIntegrity) || shared.KindOf(err) == nil {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "voucher "+op+" failed",
		slog.Int64("org_id", orgID),
		slog.Int64("voucher_id", voucherID),
		slog.Any("error", err),
	)
}

func (s *Service) record(ctx context.Context, orgID, actorID int64, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
