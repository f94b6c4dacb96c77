package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Ledger exposes the engine operations document postings need.
type Ledger interface {
	FindOrCreateDefaultAccount(ctx context.Context, orgID int64, code string) (ledger.Account, error)
	CreateDraft(ctx context.Context, in ledger.DraftInput) (ledger.Voucher, error)
	Post(ctx context.Context, in ledger.PostInput) (ledger.Voucher, error)
	Void(ctx context.Context, in ledger.VoidInput) (ledger.Voucher, error)
}

// UnitOfWork runs fn in one transaction that nested repositories join.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// PurchaseInvoices is the purchase invoice store.
type PurchaseInvoices interface {
	LockInvoice(ctx context.Context, orgID, id int64) (ap.PurchaseInvoice, error)
	GetInvoice(ctx context.Context, orgID, id int64) (ap.PurchaseInvoice, error)
	MarkPosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkVoid(ctx context.Context, orgID, id int64) error
}

// SalesDocuments is the sales invoice and walk-in sale store.
type SalesDocuments interface {
	LockSalesInvoice(ctx context.Context, orgID, id int64) (ar.SalesInvoice, error)
	GetSalesInvoice(ctx context.Context, orgID, id int64) (ar.SalesInvoice, error)
	MarkSalesInvoicePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkSalesInvoiceVoid(ctx context.Context, orgID, id int64) error
	LockWalkInSale(ctx context.Context, orgID, id int64) (ar.WalkInSale, error)
	GetWalkInSale(ctx context.Context, orgID, id int64) (ar.WalkInSale, error)
	MarkWalkInSalePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error
	MarkWalkInSaleVoid(ctx context.Context, orgID, id int64) error
}

// AuditPort records document posting events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts document postings.
type MetricsPort interface {
	ObserveDocumentPosting(document string, err error)
}

// DocumentKind names the business documents the orchestrator posts.
type DocumentKind string

const (
	DocumentPurchaseInvoice DocumentKind = "purchase_invoice"
	DocumentSalesInvoice    DocumentKind = "sales_invoice"
	DocumentWalkInSale      DocumentKind = "walk_in_sale"
)

// Hooks turns business documents into balanced vouchers and posts them. Every operation is
// all-or-nothing across the document, the voucher and the ledger.
type Hooks struct {
	uow       UnitOfWork
	ledger    Ledger
	purchases PurchaseInvoices
	sales     SalesDocuments
	audit     AuditPort
	metrics   MetricsPort
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures Hooks.
type Option func(*Hooks)

// WithAudit records document events.
func WithAudit(audit AuditPort) Option {
	return func(h *Hooks) { h.audit = audit }
}

// WithMetrics counts document postings.
func WithMetrics(metrics MetricsPort) Option {
	return func(h *Hooks) { h.metrics = metrics }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hooks) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the clock for testing.
func WithClock(now func() time.Time) Option {
	return func(h *Hooks) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHooks constructs integration hooks.
func NewHooks(uow UnitOfWork, ledger Ledger, purchases PurchaseInvoices, sales SalesDocuments, opts ...Option) *Hooks {
	h := &Hooks{
		uow:       uow,
		ledger:    ledger,
		purchases: purchases,
		sales:     sales,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// posting is the ledger view of a document.
type posting struct {
	kind      DocumentKind
	orgID     int64
	id        int64
	number    string
	date      time.Time
	status    shared.DocumentStatus
	voucherID *int64
	vtype     ledger.VoucherType
	narration string
	lines     []line
}

type line struct {
	code   string
	side   ledger.Side
	amount decimal.Decimal
}

// CorrelationID derives a stable id for a document so repeated attempts share audit trails.
func CorrelationID(kind DocumentKind, orgID, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d:%d", kind, orgID, id)))
}

// post resolves accounts, creates the draft and posts it. Caller holds the document lock.
func (h *Hooks) post(ctx context.Context, p posting, actorID int64) (shared.LedgerLink, error) {
	switch p.status {
	case shared.DocumentStatusPosted:
		return shared.LedgerLink{}, ledger.ErrAlreadyPosted
	case shared.DocumentStatusVoid:
		return shared.LedgerLink{}, ledger.ErrVoidedVoucher
	}
	refs := make(map[string]int64, len(p.lines))
	entries := make([]ledger.VoucherEntry, 0, len(p.lines))
	for _, l := range p.lines {
		if l.amount.IsZero() {
			continue
		}
		acc, err := h.ledger.FindOrCreateDefaultAccount(ctx, p.orgID, l.code)
		if err != nil {
			return shared.LedgerLink{}, fmt.Errorf("integration: resolve account %s: %w", l.code, err)
		}
		refs[l.code] = acc.ID
		entry := ledger.VoucherEntry{AccountID: acc.ID, Debit: decimal.Zero, Credit: decimal.Zero, Description: p.narration}
		if l.side == ledger.SideDebit {
			entry.Debit = l.amount
		} else {
			entry.Credit = l.amount
		}
		entries = append(entries, entry)
	}
	docID := p.id
	draft, err := h.ledger.CreateDraft(ctx, ledger.DraftInput{
		OrgID:         p.orgID,
		Type:          p.vtype,
		Date:          p.date,
		Narration:     p.narration,
		Entries:       entries,
		ReferenceType: string(p.kind),
		ReferenceID:   &docID,
		CreatedBy:     actorID,
	})
	if err != nil {
		return shared.LedgerLink{}, err
	}
	posted, err := h.ledger.Post(ctx, ledger.PostInput{OrgID: p.orgID, VoucherID: draft.ID, ActorID: actorID})
	if err != nil {
		return shared.LedgerLink{}, err
	}
	return shared.LedgerLink{VoucherID: posted.ID, AccountRefs: refs, At: h.now()}, nil
}

// void reverses the document's voucher. Caller holds the document lock.
func (h *Hooks) void(ctx context.Context, p posting, actorID int64, reason string) error {
	switch p.status {
	case shared.DocumentStatusDraft:
		return ledger.ErrNotPosted
	case shared.DocumentStatusVoid:
		return ledger.ErrAlreadyVoid
	}
	if p.voucherID == nil {
		return fmt.Errorf("%w: %s %d has no voucher", ledger.ErrVoucherNotFound, p.kind, p.id)
	}
	_, err := h.ledger.Void(ctx, ledger.VoidInput{OrgID: p.orgID, VoucherID: *p.voucherID, ActorID: actorID, Reason: reason})
	return err
}

func (h *Hooks) finish(ctx context.Context, action string, p posting, actorID int64, voucherID int64, err error) {
	if h.metrics != nil {
		h.metrics.ObserveDocumentPosting(string(p.kind), err)
	}
	correlation := CorrelationID(p.kind, p.orgID, p.id)
	if err != nil {
		level := slog.LevelWarn
		if shared.KindOf(err) == nil || shared.KindOf(err) == shared.ErrIntegrity {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "document "+action+" failed",
			slog.String("document", string(p.kind)),
			slog.Int64("org_id", p.orgID),
			slog.Int64("document_id", p.id),
			slog.String("correlation_id", correlation.String()),
			slog.Any("error", err),
		)
		return
	}
	h.logger.InfoContext(ctx, "document "+action,
		slog.String("document", string(p.kind)),
		slog.Int64("org_id", p.orgID),
		slog.Int64("document_id", p.id),
		slog.Int64("voucher_id", voucherID),
	)
	if h.audit == nil {
		return
	}
	if aerr := h.audit.Record(ctx, shared.AuditLog{
		OrgID:    p.orgID,
		ActorID:  actorID,
		Action:   string(p.kind) + "." + action,
		Entity:   string(p.kind),
		EntityID: fmt.Sprintf("%d", p.id),
		Meta: map[string]any{
			"number":         p.number,
			"voucher_id":     voucherID,
			"correlation_id": correlation.String(),
		},
		At: h.now(),
	}); aerr != nil {
		h.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", aerr))
	}
}
