package ap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

var (
	ErrInvoiceNotFound    = shared.NewKindError(shared.ErrNotFound, "ap: purchase invoice not found")
	ErrInvalidInvoice     = shared.NewKindError(shared.ErrValidation, "ap: invalid purchase invoice")
	ErrDuplicateNumber    = shared.NewKindError(shared.ErrStateConflict, "ap: invoice number already used")
	ErrPostingUnavailable = shared.NewKindError(shared.ErrIntegrity, "ap: ledger posting not configured")
)

// LedgerPoster records purchase invoices in the ledger.
type LedgerPoster interface {
	PostPurchaseInvoice(ctx context.Context, orgID, invoiceID, actorID int64) (PurchaseInvoice, error)
	VoidPurchaseInvoice(ctx context.Context, orgID, invoiceID, actorID int64, reason string) (PurchaseInvoice, error)
}

// Service handles purchase invoice business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	poster LedgerPoster
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SetIntegrationHandler injects the ledger posting hooks.
func (s *Service) SetIntegrationHandler(poster LedgerPoster) {
	s.poster = poster
}

// CreateInvoice validates and stores a draft purchase invoice.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (PurchaseInvoice, error) {
	in.Number = strings.TrimSpace(in.Number)
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	if in.OrgID <= 0 || in.Number == "" || in.SupplierName == "" || in.InvoiceDate.IsZero() {
		return PurchaseInvoice{}, ErrInvalidInvoice
	}
	if !in.Subtotal.IsPositive() || in.Tax.IsNegative() {
		return PurchaseInvoice{}, ErrInvalidInvoice
	}
	now := s.now()
	inv := PurchaseInvoice{
		OrgID:        in.OrgID,
		Number:       in.Number,
		SupplierName: in.SupplierName,
		InvoiceDate:  in.InvoiceDate,
		Subtotal:     in.Subtotal.Round(2),
		Tax:          in.Tax.Round(2),
		PaidInCash:   in.PaidInCash,
		Status:       shared.DocumentStatusDraft,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inv.Total = inv.Subtotal.Add(inv.Tax)
	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return PurchaseInvoice{}, err
	}
	s.logger.InfoContext(ctx, "purchase invoice created",
		slog.Int64("org_id", created.OrgID),
		slog.Int64("invoice_id", created.ID),
		slog.String("number", created.Number),
	)
	return created, nil
}

// GetInvoice returns a single invoice.
func (s *Service) GetInvoice(ctx context.Context, orgID, id int64) (PurchaseInvoice, error) {
	return s.repo.GetInvoice(ctx, orgID, id)
}

// ListInvoices returns invoices for an organization.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]PurchaseInvoice, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.ListInvoices(ctx, req)
}

// PostInvoice records the invoice in the ledger.
func (s *Service) PostInvoice(ctx context.Context, orgID, id, actorID int64) (PurchaseInvoice, error) {
	if s.poster == nil {
		return PurchaseInvoice{}, ErrPostingUnavailable
	}
	return s.poster.PostPurchaseInvoice(ctx, orgID, id, actorID)
}

// VoidInvoice reverses the invoice's ledger postings.
func (s *Service) VoidInvoice(ctx context.Context, orgID, id, actorID int64, reason string) (PurchaseInvoice, error) {
	if s.poster == nil {
		return PurchaseInvoice{}, ErrPostingUnavailable
	}
	return s.poster.VoidPurchaseInvoice(ctx, orgID, id, actorID, reason)
}
