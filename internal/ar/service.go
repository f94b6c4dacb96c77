package ar

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// LedgerPoster records AR documents in the ledger.
type LedgerPoster interface {
	PostSalesInvoice(ctx context.Context, orgID, invoiceID, actorID int64) (SalesInvoice, error)
	VoidSalesInvoice(ctx context.Context, orgID, invoiceID, actorID int64, reason string) (SalesInvoice, error)
	PostWalkInSale(ctx context.Context, orgID, saleID, actorID int64) (WalkInSale, error)
	VoidWalkInSale(ctx context.Context, orgID, saleID, actorID int64, reason string) (WalkInSale, error)
}

// Service handles AR business logic.
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

// CreateSalesInvoice validates and stores a draft sales invoice.
func (s *Service) CreateSalesInvoice(ctx context.Context, in SalesInvoiceInput) (SalesInvoice, error) {
	in.Number = strings.TrimSpace(in.Number)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.OrgID <= 0 || in.Number == "" || in.CustomerName == "" || in.InvoiceDate.IsZero() {
		return SalesInvoice{}, ErrInvalidDocument
	}
	if !in.Subtotal.IsPositive() || in.Tax.IsNegative() {
		return SalesInvoice{}, ErrInvalidDocument
	}
	now := s.now()
	inv := SalesInvoice{
		OrgID:        in.OrgID,
		Number:       in.Number,
		CustomerName: in.CustomerName,
		InvoiceDate:  in.InvoiceDate,
		Subtotal:     in.Subtotal.Round(2),
		Tax:          in.Tax.Round(2),
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inv.Total = inv.Subtotal.Add(inv.Tax)
	created, err := s.repo.CreateSalesInvoice(ctx, inv)
	if err != nil {
		return SalesInvoice{}, err
	}
	s.logger.InfoContext(ctx, "sales invoice created",
		slog.Int64("org_id", created.OrgID),
		slog.Int64("invoice_id", created.ID),
		slog.String("number", created.Number),
	)
	return created, nil
}

// CreateWalkInSale validates and stores a draft walk-in sale.
func (s *Service) CreateWalkInSale(ctx context.Context, in WalkInSaleInput) (WalkInSale, error) {
	in.Number = strings.TrimSpace(in.Number)
	if in.OrgID <= 0 || in.Number == "" || in.SaleDate.IsZero() {
		return WalkInSale{}, ErrInvalidDocument
	}
	if !in.Gross.IsPositive() || in.Discount.IsNegative() || in.Tax.IsNegative() {
		return WalkInSale{}, ErrInvalidDocument
	}
	if in.Discount.GreaterThanOrEqual(in.Gross) {
		return WalkInSale{}, ErrInvalidDocument
	}
	now := s.now()
	sale := WalkInSale{
		OrgID:     in.OrgID,
		Number:    in.Number,
		SaleDate:  in.SaleDate,
		Gross:     in.Gross.Round(2),
		Discount:  in.Discount.Round(2),
		Tax:       in.Tax.Round(2),
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sale.Total = sale.Gross.Sub(sale.Discount).Add(sale.Tax)
	created, err := s.repo.CreateWalkInSale(ctx, sale)
	if err != nil {
		return WalkInSale{}, err
	}
	s.logger.InfoContext(ctx, "walk-in sale created",
		slog.Int64("org_id", created.OrgID),
		slog.Int64("sale_id", created.ID),
		slog.String("number", created.Number),
	)
	return created, nil
}

// GetSalesInvoice returns a single sales invoice.
func (s *Service) GetSalesInvoice(ctx context.Context, orgID, id int64) (SalesInvoice, error) {
	return s.repo.GetSalesInvoice(ctx, orgID, id)
}

// GetWalkInSale returns a single walk-in sale.
func (s *Service) GetWalkInSale(ctx context.Context, orgID, id int64) (WalkInSale, error) {
	return s.repo.GetWalkInSale(ctx, orgID, id)
}

func normalizeList(req ListRequest) ListRequest {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return req
}

// ListSalesInvoices returns sales invoices for an organization.
func (s *Service) ListSalesInvoices(ctx context.Context, req ListRequest) ([]SalesInvoice, error) {
	return s.repo.ListSalesInvoices(ctx, normalizeList(req))
}

// ListWalkInSales returns walk-in sales for an organization.
func (s *Service) ListWalkInSales(ctx context.Context, req ListRequest) ([]WalkInSale, error) {
	return s.repo.ListWalkInSales(ctx, normalizeList(req))
}

// PostSalesInvoice records the invoice in the ledger.
func (s *Service) PostSalesInvoice(ctx context.Context, orgID, id, actorID int64) (SalesInvoice, error) {
	if s.poster == nil {
		return SalesInvoice{}, ErrNotConfigured
	}
	return s.poster.PostSalesInvoice(ctx, orgID, id, actorID)
}

// VoidSalesInvoice reverses the invoice's ledger postings.
func (s *Service) VoidSalesInvoice(ctx context.Context, orgID, id, actorID int64, reason string) (SalesInvoice, error) {
	if s.poster == nil {
		return SalesInvoice{}, ErrNotConfigured
	}
	return s.poster.VoidSalesInvoice(ctx, orgID, id, actorID, reason)
}

// PostWalkInSale records the sale in the ledger.
func (s *Service) PostWalkInSale(ctx context.Context, orgID, id, actorID int64) (WalkInSale, error) {
	if s.poster == nil {
		return WalkInSale{}, ErrNotConfigured
	}
	return s.poster.PostWalkInSale(ctx, orgID, id, actorID)
}

// VoidWalkInSale reverses the sale's ledger postings.
func (s *Service) VoidWalkInSale(ctx context.Context, orgID, id, actorID int64, reason string) (WalkInSale, error) {
	if s.poster == nil {
		return WalkInSale{}, ErrNotConfigured
	}
	return s.poster.VoidWalkInSale(ctx, orgID, id, actorID, reason)
}
