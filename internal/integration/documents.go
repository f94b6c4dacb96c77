package integration

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func purchasePosting(inv ap.PurchaseInvoice) posting {
	p := posting{
		kind:      DocumentPurchaseInvoice,
		orgID:     inv.OrgID,
		id:        inv.ID,
		number:    inv.Number,
		date:      inv.InvoiceDate,
		status:    inv.Status,
		voucherID: inv.VoucherID,
		vtype:     ledger.VoucherTypeJournal,
		narration: fmt.Sprintf("Purchase invoice %s from %s", inv.Number, inv.SupplierName),
	}
	credit := ledger.CodePayable
	if inv.PaidInCash {
		credit = ledger.CodeCash
		p.vtype = ledger.VoucherTypePayment
	}
	p.lines = []line{
		{code: ledger.CodePurchases, side: ledger.SideDebit, amount: inv.Subtotal},
		{code: ledger.CodeInputTax, side: ledger.SideDebit, amount: inv.Tax},
		{code: credit, side: ledger.SideCredit, amount: inv.Total},
	}
	return p
}

func salesPosting(inv ar.SalesInvoice) posting {
	return posting{
		kind:      DocumentSalesInvoice,
		orgID:     inv.OrgID,
		id:        inv.ID,
		number:    inv.Number,
		date:      inv.InvoiceDate,
		status:    inv.Status,
		voucherID: inv.VoucherID,
		vtype:     ledger.VoucherTypeJournal,
		narration: fmt.Sprintf("Sales invoice %s to %s", inv.Number, inv.CustomerName),
		lines: []line{
			{code: ledger.CodeReceivable, side: ledger.SideDebit, amount: inv.Total},
			{code: ledger.CodeSalesRevenue, side: ledger.SideCredit, amount: inv.Subtotal},
			{code: ledger.CodeSalesTaxPayable, side: ledger.SideCredit, amount: inv.Tax},
		},
	}
}

func walkInPosting(sale ar.WalkInSale) posting {
	return posting{
		kind:      DocumentWalkInSale,
		orgID:     sale.OrgID,
		id:        sale.ID,
		number:    sale.Number,
		date:      sale.SaleDate,
		status:    sale.Status,
		voucherID: sale.VoucherID,
		vtype:     ledger.VoucherTypeReceipt,
		narration: fmt.Sprintf("Walk-in sale %s", sale.Number),
		lines: []line{
			{code: ledger.CodeCash, side: ledger.SideDebit, amount: sale.Total},
			{code: ledger.CodeSalesDiscounts, side: ledger.SideDebit, amount: sale.Discount},
			{code: ledger.CodeSalesRevenue, side: ledger.SideCredit, amount: sale.Gross},
			{code: ledger.CodeSalesTaxPayable, side: ledger.SideCredit, amount: sale.Tax},
		},
	}
}

// PostPurchaseInvoice posts Dr Purchases, Dr Input Tax, Cr Accounts Payable (or Cash for
// invoices paid in cash) and links the invoice to the voucher.
func (h *Hooks) PostPurchaseInvoice(ctx context.Context, orgID, invoiceID, actorID int64) (ap.PurchaseInvoice, error) {
	var p posting
	var link shared.LedgerLink
	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := h.purchases.LockInvoice(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}
		p = purchasePosting(inv)
		if link, err = h.post(ctx, p, actorID); err != nil {
			return err
		}
		return h.purchases.MarkPosted(ctx, orgID, invoiceID, link)
	})
	h.finish(ctx, "post", orDefault(p, DocumentPurchaseInvoice, orgID, invoiceID), actorID, link.VoucherID, err)
	if err != nil {
		return ap.PurchaseInvoice{}, err
	}
	return h.purchases.GetInvoice(ctx, orgID, invoiceID)
}

// PostSalesInvoice posts Dr Accounts Receivable, Cr Sales Revenue, Cr Sales Tax Payable.
func (h *Hooks) PostSalesInvoice(ctx context.Context, orgID, invoiceID, actorID int64) (ar.SalesInvoice, error) {
	var p posting
	var link shared.LedgerLink
	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := h.sales.LockSalesInvoice(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}
		p = salesPosting(inv)
		if link, err = h.post(ctx, p, actorID); err != nil {
			return err
		}
		return h.sales.MarkSalesInvoicePosted(ctx, orgID, invoiceID, link)
	})
	h.finish(ctx, "post", orDefault(p, DocumentSalesInvoice, orgID, invoiceID), actorID, link.VoucherID, err)
	if err != nil {
		return ar.SalesInvoice{}, err
	}
	return h.sales.GetSalesInvoice(ctx, orgID, invoiceID)
}

// PostWalkInSale posts Dr Cash, Dr Sales Discounts, Cr Sales Revenue, Cr Sales Tax Payable
// on a receipt voucher.
func (h *Hooks) PostWalkInSale(ctx context.Context, orgID, saleID, actorID int64) (ar.WalkInSale, error) {
	var p posting
	var link shared.LedgerLink
	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		sale, err := h.sales.LockWalkInSale(ctx, orgID, saleID)
		if err != nil {
			return err
		}
		p = walkInPosting(sale)
		if link, err = h.post(ctx, p, actorID); err != nil {
			return err
		}
		return h.sales.MarkWalkInSalePosted(ctx, orgID, saleID, link)
	})
	h.finish(ctx, "post", orDefault(p, DocumentWalkInSale, orgID, saleID), actorID, link.VoucherID, err)
	if err != nil {
		return ar.WalkInSale{}, err
	}
	return h.sales.GetWalkInSale(ctx, orgID, saleID)
}

// VoidDocumentInput identifies the document to void.
type VoidDocumentInput struct {
	Kind       DocumentKind
	OrgID      int64
	DocumentID int64
	ActorID    int64
	Reason     string
}

// VoidDocument voids the document's voucher and marks the document void in one unit of work.
func (h *Hooks) VoidDocument(ctx context.Context, in VoidDocumentInput) error {
	p := posting{kind: in.Kind, orgID: in.OrgID, id: in.DocumentID}
	var voucherID int64
	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		var mark func(context.Context, int64, int64) error
		switch in.Kind {
		case DocumentPurchaseInvoice:
			inv, err := h.purchases.LockInvoice(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return err
			}
			p, mark = purchasePosting(inv), h.purchases.MarkVoid
		case DocumentSalesInvoice:
			inv, err := h.sales.LockSalesInvoice(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return err
			}
			p, mark = salesPosting(inv), h.sales.MarkSalesInvoiceVoid
		case DocumentWalkInSale:
			sale, err := h.sales.LockWalkInSale(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return err
			}
			p, mark = walkInPosting(sale), h.sales.MarkWalkInSaleVoid
		default:
			return fmt.Errorf("%w: unknown document kind %q", shared.ErrValidation, in.Kind)
		}
		if err := h.void(ctx, p, in.ActorID, in.Reason); err != nil {
			return err
		}
		voucherID = *p.voucherID
		return mark(ctx, in.OrgID, in.DocumentID)
	})
	h.finish(ctx, "void", p, in.ActorID, voucherID, err)
	return err
}

// VoidPurchaseInvoice voids a posted purchase invoice.
func (h *Hooks) VoidPurchaseInvoice(ctx context.Context, orgID, invoiceID, actorID int64, reason string) (ap.PurchaseInvoice, error) {
	if err := h.VoidDocument(ctx, VoidDocumentInput{Kind: DocumentPurchaseInvoice, OrgID: orgID, DocumentID: invoiceID, ActorID: actorID, Reason: reason}); err != nil {
		return ap.PurchaseInvoice{}, err
	}
	return h.purchases.GetInvoice(ctx, orgID, invoiceID)
}

// VoidSalesInvoice voids a posted sales invoice.
func (h *Hooks) VoidSalesInvoice(ctx context.Context, orgID, invoiceID, actorID int64, reason string) (ar.SalesInvoice, error) {
	if err := h.VoidDocument(ctx, VoidDocumentInput{Kind: DocumentSalesInvoice, OrgID: orgID, DocumentID: invoiceID, ActorID: actorID, Reason: reason}); err != nil {
		return ar.SalesInvoice{}, err
	}
	return h.sales.GetSalesInvoice(ctx, orgID, invoiceID)
}

// VoidWalkInSale voids a posted walk-in sale.
func (h *Hooks) VoidWalkInSale(ctx context.Context, orgID, saleID, actorID int64, reason string) (ar.WalkInSale, error) {
	if err := h.VoidDocument(ctx, VoidDocumentInput{Kind: DocumentWalkInSale, OrgID: orgID, DocumentID: saleID, ActorID: actorID, Reason: reason}); err != nil {
		return ar.WalkInSale{}, err
	}
	return h.sales.GetWalkInSale(ctx, orgID, saleID)
}

func orDefault(p posting, kind DocumentKind, orgID, id int64) posting {
	if p.kind == "" {
		return posting{kind: kind, orgID: orgID, id: id}
	}
	return p
}

var (
	_ ap.LedgerPoster = (*Hooks)(nil)
	_ ar.LedgerPoster = (*Hooks)(nil)
)
