package integration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	orgID   int64 = 11
	actorID int64 = 3
)

var docDate = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// documents is an in-memory document store whose state is restored when the enclosing unit
// of work fails.
type documents struct {
	mu        sync.Mutex
	purchases map[int64]ap.PurchaseInvoice
	invoices  map[int64]ar.SalesInvoice
	sales     map[int64]ar.WalkInSale
	failMark  bool
}

type docSnapshot struct {
	purchases map[int64]ap.PurchaseInvoice
	invoices  map[int64]ar.SalesInvoice
	sales     map[int64]ar.WalkInSale
}

func newDocuments() *documents {
	return &documents{
		purchases: map[int64]ap.PurchaseInvoice{},
		invoices:  map[int64]ar.SalesInvoice{},
		sales:     map[int64]ar.WalkInSale{},
	}
}

func (d *documents) snapshot() docSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := docSnapshot{
		purchases: map[int64]ap.PurchaseInvoice{},
		invoices:  map[int64]ar.SalesInvoice{},
		sales:     map[int64]ar.WalkInSale{},
	}
	for k, v := range d.purchases {
		snap.purchases[k] = v
	}
	for k, v := range d.invoices {
		snap.invoices[k] = v
	}
	for k, v := range d.sales {
		snap.sales[k] = v
	}
	return snap
}

func (d *documents) restore(snap docSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purchases, d.invoices, d.sales = snap.purchases, snap.invoices, snap.sales
}

func (d *documents) markErr() error {
	if d.failMark {
		return errors.New("document store unavailable")
	}
	return nil
}

func (d *documents) LockInvoice(ctx context.Context, orgID, id int64) (ap.PurchaseInvoice, error) {
	return d.GetInvoice(ctx, orgID, id)
}

func (d *documents) GetInvoice(ctx context.Context, orgID, id int64) (ap.PurchaseInvoice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inv, ok := d.purchases[id]
	if !ok || inv.OrgID != orgID {
		return ap.PurchaseInvoice{}, ap.ErrInvoiceNotFound
	}
	return inv, nil
}

func (d *documents) MarkPosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.markErr(); err != nil {
		return err
	}
	inv := d.purchases[id]
	inv.Status, inv.IsPosted, inv.VoucherID, inv.AccountRefs = shared.DocumentStatusPosted, true, &link.VoucherID, link.AccountRefs
	d.purchases[id] = inv
	return nil
}

func (d *documents) MarkVoid(ctx context.Context, orgID, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inv := d.purchases[id]
	inv.Status, inv.IsPosted = shared.DocumentStatusVoid, false
	d.purchases[id] = inv
	return nil
}

func (d *documents) LockSalesInvoice(ctx context.Context, orgID, id int64) (ar.SalesInvoice, error) {
	return d.GetSalesInvoice(ctx, orgID, id)
}

func (d *documents) GetSalesInvoice(ctx context.Context, orgID, id int64) (ar.SalesInvoice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inv, ok := d.invoices[id]
	if !ok || inv.OrgID != orgID {
		return ar.SalesInvoice{}, ar.ErrNotFound
	}
	return inv, nil
}

func (d *documents) MarkSalesInvoicePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.markErr(); err != nil {
		return err
	}
	inv := d.invoices[id]
	inv.Status, inv.IsPosted, inv.VoucherID, inv.AccountRefs = shared.DocumentStatusPosted, true, &link.VoucherID, link.AccountRefs
	d.invoices[id] = inv
	return nil
}

func (d *documents) MarkSalesInvoiceVoid(ctx context.Context, orgID, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	inv := d.invoices[id]
	inv.Status, inv.IsPosted = shared.DocumentStatusVoid, false
	d.invoices[id] = inv
	return nil
}

func (d *documents) LockWalkInSale(ctx context.Context, orgID, id int64) (ar.WalkInSale, error) {
	return d.GetWalkInSale(ctx, orgID, id)
}

func (d *documents) GetWalkInSale(ctx context.Context, orgID, id int64) (ar.WalkInSale, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sale, ok := d.sales[id]
	if !ok || sale.OrgID != orgID {
		return ar.WalkInSale{}, ar.ErrNotFound
	}
	return sale, nil
}

func (d *documents) MarkWalkInSalePosted(ctx context.Context, orgID, id int64, link shared.LedgerLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.markErr(); err != nil {
		return err
	}
	sale := d.sales[id]
	sale.Status, sale.IsPosted, sale.VoucherID, sale.AccountRefs = shared.DocumentStatusPosted, true, &link.VoucherID, link.AccountRefs
	d.sales[id] = sale
	return nil
}

func (d *documents) MarkWalkInSaleVoid(ctx context.Context, orgID, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sale := d.sales[id]
	sale.Status, sale.IsPosted = shared.DocumentStatusVoid, false
	d.sales[id] = sale
	return nil
}

type inTx struct{}

// unitOfWork commits ledger and documents together.
type unitOfWork struct {
	mem  *ledgertest.Memory
	docs *documents
}

func (u unitOfWork) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(inTx{}) != nil {
		return fn(ctx)
	}
	snap := u.docs.snapshot()
	err := u.mem.WithinTx(ctx, func(ctx context.Context) error {
		return fn(context.WithValue(ctx, inTx{}, true))
	})
	if err != nil {
		u.docs.restore(snap)
	}
	return err
}

type auditTrail struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *auditTrail) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type postingCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *postingCounter) ObserveDocumentPosting(document string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	p.counts[document+":"+outcome]++
}

type fixture struct {
	hooks   *integration.Hooks
	svc     *ledger.Service
	mem     *ledgertest.Memory
	docs    *documents
	audit   *auditTrail
	metrics *postingCounter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := ledgertest.NewMemory()
	svc := ledger.NewService(mem, nil, nil, nil, ledger.Config{})
	docs := newDocuments()
	audit := &auditTrail{}
	metrics := &postingCounter{counts: map[string]int{}}
	hooks := integration.NewHooks(unitOfWork{mem: mem, docs: docs}, svc, docs, docs,
		integration.WithAudit(audit),
		integration.WithMetrics(metrics),
	)
	return fixture{hooks: hooks, svc: svc, mem: mem, docs: docs, audit: audit, metrics: metrics}
}

func (f fixture) balanceOf(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	accounts, err := f.svc.ListAccounts(context.Background(), orgID)
	require.NoError(t, err)
	for _, acc := range accounts {
		if acc.Code == code {
			return acc.CurrentBalance
		}
	}
	t.Fatalf("account %s not found", code)
	return decimal.Zero
}

func (f fixture) addPurchase(id int64, cash bool) {
	f.docs.purchases[id] = ap.PurchaseInvoice{
		ID: id, OrgID: orgID, Number: "PI-100", SupplierName: "Acme", InvoiceDate: docDate,
		Subtotal: dec("1000"), Tax: dec("170"), Total: dec("1170"), PaidInCash: cash,
		Status: shared.DocumentStatusDraft,
	}
}

func TestPostPurchaseInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addPurchase(1, false)

	inv, err := f.hooks.PostPurchaseInvoice(ctx, orgID, 1, actorID)
	require.NoError(t, err)
	require.True(t, inv.IsPosted)
	require.Equal(t, shared.DocumentStatusPosted, inv.Status)
	require.NotNil(t, inv.VoucherID)
	require.Len(t, inv.AccountRefs, 3)

	require.True(t, f.balanceOf(t, ledger.CodePurchases).Equal(dec("1000")))
	require.True(t, f.balanceOf(t, ledger.CodeInputTax).Equal(dec("170")))
	require.True(t, f.balanceOf(t, ledger.CodePayable).Equal(dec("1170")))

	v, err := f.svc.GetVoucher(ctx, orgID, *inv.VoucherID)
	require.NoError(t, err)
	require.Equal(t, ledger.VoucherStatusPosted, v.Status)
	require.Equal(t, ledger.VoucherTypeJournal, v.Type)
	require.Equal(t, "JV-2025-0001", v.Number)
	require.Equal(t, string(integration.DocumentPurchaseInvoice), v.ReferenceType)
	require.Equal(t, int64(1), *v.ReferenceID)

	require.Len(t, f.audit.logs, 1)
	require.Equal(t, "purchase_invoice.post", f.audit.logs[0].Action)
	require.Equal(t, integration.CorrelationID(integration.DocumentPurchaseInvoice, orgID, 1).String(), f.audit.logs[0].Meta["correlation_id"])
	require.Equal(t, 1, f.metrics.counts["purchase_invoice:ok"])
}

func TestPostPurchaseInvoicePaidInCash(t *testing.T) {
	f := newFixture(t)
	f.addPurchase(1, true)

	inv, err := f.hooks.PostPurchaseInvoice(context.Background(), orgID, 1, actorID)
	require.NoError(t, err)
	v, err := f.svc.GetVoucher(context.Background(), orgID, *inv.VoucherID)
	require.NoError(t, err)
	require.Equal(t, ledger.VoucherTypePayment, v.Type)
	require.Equal(t, "PV-2025-0001", v.Number)
	require.True(t, f.balanceOf(t, ledger.CodeCash).Equal(dec("-1170")))
	require.NotContains(t, inv.AccountRefs, ledger.CodePayable)
}

func TestRepostIsRefusedWithoutTouchingLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addPurchase(1, false)
	_, err := f.hooks.PostPurchaseInvoice(ctx, orgID, 1, actorID)
	require.NoError(t, err)
	entries := len(f.mem.Entries())
	vouchers := f.mem.VoucherCount()

	_, err = f.hooks.PostPurchaseInvoice(ctx, orgID, 1, actorID)
	require.ErrorIs(t, err, ledger.ErrAlreadyPosted)
	require.Len(t, f.mem.Entries(), entries)
	require.Equal(t, vouchers, f.mem.VoucherCount())
	require.True(t, f.balanceOf(t, ledger.CodePayable).Equal(dec("1170")))
	require.Equal(t, 1, f.metrics.counts["purchase_invoice:failed"])
}

func TestPostSalesInvoice(t *testing.T) {
	f := newFixture(t)
	f.docs.invoices[5] = ar.SalesInvoice{
		ID: 5, OrgID: orgID, Number: "SI-5", CustomerName: "Bright Stores", InvoiceDate: docDate,
		Subtotal: dec("500"), Tax: dec("85"), Total: dec("585"), Status: shared.DocumentStatusDraft,
	}

	inv, err := f.hooks.PostSalesInvoice(context.Background(), orgID, 5, actorID)
	require.NoError(t, err)
	require.True(t, inv.IsPosted)
	require.True(t, f.balanceOf(t, ledger.CodeReceivable).Equal(dec("585")))
	require.True(t, f.balanceOf(t, ledger.CodeSalesRevenue).Equal(dec("500")))
	require.True(t, f.balanceOf(t, ledger.CodeSalesTaxPayable).Equal(dec("85")))

	tb, err := f.svc.TrialBalance(context.Background(), orgID)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
}

func TestPostWalkInSale(t *testing.T) {
	f := newFixture(t)
	f.docs.sales[8] = ar.WalkInSale{
		ID: 8, OrgID: orgID, Number: "WS-8", SaleDate: docDate,
		Gross: dec("1000"), Discount: dec("100"), Tax: decimal.Zero, Total: dec("900"),
		Status: shared.DocumentStatusDraft,
	}

	sale, err := f.hooks.PostWalkInSale(context.Background(), orgID, 8, actorID)
	require.NoError(t, err)
	v, err := f.svc.GetVoucher(context.Background(), orgID, *sale.VoucherID)
	require.NoError(t, err)
	require.Equal(t, ledger.VoucherTypeReceipt, v.Type)
	require.Len(t, v.Entries, 3)
	require.NotContains(t, sale.AccountRefs, ledger.CodeSalesTaxPayable)

	require.True(t, f.balanceOf(t, ledger.CodeCash).Equal(dec("900")))
	require.True(t, f.balanceOf(t, ledger.CodeSalesDiscounts).Equal(dec("-100")))
	require.True(t, f.balanceOf(t, ledger.CodeSalesRevenue).Equal(dec("1000")))
}

func TestPostingIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.docs.invoices[5] = ar.SalesInvoice{
		ID: 5, OrgID: orgID, Number: "SI-5", CustomerName: "Bright Stores", InvoiceDate: docDate,
		Subtotal: dec("500"), Tax: dec("85"), Total: dec("585"), Status: shared.DocumentStatusDraft,
	}

	f.mem.CorruptNextAdjust()
	_, err := f.hooks.PostSalesInvoice(ctx, orgID, 5, actorID)
	require.ErrorIs(t, err, shared.ErrIntegrity)
	require.ErrorIs(t, err, ledger.ErrBalanceUpdate)

	inv, err := f.docs.GetSalesInvoice(ctx, orgID, 5)
	require.NoError(t, err)
	require.Equal(t, shared.DocumentStatusDraft, inv.Status)
	require.Nil(t, inv.VoucherID)
	require.Zero(t, f.mem.VoucherCount())
	require.Empty(t, f.mem.Entries())
	accounts, err := f.svc.ListAccounts(ctx, orgID)
	require.NoError(t, err)
	require.Empty(t, accounts)

	f.docs.failMark = true
	_, err = f.hooks.PostSalesInvoice(ctx, orgID, 5, actorID)
	require.Error(t, err)
	require.Zero(t, f.mem.VoucherCount())
	require.Empty(t, f.mem.Entries())

	f.docs.failMark = false
	inv, err = f.hooks.PostSalesInvoice(ctx, orgID, 5, actorID)
	require.NoError(t, err)
	require.True(t, inv.IsPosted)
	require.Len(t, f.audit.logs, 1)
}

func TestVoidDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addPurchase(1, false)

	err := f.hooks.VoidDocument(ctx, integration.VoidDocumentInput{
		Kind: integration.DocumentPurchaseInvoice, OrgID: orgID, DocumentID: 1, ActorID: actorID, Reason: "never posted",
	})
	require.ErrorIs(t, err, ledger.ErrNotPosted)

	posted, err := f.hooks.PostPurchaseInvoice(ctx, orgID, 1, actorID)
	require.NoError(t, err)

	_, err = f.hooks.VoidPurchaseInvoice(ctx, orgID, 1, actorID, "bad")
	require.ErrorIs(t, err, ledger.ErrVoidReasonTooShort)

	inv, err := f.hooks.VoidPurchaseInvoice(ctx, orgID, 1, actorID, "duplicate supplier bill")
	require.NoError(t, err)
	require.Equal(t, shared.DocumentStatusVoid, inv.Status)
	require.True(t, f.balanceOf(t, ledger.CodePurchases).IsZero())
	require.True(t, f.balanceOf(t, ledger.CodePayable).IsZero())

	v, err := f.svc.GetVoucher(ctx, orgID, *posted.VoucherID)
	require.NoError(t, err)
	require.Equal(t, ledger.VoucherStatusVoid, v.Status)

	_, err = f.hooks.VoidPurchaseInvoice(ctx, orgID, 1, actorID, "duplicate supplier bill")
	require.ErrorIs(t, err, ledger.ErrAlreadyVoid)

	_, err = f.hooks.PostPurchaseInvoice(ctx, orgID, 1, actorID)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	err = f.hooks.VoidDocument(ctx, integration.VoidDocumentInput{Kind: "credit_note", OrgID: orgID, DocumentID: 1, ActorID: actorID, Reason: "unknown kind"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
