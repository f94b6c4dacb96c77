package ap

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Handler manages purchase invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers purchase invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Post("/{id}/post", h.postInvoice)
		r.Post("/{id}/void", h.voidInvoice)
	})
}

type createInvoiceRequest struct {
	Number       string          `json:"number" validate:"required,max=64"`
	SupplierName string          `json:"supplier_name" validate:"required,max=200"`
	InvoiceDate  string          `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	PaidInCash   bool            `json:"paid_in_cash"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)
	invoices, err := h.service.ListInvoices(r.Context(), ListInvoicesRequest{
		OrgID:  id.OrgID,
		Status: shared.DocumentStatus(q.Get("status")),
		Limit:  pagination.PerPage,
		Offset: pagination.Offset(),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list purchase invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": invoices, "page": pagination.Page, "per_page": pagination.PerPage})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createInvoiceRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := time.Parse("2006-01-02", req.InvoiceDate)
	inv, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		OrgID:        id.OrgID,
		Number:       req.Number,
		SupplierName: req.SupplierName,
		InvoiceDate:  date,
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		PaidInCash:   req.PaidInCash,
		CreatedBy:    id.ActorID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id")
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id.OrgID, invoiceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id")
		return
	}
	inv, err := h.service.PostInvoice(r.Context(), id.OrgID, invoiceID, id.ActorID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "post purchase invoice", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid invoice id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.VoidInvoice(r.Context(), id.OrgID, invoiceID, id.ActorID, req.Reason)
	if err != nil {
		h.logger.WarnContext(r.Context(), "void purchase invoice", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
