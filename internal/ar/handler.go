package ar

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

// Handler manages sales invoice and walk-in sale endpoints.
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

// MountRoutes registers AR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales-invoices", func(r chi.Router) {
		r.Get("/", h.listSalesInvoices)
		r.Post("/", h.createSalesInvoice)
		r.Get("/{id}", h.getSalesInvoice)
		r.Post("/{id}/post", h.postSalesInvoice)
		r.Post("/{id}/void", h.voidSalesInvoice)
	})
	r.Route("/walk-in-sales", func(r chi.Router) {
		r.Get("/", h.listWalkInSales)
		r.Post("/", h.createWalkInSale)
		r.Get("/{id}", h.getWalkInSale)
		r.Post("/{id}/post", h.postWalkInSale)
		r.Post("/{id}/void", h.voidWalkInSale)
	})
}

type salesInvoiceRequest struct {
	Number       string          `json:"number" validate:"required,max=64"`
	CustomerName string          `json:"customer_name" validate:"required,max=200"`
	InvoiceDate  string          `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
}

type walkInSaleRequest struct {
	Number   string          `json:"number" validate:"required,max=64"`
	SaleDate string          `json:"sale_date" validate:"required,datetime=2006-01-02"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// scope resolves identity and the {id} path parameter. It writes the error response itself.
func scope(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Identity{}, 0, false
	}
	docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid document id")
		return shared.Identity{}, 0, false
	}
	return id, docID, true
}

func listRequest(r *http.Request, orgID int64) (ListRequest, shared.Pagination) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)
	return ListRequest{
		OrgID:  orgID,
		Status: shared.DocumentStatus(q.Get("status")),
		Limit:  pagination.PerPage,
		Offset: pagination.Offset(),
	}, pagination
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, msg string, status int, data any, err error) {
	if err != nil {
		if shared.KindOf(err) == nil || shared.KindOf(err) == shared.ErrIntegrity {
			h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, data)
}

func (h *Handler) listSalesInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, pagination := listRequest(r, id.OrgID)
	invoices, err := h.service.ListSalesInvoices(r.Context(), req)
	h.respond(w, r, "list sales invoices", http.StatusOK,
		map[string]any{"data": invoices, "page": pagination.Page, "per_page": pagination.PerPage}, err)
}

func (h *Handler) createSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req salesInvoiceRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := time.Parse("2006-01-02", req.InvoiceDate)
	inv, err := h.service.CreateSalesInvoice(r.Context(), SalesInvoiceInput{
		OrgID:        id.OrgID,
		Number:       req.Number,
		CustomerName: req.CustomerName,
		InvoiceDate:  date,
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		CreatedBy:    id.ActorID,
	})
	h.respond(w, r, "create sales invoice", http.StatusCreated, inv, err)
}

func (h *Handler) getSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetSalesInvoice(r.Context(), id.OrgID, docID)
	h.respond(w, r, "get sales invoice", http.StatusOK, inv, err)
}

func (h *Handler) postSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	inv, err := h.service.PostSalesInvoice(r.Context(), id.OrgID, docID, id.ActorID)
	h.respond(w, r, "post sales invoice", http.StatusOK, inv, err)
}

func (h *Handler) voidSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.VoidSalesInvoice(r.Context(), id.OrgID, docID, id.ActorID, req.Reason)
	h.respond(w, r, "void sales invoice", http.StatusOK, inv, err)
}

func (h *Handler) listWalkInSales(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, pagination := listRequest(r, id.OrgID)
	sales, err := h.service.ListWalkInSales(r.Context(), req)
	h.respond(w, r, "list walk-in sales", http.StatusOK,
		map[string]any{"data": sales, "page": pagination.Page, "per_page": pagination.PerPage}, err)
}

func (h *Handler) createWalkInSale(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req walkInSaleRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := time.Parse("2006-01-02", req.SaleDate)
	sale, err := h.service.CreateWalkInSale(r.Context(), WalkInSaleInput{
		OrgID:     id.OrgID,
		Number:    req.Number,
		SaleDate:  date,
		Gross:     req.Gross,
		Discount:  req.Discount,
		Tax:       req.Tax,
		CreatedBy: id.ActorID,
	})
	h.respond(w, r, "create walk-in sale", http.StatusCreated, sale, err)
}

func (h *Handler) getWalkInSale(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetWalkInSale(r.Context(), id.OrgID, docID)
	h.respond(w, r, "get walk-in sale", http.StatusOK, sale, err)
}

func (h *Handler) postWalkInSale(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	sale, err := h.service.PostWalkInSale(r.Context(), id.OrgID, docID, id.ActorID)
	h.respond(w, r, "post walk-in sale", http.StatusOK, sale, err)
}

func (h *Handler) voidWalkInSale(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := scope(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.VoidWalkInSale(r.Context(), id.OrgID, docID, id.ActorID, req.Reason)
	h.respond(w, r, "void walk-in sale", http.StatusOK, sale, err)
}
