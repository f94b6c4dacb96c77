package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Handler exposes the chart of accounts, vouchers and ledger queries over JSON.
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

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{id}", h.getAccount)
		r.Patch("/{id}", h.updateAccount)
		r.Delete("/{id}", h.deleteAccount)
		r.Get("/{id}/ledger", h.accountLedger)
	})
	r.Route("/vouchers", func(r chi.Router) {
		r.Get("/", h.listVouchers)
		r.Post("/", h.createVoucher)
		r.Post("/validate", h.validateVoucher)
		r.Get("/{id}", h.getVoucher)
		r.Put("/{id}", h.updateVoucher)
		r.Delete("/{id}", h.deleteVoucher)
		r.Post("/{id}/post", h.postVoucher)
		r.Post("/{id}/void", h.voidVoucher)
		r.Get("/{id}/entries", h.voucherEntries)
	})
	r.Get("/reports/trial-balance", h.trialBalance)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// fail writes err and logs what the client will not see.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if kind := shared.KindOf(err); kind == nil || kind == shared.ErrIntegrity {
		h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accounts, err := h.service.ListAccounts(r.Context(), id.OrgID)
	if err != nil {
		h.fail(w, r, "list accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createAccountRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		OrgID:    id.OrgID,
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		Category: req.Category,
		ParentID: req.ParentID,
		ActorID:  id.ActorID,
	})
	if err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acc)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accountID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid account id")
		return
	}
	acc, err := h.service.FindAccountByID(r.Context(), id.OrgID, accountID)
	if err != nil {
		h.fail(w, r, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accountID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.UpdateAccount(r.Context(), UpdateAccountInput{
		OrgID:     id.OrgID,
		AccountID: accountID,
		Name:      req.Name,
		Category:  req.Category,
		IsActive:  req.IsActive,
		ActorID:   id.ActorID,
	})
	if err != nil {
		h.fail(w, r, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accountID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid account id")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id.OrgID, accountID, id.ActorID); err != nil {
		h.fail(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accountID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid account id")
		return
	}
	filter := EntryFilter{}
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.BadRequest(w, "from must be YYYY-MM-DD")
			return
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.BadRequest(w, "to must be YYYY-MM-DD")
			return
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	entries, err := h.service.FindLedgerEntriesByAccount(r.Context(), id.OrgID, accountID, filter)
	if err != nil {
		h.fail(w, r, "account ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)
	vouchers, err := h.service.ListVouchers(r.Context(), id.OrgID, VoucherFilter{
		Status:       VoucherStatus(q.Get("status")),
		Type:         VoucherType(q.Get("type")),
		FiscalPeriod: q.Get("period"),
		Limit:        pagination.PerPage,
		Offset:       pagination.Offset(),
	})
	if err != nil {
		h.fail(w, r, "list vouchers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": vouchers, "page": pagination.Page, "per_page": pagination.PerPage})
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req voucherRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.CreateDraft(r.Context(), req.toDraft(id.OrgID, id.ActorID))
	if err != nil {
		h.fail(w, r, "create voucher", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) validateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req voucherRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	draft := req.toDraft(id.OrgID, id.ActorID)
	result, err := h.service.ValidateDoubleEntry(r.Context(), id.OrgID, Voucher{OrgID: id.OrgID, Type: draft.Type, Entries: draft.Entries})
	if err != nil {
		h.fail(w, r, "validate voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	v, err := h.service.GetVoucher(r.Context(), id.OrgID, voucherID)
	if err != nil {
		h.fail(w, r, "get voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"voucher": v, "totals": v.Totals()})
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	var req voucherRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.UpdateDraft(r.Context(), voucherID, req.toDraft(id.OrgID, id.ActorID))
	if err != nil {
		h.fail(w, r, "update voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	if err := h.service.DeleteDraft(r.Context(), id.OrgID, voucherID, id.ActorID); err != nil {
		h.fail(w, r, "delete voucher", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	v, err := h.service.Post(r.Context(), PostInput{OrgID: id.OrgID, VoucherID: voucherID, ActorID: id.ActorID})
	if err != nil {
		h.fail(w, r, "post voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) voidVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.Void(r.Context(), VoidInput{OrgID: id.OrgID, VoucherID: voucherID, ActorID: id.ActorID, Reason: req.Reason})
	if err != nil {
		h.fail(w, r, "void voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) voucherEntries(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	voucherID, ok := pathID(r)
	if !ok {
		httpx.BadRequest(w, "invalid voucher id")
		return
	}
	entries, err := h.service.FindLedgerEntriesByVoucher(r.Context(), id.OrgID, voucherID)
	if err != nil {
		h.fail(w, r, "voucher entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), id.OrgID)
	if err != nil {
		h.fail(w, r, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}
