package ledger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t, ledger.Config{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Anonymous") != "" {
				next.ServeHTTP(w, req)
				return
			}
			ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{OrgID: orgID, ActorID: actorID})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	ledger.NewHandler(nil, f.svc).MountRoutes(r)
	return r, f
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerVoucherLifecycle(t *testing.T) {
	h, f := newTestRouter(t)
	cash := f.account(t, "1-100", "Cash", ledger.AccountTypeAsset)
	revenue := f.account(t, "4-100", "Sales", ledger.AccountTypeRevenue)

	payload := map[string]any{
		"type":      "RV",
		"date":      "2025-03-10",
		"narration": "Counter sale",
		"entries": []map[string]any{
			{"account_id": cash.ID, "debit": "250.00", "credit": "0"},
			{"account_id": revenue.ID, "debit": "0", "credit": "250.00"},
		},
	}
	rec := doJSON(t, h, http.MethodPost, "/vouchers", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ledger.Voucher
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "RV-2025-0001", created.Number)
	require.Equal(t, ledger.VoucherStatusDraft, created.Status)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/vouchers/%d/post", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/vouchers/%d/post", created.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/vouchers/%d/entries", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Data []ledger.LedgerEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries.Data, 2)

	rec = doJSON(t, h, http.MethodGet, "/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tb ledger.TrialBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	require.True(t, tb.Balanced)
	require.True(t, tb.TotalDebit.Equal(d("250")))

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/vouchers/%d/void", created.ID), map[string]any{"reason": "bad"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/vouchers/%d/void", created.ID), map[string]any{"reason": "customer refund"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, f.balance(t, cash.ID).IsZero())

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/accounts/%d/ledger", cash.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries.Data, 2)
}

func TestHandlerRejectsImbalancedVoucher(t *testing.T) {
	h, f := newTestRouter(t)
	cash := f.account(t, "1-100", "Cash", ledger.AccountTypeAsset)
	revenue := f.account(t, "4-100", "Sales", ledger.AccountTypeRevenue)

	payload := map[string]any{
		"type":      "JV",
		"date":      "2025-03-10",
		"narration": "Broken",
		"entries": []map[string]any{
			{"account_id": cash.ID, "debit": "100", "credit": "0"},
			{"account_id": revenue.ID, "debit": "0", "credit": "90"},
		},
	}
	rec := doJSON(t, h, http.MethodPost, "/vouchers/validate", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	var result ledger.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.IsValid)
	require.NotEmpty(t, result.Errors)

	rec = doJSON(t, h, http.MethodPost, "/vouchers", payload)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	require.Zero(t, f.mem.VoucherCount())
}

func TestHandlerRequestValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/vouchers", map[string]any{"type": "XX", "date": "10/03/2025", "narration": "ok"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	fields := map[string]bool{}
	for _, fe := range problem.Errors {
		fields[fe.Field] = true
	}
	require.True(t, fields["type"])
	require.True(t, fields["date"])
	require.True(t, fields["entries"])

	rec = doJSON(t, h, http.MethodPost, "/accounts", map[string]any{"code": "1-100", "name": "Cash", "type": "asset", "colour": "red"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/vouchers/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/vouchers/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAccounts(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/accounts", map[string]any{"code": "1-000", "name": "Assets", "type": "asset"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var parent ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parent))

	rec = doJSON(t, h, http.MethodPost, "/accounts", map[string]any{"code": "1-100", "name": "Cash", "type": "asset", "parent_id": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var child ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &child))
	require.Equal(t, parent.Level+1, child.Level)

	rec = doJSON(t, h, http.MethodPost, "/accounts", map[string]any{"code": "1-100", "name": "Cash again", "type": "asset"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/accounts/%d", parent.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/accounts/%d", child.ID), map[string]any{"name": "Petty Cash"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var renamed ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &renamed))
	require.Equal(t, "Petty Cash", renamed.Name)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/accounts/%d", child.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []ledger.Account `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.False(t, list.Data[0].IsGroup)
}

func TestHandlerRequiresIdentity(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
