package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type fieldErr struct{}

func (fieldErr) Error() string { return "bad voucher" }

func (fieldErr) Unwrap() error { return shared.ErrValidation }

func (fieldErr) FieldErrors() []shared.FieldError {
	return []shared.FieldError{{Field: "entries[0].debit", Reason: "must be positive"}}
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fieldErr{}, http.StatusUnprocessableEntity},
		{"conflict", shared.NewKindError(shared.ErrStateConflict, "already posted"), http.StatusConflict},
		{"not found", fmt.Errorf("load: %w", shared.NewKindError(shared.ErrNotFound, "voucher not found")), http.StatusNotFound},
		{"identity", shared.ErrMissingIdentity, http.StatusUnauthorized},
		{"integrity", shared.NewKindError(shared.ErrIntegrity, "balance drift"), http.StatusInternalServerError},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("post: %w", fieldErr{}))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	require.Equal(t, "entries[0].debit", body.Errors[0].Field)
}

func TestRespondErrorHidesIntegrityDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, shared.NewKindError(shared.ErrIntegrity, "ledger: balance drift on account 9"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Empty(t, body.Detail)
}
