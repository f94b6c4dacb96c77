// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RespondError maps domain error kinds to HTTP responses using RFC7807. Integrity and
// unknown failures are opaque.
func RespondError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.ErrValidation:
		var reporter shared.FieldReporter
		detail := ProblemDetail{Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Detail: err.Error()}
		if errors.As(err, &reporter) {
			detail.Errors = reporter.FieldErrors()
		}
		JSON(w, detail.Status, detail)
	case shared.ErrStateConflict:
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case shared.ErrNotFound:
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		if errors.Is(err, shared.ErrMissingIdentity) {
			Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusBadRequest, "Bad Request", detail)
}
