package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RequestError reports request fields rejected before reaching a service.
type RequestError struct {
	Fields []shared.FieldError
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Unwrap marks request errors as validation failures.
func (e *RequestError) Unwrap() error { return shared.ErrValidation }

// FieldErrors implements shared.FieldReporter.
func (e *RequestError) FieldErrors() []shared.FieldError { return e.Fields }

// NewValidator returns a validator reporting JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs struct validation and converts failures into a RequestError.
func Validate(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]shared.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, shared.FieldError{Field: fieldPath(fe), Reason: reason(fe)})
	}
	return &RequestError{Fields: fields}
}

// DecodeAndValidate decodes a JSON body into dst and validates it.
func DecodeAndValidate(r *http.Request, v *validator.Validate, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return &RequestError{Fields: []shared.FieldError{{Field: "body", Reason: err.Error()}}}
	}
	return Validate(v, dst)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
