package shared

import "errors"

// Error kinds shared by every domain package. Domain sentinels wrap exactly one kind so
// transports can map them without importing the domain.
var (
	// ErrValidation indicates client-fixable input.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict indicates the resource is in the wrong lifecycle state.
	ErrStateConflict = errors.New("state conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity indicates a persistence invariant was violated mid-transaction.
	ErrIntegrity = errors.New("integrity failure")
	// ErrMissingIdentity occurs when a request carries no organization or actor.
	ErrMissingIdentity = errors.New("missing organization or actor identity")
)

// KindError is a domain sentinel bound to one error kind.
type KindError struct {
	kind error
	msg  string
}

// NewKindError builds a sentinel that unwraps to kind.
func NewKindError(kind error, msg string) *KindError {
	return &KindError{kind: kind, msg: msg}
}

func (e *KindError) Error() string { return e.msg }

func (e *KindError) Unwrap() error { return e.kind }

// KindOf reports the kind an error belongs to, or nil when it carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrStateConflict, ErrNotFound, ErrIntegrity} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// FieldError is one client-correctable problem.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// FieldReporter is implemented by errors that carry per-field problems.
type FieldReporter interface {
	FieldErrors() []FieldError
}
