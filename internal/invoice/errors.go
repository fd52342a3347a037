package invoice

import (
	"errors"
	"fmt"

	"github.com/facturapro/facturapro/internal/platform/httpx"
)

var (
	// ErrUnknownItem is returned when a line item id is not in the document.
	ErrUnknownItem = fmt.Errorf("%w: unknown line item", httpx.ErrValidation)
	// ErrPersistence marks failures reported by the invoice store.
	ErrPersistence = errors.New("invoice: persistence failure")
)

// ValidationError rejects a field value at the document boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invoice: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return httpx.ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError carries a store failure verbatim.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("invoice: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
