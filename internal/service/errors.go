package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stock/order core. Handlers map these to HTTP
// status codes. Unless stated otherwise a returned error means nothing was
// mutated: multi-product operations run in a single transaction and roll
// back completely on any failing check.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrComponentNotFound = errors.New("combo component not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNothingToCancel   = errors.New("no recorded sales to cancel")
	ErrProductInUse      = errors.New("product is referenced by existing combos")
	ErrClientHasOrders   = errors.New("client has existing orders")
)

// ValidationError reports malformed input rejected before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
