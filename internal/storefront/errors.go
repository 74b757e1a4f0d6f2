package storefront

import "errors"

// Domain error kinds. Handlers map these to HTTP statuses; nothing else in
// the error chain is inspected. Domain errors are never retried.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrStoreUnavailable = errors.New("store unavailable")
)
