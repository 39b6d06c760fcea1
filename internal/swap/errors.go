// Package swap implements the slot-swap exchange protocol: the state
// machine governing swap requests, the only code path that moves slot
// ownership, and the read-only query layer built on top of the same
// store. Handlers translate the sentinel errors defined here into
// HTTP responses.
package swap

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when no verified identity accompanies a
// call. Handlers should translate this into an HTTP 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the caller's identity does not match
// the owner or requester required for the operation. Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a slot or request id does not resolve
// to a record. Handlers should translate this into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest is returned for malformed input, such as a swap
// request that targets and offers the same slot. HTTP 400.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotAllowed is returned when a business rule blocks an otherwise
// well-formed operation, e.g. offering a slot that is not marked
// swappable. HTTP 422.
var ErrNotAllowed = errors.New("not allowed")

// ErrConflict is returned when a terminal transition is attempted on
// a request that is no longer PENDING, or when a concurrent swap beat
// the caller to one of the involved slots. HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrStorage wraps persistence failures. The cause is flattened into
// the message so handlers can report a generic failure without
// leaking backend internals. HTTP 500.
var ErrStorage = errors.New("storage error")

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
