// Package repository implements MySQL persistence for users, refresh
// tokens, slots and swap requests, plus an in-memory variant of the
// swap store used in tests. Sentinel errors defined here let higher
// layers distinguish failure scenarios without string matching.
package repository

import "errors"

// ErrEmailExists is returned when registering an email address that
// already has an account. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
