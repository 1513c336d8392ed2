// Package repository defines sentinel error values reused across the
// individual repositories.  Handlers switch on these to pick an HTTP status
// instead of inspecting driver error strings themselves.
package repository

import "errors"

// ErrNotFound is returned when the requested entity does not exist.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrTokenExpired is returned when a refresh token row exists but its
// expires_at has passed.  The caller is expected to delete the row and
// answer the expired-token class, distinct from "never issued".
var ErrTokenExpired = errors.New("token expired")

// ErrEmailExists is returned when an insert or update would violate the
// per-table email uniqueness constraint.  Handlers translate it into 409.
var ErrEmailExists = errors.New("email already exists")

// ErrChannelExists is returned when a channel's business key collides with
// an existing row.  Handlers translate it into 409.
var ErrChannelExists = errors.New("channel id already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")
