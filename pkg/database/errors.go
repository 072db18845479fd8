// Package database provides sentinel errors for repository operations.
// Callers get explicit errors instead of ambiguous (nil, nil) returns.

package database

import "errors"

// Sentinel errors for repository lookups.
var (
	// ErrNotFound is returned when a requested triangle, event, or account
	// does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrTriangleNotFound is returned when a triangle id has no matching row.
	ErrTriangleNotFound = errors.New("triangle not found")

	// ErrNonceReplay is returned when an (account, nonce) pair already has
	// an event row. Also surfaced via the unique-index violation path in
	// CommitClick for the concurrent case.
	ErrNonceReplay = errors.New("nonce already used for this account")

	// ErrAlreadySubdivided is returned if a click lands on a triangle whose
	// state is already "subdivided" — the caller should treat this as
	// OutOfBounds/stale-read, never silently accept it.
	ErrAlreadySubdivided = errors.New("triangle already subdivided")
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), the authoritative replay guard referenced by
// the (account, nonce) index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pe, ok := asPQError(err); ok {
		return pe.Code == "23505"
	}
	return false
}
