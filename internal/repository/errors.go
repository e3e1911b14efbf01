// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// lock service and handlers to distinguish between "the row is not
// there" and a storage failure.
package repository

import "errors"

// ErrLockNotFound is returned when no lock record matches the given
// token or id. Handlers translate this into an HTTP 404 response.
var ErrLockNotFound = errors.New("lock not found")

// ErrEventNotFound is returned when an event does not exist or has been
// soft-deleted.
var ErrEventNotFound = errors.New("event not found")

// ErrAdminNotFound is returned when no admin matches the lookup.
var ErrAdminNotFound = errors.New("admin not found")

// ErrDuplicateToken signals a unique-key violation on the token column.
// With 256-bit random tokens it should never surface, but the service
// retries generation once if it does.
var ErrDuplicateToken = errors.New("duplicate lock token")
