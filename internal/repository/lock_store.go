package repository

import (
	"context"
	"time"

	"github.com/alumnirel/eventlock/internal/model"
)

// LockStore persists lock records.  Implementations must make
// ConsumeIfValid a single atomic operation: the validity check and the
// usage increment may not be split into a read followed by a write.
type LockStore interface {
	// Create inserts a new record.  ErrDuplicateToken on token collision.
	Create(ctx context.Context, rec *model.LockRecord) error
	// GetByToken returns the record for token or ErrLockNotFound.
	GetByToken(ctx context.Context, token string) (*model.LockRecord, error)
	// ConsumeIfValid increments usage_count and sets last_accessed_at to
	// now only if the record is not revoked, not expired at now and under
	// its usage cap.  It reports whether a unit was consumed and, if so,
	// the usage_count this call produced.  A missing token is reported as
	// consumed=false with a nil error.
	ConsumeIfValid(ctx context.Context, token string, now time.Time) (usage int, consumed bool, err error)
	// Revoke flags the record with the given id as revoked.  Revoking an
	// already revoked record succeeds.  ErrLockNotFound if no such id.
	Revoke(ctx context.Context, id string) error
	// ListActive returns every non-revoked record, newest first.
	ListActive(ctx context.Context) ([]*model.LockRecord, error)
}
