package model

import "time"

// LockRecord is one shareable lock link.  Anyone holding Token can turn
// the public site into a single-event microsite for EventID.  Records
// are never deleted; revocation is the terminal state.
//
// Fields:
//  ID             – public identifier (uuid) used by admin list/revoke.
//  Token          – random bearer token embedded in the lock URL.
//  EventID        – event the lock narrows the site to.
//  CreatedBy      – admin who generated the lock.
//  ExpiresAt      – absolute expiry, fixed at creation.
//  IsRevoked      – set once by an explicit revoke, never cleared.
//  UsageCount     – successful verifications so far.
//  MaxUsage       – optional cap on UsageCount (nil means unlimited).
//  LastAccessedAt – time of the most recent successful verification.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type LockRecord struct {
	ID             string     // event_locks.id
	Token          string     // event_locks.token
	EventID        uint64     // event_locks.event_id
	CreatedBy      uint64     // event_locks.created_by
	ExpiresAt      time.Time  // event_locks.expires_at
	IsRevoked      bool       // event_locks.is_revoked
	UsageCount     int        // event_locks.usage_count
	MaxUsage       *int       // event_locks.max_usage (nullable)
	LastAccessedAt *time.Time // event_locks.last_accessed_at (nullable)
	CreatedAt      time.Time  // event_locks.created_at
	UpdatedAt      time.Time  // event_locks.updated_at
}

// LockReason explains why a lock record is not usable.
type LockReason string

const (
	ReasonNone       LockReason = ""
	ReasonNotFound   LockReason = "not_found"
	ReasonRevoked    LockReason = "revoked"
	ReasonExpired    LockReason = "expired"
	ReasonUsageLimit LockReason = "usage_limit_exceeded"
)

// Message returns the user-facing text for a reason.
func (r LockReason) Message() string {
	switch r {
	case ReasonRevoked:
		return "This link has been revoked"
	case ReasonExpired:
		return "This link has expired"
	case ReasonUsageLimit:
		return "Usage limit exceeded"
	case ReasonNotFound:
		return "Invalid lock token"
	}
	return ""
}

// InvalidReason reports why the record is unusable at now, or
// ReasonNone when it is valid.  Revocation wins over expiry, expiry
// wins over the usage cap.
func (l *LockRecord) InvalidReason(now time.Time) LockReason {
	if l.IsRevoked {
		return ReasonRevoked
	}
	if !l.ExpiresAt.After(now) {
		return ReasonExpired
	}
	if l.MaxUsage != nil && l.UsageCount >= *l.MaxUsage {
		return ReasonUsageLimit
	}
	return ReasonNone
}

// IsValid evaluates the validity predicate at now.
func (l *LockRecord) IsValid(now time.Time) bool {
	return l.InvalidReason(now) == ReasonNone
}

// LockContext is the per-request lock decision made by the lock-aware
// gate.  The zero value means no lock applies.
type LockContext struct {
	IsLocked  bool
	EventID   uint64
	EventSlug string
}

// Unlocked is the context used whenever no valid lock applies.
var Unlocked = LockContext{}

// Locked builds the context for a valid lock on the given event.
func Locked(eventID uint64, slug string) LockContext {
	return LockContext{IsLocked: true, EventID: eventID, EventSlug: slug}
}

// Allows reports whether a slug may be read under this context.
func (lc LockContext) Allows(slug string) bool {
	return !lc.IsLocked || slug == lc.EventSlug
}
