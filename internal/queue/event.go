// Package queue defines message payloads exchanged over the message broker.
package queue

// Lock audit event types.
const (
    LockGenerated = "lock.generated"
    LockVerified  = "lock.verified"
    LockRejected  = "lock.rejected"
    LockRevoked   = "lock.revoked"
)

// LockAuditEvent is published for every lock lifecycle step so the audit
// trail survives independently of the lock records themselves.  Only a
// short token prefix is carried; the full token is a bearer secret.
type LockAuditEvent struct {
    Type        string `json:"type"`
    LockID      string `json:"lock_id,omitempty"`
    TokenPrefix string `json:"token_prefix,omitempty"`
    EventID     uint64 `json:"event_id,omitempty"`
    AdminID     uint64 `json:"admin_id,omitempty"`
    Reason      string `json:"reason,omitempty"`
    UsageCount  int    `json:"usage_count,omitempty"`
    MaxUsage    *int   `json:"max_usage,omitempty"`
    At          string `json:"at"`
}

// TokenPrefix returns the first eight characters of a token for logs.
func TokenPrefix(token string) string {
    if len(token) <= 8 {
        return token
    }
    return token[:8]
}
