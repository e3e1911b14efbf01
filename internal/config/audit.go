package config

// AuditConfig controls the lock audit trail.  Publishing sends every
// lock lifecycle event to RabbitMQ; the consumer drains the queue into
// an append-only log file.  Both degrade to no-ops when the broker is
// unreachable.
type AuditConfig struct {
    Enabled         bool
    ConsumerEnabled bool
    LogPath         string
}

func LoadAuditConfig() AuditConfig {
    return AuditConfig{
        Enabled:         envBool("AUDIT_ENABLED", true),
        ConsumerEnabled: envBool("AUDIT_CONSUMER_ENABLED", false),
        LogPath:         envStr("AUDIT_LOG_PATH", "logs/lock_audit.log"),
    }
}
