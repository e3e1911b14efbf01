package config

import (
    "strings"
    "time"
)

// Cache key strategies.  The caller's lock scope is always part of the
// key regardless of strategy.
const (
    CacheKeyPath      = "path"
    CacheKeyPathQuery = "path_query"
)

// CacheConfig defines settings for the public event read cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Responses larger than MaxBodyBytes are not stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
    methods := map[string]bool{}
    for _, m := range splitList(envStr("CACHE_METHODS", "GET,HEAD")) {
        methods[strings.ToUpper(m)] = true
    }
    strategy := envStr("CACHE_KEY_STRATEGY", CacheKeyPathQuery)
    if strategy != CacheKeyPath {
        strategy = CacheKeyPathQuery
    }
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methods,
        TTL:          envDur("CACHE_TTL", 15*time.Second),
        KeyStrategy:  strategy,
        Prefix:       envStr("CACHE_PREFIX", "evcache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
}
