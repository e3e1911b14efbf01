package config

import "time"

// Key strategies for the verify limiter.  The lock token is never part
// of a key.
const (
    RateKeyIP      = "ip"
    RateKeyIPRoute = "ip_route"
    RateKeyIPUser  = "ip_user"
)

// RateLimitConfig drives the token bucket in front of the lock verify
// endpoint.  Every verify call can consume a usage unit, so the default
// bucket is small and keyed by client IP.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // burst size
    RefillTokens   int           // tokens added per RefillInterval
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", RateKeyIPRoute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:verify"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    // RATE_LIMIT_REFILL_EVERY=2s is shorthand for one token every 2s.
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        rl.RefillTokens, rl.RefillInterval = 1, every
    }
    rl.Capacity = max(rl.Capacity, 1)
    rl.RefillTokens = max(rl.RefillTokens, 1)
    if rl.RefillInterval < time.Millisecond {
        rl.RefillInterval = time.Second
    }
    rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
    switch rl.KeyStrategy {
    case RateKeyIP, RateKeyIPRoute, RateKeyIPUser:
    default:
        rl.KeyStrategy = RateKeyIPRoute
    }
    return rl
}
