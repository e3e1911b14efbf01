package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/alumnirel/eventlock/internal/config"
)

// verifyBucketScript keeps a continuously refilling bucket in a hash
// {level, at_ms}.  KEYS[1] bucket; ARGV now_ms, capacity, rate per ms,
// ttl seconds.  Returns {allowed, floor(level), wait_ms}.
var verifyBucketScript = redis.NewScript(`
local cap  = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local now  = tonumber(ARGV[1])
local b = redis.call('HMGET', KEYS[1], 'level', 'at_ms')
local level = tonumber(b[1]) or cap
local at = tonumber(b[2]) or now
if now > at then
  level = math.min(cap, level + (now - at) * rate)
end
local ok, wait = 0, 0
if level >= 1 then
  ok = 1
  level = level - 1
else
  wait = math.ceil((1 - level) / rate)
end
redis.call('HSET', KEYS[1], 'level', tostring(level), 'at_ms', now)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[4]))
return {ok, math.floor(level), wait}
`)

type verdict struct {
    allowed   bool
    remaining int64
    wait      time.Duration
}

type bucket struct {
    rdb  *redis.Client
    cfg  config.RateLimitConfig
    rate float64 // tokens per millisecond
}

func (b *bucket) take(ctx context.Context, key string) (verdict, error) {
    res, err := verifyBucketScript.Run(ctx, b.rdb, []string{key},
        time.Now().UnixMilli(), b.cfg.Capacity, b.rate, int64(b.cfg.TTL/time.Second)).Result()
    if err != nil {
        return verdict{}, err
    }
    v, ok := parseBucketResult(res)
    if !ok {
        return verdict{}, fmt.Errorf("unexpected script result %#v", res)
    }
    return v, nil
}

// NewTokenBucket throttles GET /api/locks/verify/:token per client.
// Every allowed call may consume a lock usage unit and unknown tokens
// are guessed through this route, so the bucket is small.  A disabled
// config or a nil client yields a pass-through; Redis errors let the
// request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    b := &bucket{rdb: rdb, cfg: cfg,
        rate: float64(cfg.RefillTokens) / float64(cfg.RefillInterval.Milliseconds())}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            v, err := b.take(c.Request().Context(), key)
            if err != nil {
                c.Logger().Warnf("[ratelimit] key=%s: %v", key, err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
            if v.allowed {
                return next(c)
            }

            secs := int((v.wait + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                c.Logger().Infof("[ratelimit] blocked key=%s wait=%s", key, v.wait)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "success":     false,
                "message":     "Too many requests, try again later",
                "retry_after": secs,
            })
        }
    }
}

func parseBucketResult(res interface{}) (verdict, bool) {
    arr, ok := res.([]interface{})
    if !ok || len(arr) != 3 {
        return verdict{}, false
    }
    n := make([]int64, 3)
    for i, x := range arr {
        v, ok := x.(int64)
        if !ok {
            return verdict{}, false
        }
        n[i] = v
    }
    return verdict{allowed: n[0] == 1, remaining: n[1], wait: time.Duration(n[2]) * time.Millisecond}, true
}

// buildRateKey never includes the lock token: a client cycling through
// guessed tokens must land in one bucket.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix, "ip", ip}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
    case "ip_user":
        parts = append(parts, "user", clientIdentity(c))
    default: // ip_route
        parts = append(parts, "route", route)
    }
    return strings.Join(parts, ":")
}
