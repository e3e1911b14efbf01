package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/alumnirel/eventlock/internal/config"
    "github.com/alumnirel/eventlock/internal/model"
)

// cachedResponse is what a public read stores in Redis.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// bodyRecorder tees the response body.  It stops buffering once the body
// exceeds limit (0 means no limit) and marks itself overflowed.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    limit    int
    body     bytes.Buffer
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.body.Len()+len(b) > r.limit {
            r.overflow = true
            r.body.Reset()
        } else {
            r.body.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) cacheable() bool {
    return r.status == http.StatusOK && !r.overflow
}

// cacheKeyFrom scopes the key by the lock resolved by LockAware, so a
// locked client never receives a directory cached for an unlocked one or
// for another lock.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    u := c.Request().URL
    target := u.Path
    if cfg.KeyStrategy != config.CacheKeyPath && u.RawQuery != "" {
        target += "?" + u.RawQuery
    }
    sum := sha1.Sum([]byte(c.Request().Method + " " + target))
    return cfg.Prefix + ":" + lockScope(LockContextFrom(c)) + ":" + hex.EncodeToString(sum[:])
}

func lockScope(lc model.LockContext) string {
    if !lc.IsLocked {
        return "public"
    }
    return "event-" + strconv.FormatUint(lc.EventID, 10)
}

func replay(c echo.Context, raw []byte) bool {
    var cr cachedResponse
    if err := json.Unmarshal(raw, &cr); err != nil || cr.Status == 0 {
        return false
    }
    h := c.Response().Header()
    for k, vals := range cr.Header {
        if k == echo.HeaderContentLength {
            continue
        }
        h[k] = append([]string(nil), vals...)
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(cr.Status)
    _, _ = c.Response().Write(cr.Body)
    return true
}

// NewRedisCache caches 200 responses of the public event reads.  It must
// run after LockAware.  A disabled config or a nil client yields a
// pass-through; Redis errors only cost a cache miss.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 15 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)
            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil && replay(c, raw) {
                return nil
            }

            res := c.Response()
            res.Header().Add("Vary", HeaderLockToken)
            res.Header().Set("X-Cache", "MISS")
            rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            res.Writer = rec
            if err := next(c); err != nil {
                return err
            }
            if !rec.cacheable() {
                return nil
            }

            hdr := res.Header().Clone()
            hdr.Del("X-Cache")
            raw, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
            if err == nil {
                err = rdb.Set(context.Background(), key, raw, ttl).Err()
            }
            if err != nil {
                c.Logger().Warnf("[cache] store key=%s: %v", key, err)
            }
            return nil
        }
    }
}
