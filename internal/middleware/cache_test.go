package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/alumnirel/eventlock/internal/config"
    "github.com/alumnirel/eventlock/internal/model"
)

func keyFor(t *testing.T, cfg config.CacheConfig, target string, lc *model.LockContext) string {
    t.Helper()
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
    c.SetPath("/api/events/:slug")
    if lc != nil {
        c.Set(lockContextKey, *lc)
    }
    return cacheKeyFrom(cfg, c)
}

func TestCacheKey_SeparatesLockScopes(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "evcache", KeyStrategy: config.CacheKeyPathQuery}
    a := model.Locked(1, "reunion-2025")
    b := model.Locked(2, "gala")

    public := keyFor(t, cfg, "/api/events/reunion-2025", nil)
    lockedA := keyFor(t, cfg, "/api/events/reunion-2025", &a)
    lockedB := keyFor(t, cfg, "/api/events/reunion-2025", &b)

    if public == lockedA || lockedA == lockedB || public == lockedB {
        t.Fatalf("keys collide: public=%s a=%s b=%s", public, lockedA, lockedB)
    }
    if again := keyFor(t, cfg, "/api/events/reunion-2025", &a); again != lockedA {
        t.Errorf("key not stable: %s vs %s", again, lockedA)
    }
}

func TestCacheKey_Strategies(t *testing.T) {
    for _, strategy := range []string{config.CacheKeyPath, config.CacheKeyPathQuery} {
        cfg := config.CacheConfig{Prefix: "evcache", KeyStrategy: strategy}
        if keyFor(t, cfg, "/api/events/a", nil) == keyFor(t, cfg, "/api/events/b", nil) {
            t.Errorf("%s: different slugs share a key", strategy)
        }
    }
    path := config.CacheConfig{Prefix: "evcache", KeyStrategy: config.CacheKeyPath}
    if keyFor(t, path, "/api/events/a?x=1", nil) != keyFor(t, path, "/api/events/a", nil) {
        t.Error("path strategy should ignore the query")
    }
    pq := config.CacheConfig{Prefix: "evcache", KeyStrategy: config.CacheKeyPathQuery}
    if keyFor(t, pq, "/api/events/a?x=1", nil) == keyFor(t, pq, "/api/events/a", nil) {
        t.Error("path_query strategy should include the query")
    }
}

func TestReplay(t *testing.T) {
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
    raw := []byte(`{"s":200,"h":{"Content-Type":["application/json"],"Content-Length":["99"]},"b":"eyJvayI6dHJ1ZX0="}`)
    if !replay(c, raw) {
        t.Fatal("replay rejected a stored response")
    }
    if rec.Body.String() != `{"ok":true}` || rec.Header().Get("X-Cache") != "HIT" || rec.Header().Get("Content-Length") != "" {
        t.Errorf("replayed body=%q headers=%v", rec.Body.String(), rec.Header())
    }
    if replay(c, []byte("garbage")) {
        t.Error("garbage replayed")
    }
}

func TestBodyRecorder_Overflow(t *testing.T) {
    rec := httptest.NewRecorder()
    br := &bodyRecorder{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = br.Write([]byte("abcd"))
    if !br.cacheable() || br.body.String() != "abcd" {
        t.Errorf("at the limit: cacheable=%v body=%q", br.cacheable(), br.body.String())
    }
    _, _ = br.Write([]byte("ef"))
    if br.cacheable() {
        t.Error("body over the limit is cacheable")
    }
    if rec.Body.String() != "abcdef" {
        t.Errorf("client got %q", rec.Body.String())
    }
}
