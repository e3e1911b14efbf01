package config

import (
	"fmt"
	"log"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_PORT":   "8080",
		"DB_USER":    "root",
		"DB_HOST":    "127.0.0.1",
		"DB_PORT":    "3306",
		"DB_NAME":    "eventlock",
		"JWT_SECRET": "s3cret",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOCK_STORE", "")
	t.Setenv("LOCK_NEGATIVE_CACHE_SIZE", "")
	t.Setenv("FRONTEND_URL", "https://alumni.example.org/")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.LockStore != StoreMySQL {
		t.Errorf("LockStore = %q", cfg.LockStore)
	}
	if cfg.FrontendURL != "https://alumni.example.org" {
		t.Errorf("FrontendURL = %q", cfg.FrontendURL)
	}
	if cfg.LockDefaultExpiryDays != 30 || cfg.AccessTTLMin != 60 {
		t.Errorf("defaults = %d days, %d min", cfg.LockDefaultExpiryDays, cfg.AccessTTLMin)
	}
	if cfg.LockNegativeCacheSize != 4096 {
		t.Errorf("LockNegativeCacheSize = %d", cfg.LockNegativeCacheSize)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %q", cfg.CORSOrigins)
	}
}

func TestLoad_NegativeCacheDisabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOCK_NEGATIVE_CACHE_SIZE", "0")
	if n := Load().LockNegativeCacheSize; n >= 0 {
		t.Errorf("LockNegativeCacheSize = %d, want a disabled (negative) size", n)
	}
}

func TestLoad_MongoStore(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOCK_STORE", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB", "")

	cfg := Load()
	if cfg.LockStore != StoreMongo || cfg.MongoDB != "eventlock" {
		t.Errorf("store=%q db=%q", cfg.LockStore, cfg.MongoDB)
	}
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second {
		t.Errorf("bucket = %+v", rl)
	}
	if rl.TTL != 10*time.Second {
		t.Errorf("TTL = %v, want 5 refill intervals", rl.TTL)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "off")
	if envBool("X_FLAG", true) {
		t.Error("off should parse false")
	}
	t.Setenv("X_FLAG", "maybe")
	if !envBool("X_FLAG", true) {
		t.Error("unparseable value should fall back to the default")
	}
}

func TestLoad_MissingRequiredIsFatal(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	var got []string
	fatalf = func(format string, args ...interface{}) { got = append(got, fmt.Sprintf(format, args...)) }
	t.Cleanup(func() { fatalf = log.Fatalf })

	Load()
	if len(got) != 1 || got[0] != "missing required env var: JWT_SECRET" {
		t.Errorf("fatal messages = %q", got)
	}
}

func TestLoad_UnknownStoreIsFatal(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOCK_STORE", "postgres")

	var got int
	fatalf = func(string, ...interface{}) { got++ }
	t.Cleanup(func() { fatalf = log.Fatalf })

	Load()
	if got != 1 {
		t.Errorf("fatalf called %d times", got)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_KEY_STRATEGY", "bogus")
	t.Setenv("CACHE_TTL", "")

	cc := LoadCacheConfig()
	if !cc.Methods["GET"] || !cc.Methods["HEAD"] || cc.Methods["POST"] {
		t.Errorf("methods = %v", cc.Methods)
	}
	if cc.KeyStrategy != CacheKeyPathQuery || cc.TTL != 15*time.Second || cc.MaxBodyBytes != 256<<10 {
		t.Errorf("cache config = %+v", cc)
	}
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6379")

	if rc := LoadRedisConfig(); rc.Addr != "redis.internal:6379" {
		t.Errorf("addr = %q", rc.Addr)
	}
}
