package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server behind the verify limiter and the
// public read cache.
type RedisConfig struct {
    Addr          string // REDIS_ADDR, or REDIS_HOST + REDIS_PORT
    Password      string
    DB            int
    TLS           bool
    SkipTLSVerify bool // local testing only
}

func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Addr:          addr,
        Password:      envStr("REDIS_PASSWORD", ""),
        DB:            envInt("REDIS_DB", 0),
        TLS:           envBool("REDIS_TLS", false),
        SkipTLSVerify: envBool("REDIS_TLS_SKIP_VERIFY", false),
    }
}

// NewRedisClient connects and pings with a short timeout.  It returns
// nil when the server is unreachable; the limiter and the cache then
// pass requests through.
func NewRedisClient(rc RedisConfig) *redis.Client {
    opts := &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB}
    if rc.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: rc.SkipTLSVerify}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
