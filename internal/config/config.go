package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strings"  // strings normalises list and enum values

    "github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Lock store backends selectable through LOCK_STORE.
const (
    StoreMySQL  = "mysql"
    StoreMongo  = "mongo"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Events and admins always live in MySQL; the
// lock records go to the store named by LOCK_STORE.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // MySQL username
    DBPass       string // MySQL password (optional)
    DBHost       string // MySQL host address
    DBPort       string // MySQL port number
    DBName       string // MySQL database name
    JWTSecret    string // secret used to sign admin JWTs
    AccessTTLMin int    // admin access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost, used when provisioning admin passwords

    FrontendURL           string   // base of the shareable lock links
    LockStore             string   // mysql | mongo | memory
    MongoURI              string   // connection string when LockStore is mongo
    MongoDB               string   // database name when LockStore is mongo
    LockDefaultExpiryDays int      // lifetime of a lock when the request omits one
    LockNegativeCacheSize int      // LRU capacity for unknown tokens; 0 disables (stored as -1)
    CORSOrigins           []string // allowed browser origins
}

// fatalf ends the process on invalid configuration.
var fatalf = log.Fatalf

// LoadDotEnv reads .env from the working directory.  A missing file is
// not an error; variables already present in the environment win.
func LoadDotEnv() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    store := strings.ToLower(envStr("LOCK_STORE", StoreMySQL))
    cfg := Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"),
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
        BcryptCost:   envInt("BCRYPT_COST", 12),

        FrontendURL:           strings.TrimRight(envStr("FRONTEND_URL", "http://localhost:5173"), "/"),
        LockStore:             store,
        LockDefaultExpiryDays: envInt("LOCK_DEFAULT_EXPIRY_DAYS", 30),
        LockNegativeCacheSize: envInt("LOCK_NEGATIVE_CACHE_SIZE", 4096),
        CORSOrigins:           splitList(envStr("CORS_ORIGINS", "*")),
    }
    switch store {
    case StoreMongo:
        cfg.MongoURI = must("MONGO_URI")
        cfg.MongoDB = envStr("MONGO_DB", "eventlock")
    case StoreMySQL, StoreMemory:
    default:
        fatalf("invalid LOCK_STORE %q (want mysql, mongo or memory)", store)
    }
    if cfg.LockNegativeCacheSize <= 0 {
        cfg.LockNegativeCacheSize = -1
    }
    if cfg.LockDefaultExpiryDays < 1 {
        fatalf("invalid LOCK_DEFAULT_EXPIRY_DAYS: %d", cfg.LockDefaultExpiryDays)
    }
    return cfg
}
