package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/alumnirel/eventlock/internal/config"     // Internal config loader
	"github.com/alumnirel/eventlock/internal/database"   // MySQL and MongoDB connections
	"github.com/alumnirel/eventlock/internal/handler"    // HTTP handlers
	"github.com/alumnirel/eventlock/internal/lock"       // Lock lifecycle service
	"github.com/alumnirel/eventlock/internal/middleware" // Lock gate, rate limit and cache middleware
	"github.com/alumnirel/eventlock/internal/queue"      // Audit publisher and consumer
	"github.com/alumnirel/eventlock/internal/repository" // Storage
	"github.com/alumnirel/eventlock/internal/router"     // Route registration
	"github.com/alumnirel/eventlock/internal/service"    // Scoped public reads
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	var mongoClient *mongo.Client
	var store repository.LockStore
	switch cfg.LockStore {
	case config.StoreMongo:
		client, mdb, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		mongoClient = client
		repo := repository.NewMongoLockRepo(mdb, repository.DefaultLockCollection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		store = repo
	case config.StoreMemory:
		log.Printf("lock store: memory (locks are lost on restart)")
		store = repository.NewMemoryLockStore()
	default:
		store = repository.NewLockRepo(db)
	}

	audit := config.LoadAuditConfig()
	var auditor lock.Auditor = queue.Discard{}
	if audit.Enabled {
		pub := queue.NewPublisher(queue.BrokerURL())
		defer pub.Close()
		auditor = pub
	}
	if audit.ConsumerEnabled {
		go func() {
			if err := queue.StartAuditConsumer(ctx, queue.BrokerURL(), audit.LogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit-consumer: stopped: %v", err)
			}
		}()
	}

	events := repository.NewEventRepo(db)
	admins := repository.NewAdminRepo(db)
	locks := lock.NewService(store, events, admins, lock.Options{
		FrontendURL:       cfg.FrontendURL,
		DefaultExpiryDays: cfg.LockDefaultExpiryDays,
		NegativeCacheSize: cfg.LockNegativeCacheSize,
		Audit:             auditor,
	})

	// Redis is optional; a nil client turns the limiter and cache into pass-throughs.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, middleware.HeaderLockToken},
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, admins))
	router.RegisterLocks(e, handler.NewLockHandler(locks), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterPublic(e, handler.NewPublicEventHandler(service.NewPublicEventService(events)),
		middleware.LockAware(locks), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, lock store=%s)", addr, cfg.Env, cfg.LockStore)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
}
