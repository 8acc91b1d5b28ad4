package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/staffsync/staffsync/libs/config"
	"github.com/staffsync/staffsync/libs/db"
	"github.com/staffsync/staffsync/libs/httpx"
	"github.com/staffsync/staffsync/libs/lookup"
	otelx "github.com/staffsync/staffsync/libs/otel"
	"github.com/staffsync/staffsync/libs/runtime"
	"github.com/staffsync/staffsync/libs/transport"
	"github.com/staffsync/staffsync/services/company-service/companysync"
	svcconfig "github.com/staffsync/staffsync/services/company-service/internal/config"
	"github.com/staffsync/staffsync/services/company-service/internal/handlers"
	"github.com/staffsync/staffsync/services/company-service/internal/storage"
)

func main() {
	src := config.New()
	cfg, err := svcconfig.Load(src)
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFrom(src, cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		store   companysync.Store
		dbCheck runtime.ReadyCheck
	)
	switch cfg.StoreDriver {
	case svcconfig.StorePostgres:
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.DatabaseURL, storage.Migrations, storage.MigrationsDir); err != nil {
				logger.Error("db migration failed", "err", err)
				os.Exit(1)
			}
		}
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = storage.NewRepository(pool)
		dbCheck = runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)}
	default:
		logger.Warn("using in-memory company store")
		store = companysync.NewMemoryStore()
	}

	bus, busCheck, err := transport.Open(cfg.Bus, logger)
	if err != nil {
		logger.Error("event bus setup failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = bus.Close() }()

	var lookupOpts []lookup.Option
	var redisCheck runtime.ReadyCheck
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		cache := lookup.NewRedisCache(rdb)
		lookupOpts = append(lookupOpts, lookup.WithCache(cache))
		redisCheck = runtime.ReadyCheck{Name: "redis", Check: cache.Ping}
	}
	employees := lookup.New(cfg.Lookup, logger, lookupOpts...)

	producer := companysync.NewProducer(store, bus, logger, companysync.ProducerOptions{
		ClearMembersOnDelete: cfg.DeleteClearsMembers,
	})
	companysync.NewConsumer(store, logger).Register(bus)
	go func() {
		if err := bus.Run(ctx); err != nil {
			logger.Error("event consumer stopped", "err", err)
		}
	}()

	mux := runtime.NewBaseMuxWithReady(dbCheck, busCheck, redisCheck)
	handlers.New(store, producer, employees, logger).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithTracing("company-service"),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
