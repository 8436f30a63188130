package main

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/actor"
	"github.com/ariefcatur/mitra-storefront/internal/config"
	"github.com/ariefcatur/mitra-storefront/internal/events"
	"github.com/ariefcatur/mitra-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/mitra-storefront/internal/kafka"
	"github.com/ariefcatur/mitra-storefront/internal/memstore"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/postgres"
	"github.com/ariefcatur/mitra-storefront/internal/redisx"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/ariefcatur/mitra-storefront/internal/tracing"
	"github.com/joho/godotenv"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	// Stores
	var (
		orderStore interface {
			orders.Store
			shipping.Publisher
		}
		salesStore sales.Store
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		ms := memstore.New()
		orderStore, salesStore = ms.Orders(), ms.Sales()
		log.Println("using in-memory store, data is lost on exit")
	default:
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		pg := postgres.New(db)
		orderStore, salesStore = pg.Orders(), pg.Sales()
	}

	// Redis is optional; without it every lookup goes to the store.
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := redisx.NewCache(rdb)
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Printf("redis unavailable, running without cache: %v", err)
		cache = nil
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	limited, err := httpx.InitLimiter(cfg.CheckoutQPS)
	if err != nil {
		log.Fatalf("limiter: %v", err)
	}

	router := httpx.NewRouter()
	api := &httpx.API{
		Orders:   orders.NewService(orderStore),
		Sales:    sales.NewLedger(salesStore),
		Settings: orderStore,
		Cache:    cache,
		Events:   &events.Emitter{Pub: prod, Service: cfg.ServiceName},
		Tokens:   actor.Tokens{Secret: []byte(cfg.JWTSecret), Issuer: cfg.ServiceName},
		Limited:  limited,
	}
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("HTTP listening at %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // flush pending events
	cancel()
	prod.WaitClosed()
	if err := shutdownTracing(ctx2); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
