package main

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/config"
	"github.com/ariefcatur/mitra-storefront/internal/events"
	kafkax "github.com/ariefcatur/mitra-storefront/internal/kafka"
	"github.com/ariefcatur/mitra-storefront/internal/lifecycle"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/postgres"
	"github.com/ariefcatur/mitra-storefront/internal/redisx"
	"github.com/ariefcatur/mitra-storefront/internal/tracing"
	"github.com/joho/godotenv"
	"log"
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
	if cfg.StoreDriver != config.DriverPostgres {
		log.Fatalf("lifecycle consumer needs STORE_DRIVER=%s", config.DriverPostgres)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := cfg.ServiceName + "-lifecycle"
	shutdownTracing, err := tracing.Init(ctx, service, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis dedups redelivered events; required here.
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatalf("redis: %v", err)
	}

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	h := &lifecycle.Handler{
		Orders:  orders.NewService(postgres.New(db).Orders()),
		Cache:   redisx.NewCache(rdb),
		Events:  &events.Emitter{Pub: prod, Service: service},
		Service: service,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.LifecycleGroup, orders.TopicOrderStatusRequested, cfg.LifecycleWorkers)
	go func() {
		log.Printf("lifecycle consumer started: group=%s topic=%s workers=%d",
			cfg.LifecycleGroup, orders.TopicOrderStatusRequested, cfg.LifecycleWorkers)
		if err := cons.Start(ctx, h.HandleStatusRequested); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := shutdownTracing(ctx2); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
