package main

import (
	"github.com/ariefcatur/mitra-storefront/internal/config"
	"github.com/ariefcatur/mitra-storefront/internal/postgres"
	"github.com/joho/godotenv"
	"log"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
