package main

import (
	"context"
	"flag"
	"os"
	"time"

	"gomarketplace/configs"
	"gomarketplace/configs/loader/dotEnvLoader"
	"gomarketplace/internal/app/cartApp"
	"gomarketplace/internal/domain"
	"gomarketplace/internal/usecase"
	"gomarketplace/pkg/logger"
)

// cartseed fills the configured storage with a sample cart.
func main() {
	products := flag.Int("products", 5, "number of distinct products")
	quantity := flag.Int("quantity", 2, "quantity of each product")
	flag.String("env", "dev", "Environment type")
	flag.Parse()

	envLoader := dotEnvLoader.DotEnvLoader{Files: []string{".env"}}
	cfg := configs.MustLoad(envLoader)
	log := logger.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	kv, closeKV, err := cartApp.NewKVStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeKV(ctx)

	store := usecase.NewCartStore(kv, log, usecase.WithConfig(cfg.Cart))
	if err := store.Initialize(ctx); err != nil {
		log.Error("failed to initialize cart store", "error", err)
		os.Exit(1)
	}

	var last *usecase.Completion
	for i := 1; i <= *products; i++ {
		product := domain.CreateTestProduct(i)
		for q := 0; q < *quantity; q++ {
			last = store.AddToCart(product)
		}
	}
	if last != nil {
		if err := last.Wait(ctx); err != nil {
			log.Error("failed to persist cart", "error", err)
		}
	}
	if err := store.Close(ctx); err != nil {
		log.Error("failed to close cart store", "error", err)
		os.Exit(1)
	}

	count, _ := store.Count()
	total, _ := store.Total()
	log.Info("cart seeded", "key", cfg.Cart.Key, "count", count, "total", total)
}
