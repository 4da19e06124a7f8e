package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/seed"
)

func main() {
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger), userrepo.NewPostgres(pool, logger)); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		removed, err := cache.NewRedisCache(client, cfg.CatalogCacheTTL).Flush(ctx)
		if err != nil {
			logger.Printf("flush catalog cache: %v (cached pages expire within %s)", err, cfg.CatalogCacheTTL)
		} else {
			logger.Printf("catalog cache flushed pages=%d", removed)
		}
	}

	logger.Printf("seed applied demo_user=%s", seed.DemoEmail)
}
