package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/invoice"
	"storefront/internal/payment"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	sessionrepo "storefront/internal/repository/session"
	userrepo "storefront/internal/repository/user"
	accountsvc "storefront/internal/service/account"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
	ordersvc "storefront/internal/service/order"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if cfg.UsesDefaultCSRFKey() {
		logger.Printf("warning: CSRF_KEY not set, using the public development key")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)
	sessionRepo := sessionrepo.NewPostgres(dbpool)

	var pages cache.PageCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		pages = cache.NewRedisCache(client, cfg.CatalogCacheTTL)
		logger.Printf("catalog cache enabled addr=%s", cfg.RedisAddr)
	}

	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.PayPalClientID != "" && cfg.PayPalSecret != "" {
		gateway, err = payment.NewPayPal(payment.PayPalConfig{
			ClientID:      cfg.PayPalClientID,
			Secret:        cfg.PayPalSecret,
			Mode:          cfg.PayPalMode,
			PublicBaseURL: cfg.PublicBaseURL,
			Timeout:       cfg.PaymentTimeout,
		}, logger)
		if err != nil {
			logger.Fatalf("init paypal: %v", err)
		}
	} else {
		logger.Printf("warning: PAYPAL_ID/PAYPAL_SECRET not set, checkout payments will fail")
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
		if err != nil {
			logger.Fatalf("init kafka producer: %v", err)
		}
		defer producer.Close()
		publisher = producer
	}

	invoices := invoice.New(cfg.InvoicesDir, logger)

	catalogService := catalogsvc.New(productRepo, pages, cfg.ItemsPerPage, logger)
	cartService := cartsvc.New(cartRepo, productRepo, orderRepo, logger)
	orderService := ordersvc.New(orderRepo, gateway, invoices, publisher, logger)
	accountService := accountsvc.New(userRepo, sessionRepo, cfg.SessionTTL, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Catalog:  catalogService,
		Carts:    cartService,
		Orders:   orderService,
		Accounts: accountService,
	}, httpserver.Options{
		CSRFKey:       cfg.CSRFKey,
		SecureCookies: cfg.SecureCookies,
		CORSOrigins:   cfg.CORSOrigins,
		SessionTTL:    cfg.SessionTTL,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
