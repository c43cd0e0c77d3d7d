// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the marketsite API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsite/internal/apiclient"
	"marketsite/internal/cache"
	"marketsite/internal/cart"
	"marketsite/internal/config"
	"marketsite/internal/database"
	"marketsite/internal/handlers"
	"marketsite/internal/inventory"
	"marketsite/internal/metrics"
	"marketsite/internal/middleware"
	"marketsite/internal/pricing"
	"marketsite/internal/router"
	"marketsite/internal/session"
	"marketsite/internal/storage"
	"marketsite/internal/store"
	"marketsite/internal/validation"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	slog.SetDefault(newLogger(cfg))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"cart_max_per_item", cfg.CartPolicy.MaxPerItem,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(context.Background(), cfg.DSN(), database.PoolOptions{MaxOpen: cfg.DBMaxConns})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if _, err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(context.Background(), db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, carts and the document cache).
	valkeyClient, err := cache.ConnectValkey(context.Background(), cache.ValkeyOptions{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
		PoolSize: cfg.ValkeyPoolSize,
	})
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient)
	m := metrics.New()
	v := validation.New()

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	documentStore := store.NewDocumentStore(db)
	mediaStore := store.NewMediaStore(db)
	productStore := store.NewProductStore(db)
	affiliateStore := store.NewAffiliateStore(db)
	subscriberStore := store.NewSubscriberStore(db)

	// Connect to S3-compatible object storage. Without it new image blocks
	// are refused.
	var images handlers.ImageStore
	storageClient, err := storage.New(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3BucketPublic,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		images = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	// Stock and rates come from remote services when configured.
	var stock cart.StockChecker = inventory.NewChecker(productStore, m)
	if cfg.StockURL != "" {
		stock = inventory.Counted(apiclient.New(cfg.StockURL), m)
		slog.Info("using remote stock service", "url", cfg.StockURL)
	}
	var rates pricing.Source = store.NewRateStore(db)
	if cfg.PricingURL != "" {
		rates = apiclient.New(cfg.PricingURL)
		slog.Info("using remote rates service", "url", cfg.PricingURL)
	}

	cartService := cart.NewService(cart.NewValkeyStore(valkeyClient, cfg.CartTTL), stock, cfg.CartPolicy, slog.Default())
	docCache := cache.NewDocumentCache(valkeyClient, cfg.DocumentCacheTTL)

	// Signup windows live in Valkey so every replica enforces one limit.
	signupLimiter := middleware.NewRateLimiter(cache.NewRateCounter(valkeyClient), "signup", cfg.SignupRateLimit, time.Minute)

	secureCookies := !cfg.IsDev()
	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Metrics:       m,
		Documents:     handlers.NewDocuments(documentStore, mediaStore, images, docCache, v, m),
		Cart:          handlers.NewCart(cartService, productStore, rates, v, m, secureCookies),
		Catalogue:     handlers.NewCatalogue(productStore, stock, rates, v),
		Marketing:     handlers.NewMarketing(affiliateStore, subscriberStore, v),
		Profile:       handlers.NewProfile(userStore, v),
		SignupLimiter: signupLimiter,
		HSTS:          cfg.IsProduction(),
	})

	// Create the HTTP server. WriteTimeout is left at zero because cart
	// event streams stay open; handlers bound their own work by context.
	// Shutdown cancels the base context so open event streams return.
	baseCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// newLogger builds the process logger from the configured format.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
