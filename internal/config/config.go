// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"marketsite/internal/cart"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host      string
	Port      string
	Env       string // "development", "production", "testing"
	LogFormat string // "text" or "json"; production defaults to json

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int
	ValkeyPoolSize int

	// S3-compatible object storage for block images
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3BucketPublic string
	S3PublicURL    string

	// PricingURL is the base URL of the service that serves /api/rates.
	// Empty means rates are read from the local database.
	PricingURL string

	// StockURL is the base URL of the service that serves
	// /api/stock/check. Empty means stock is checked in-process.
	StockURL string

	// Cart behaviour
	CartPolicy cart.Policy
	CartTTL    time.Duration // 0 keeps carts until emptied

	// DocumentCacheTTL bounds how long a document read stays in Valkey.
	DocumentCacheTTL time.Duration

	// SignupRateLimit caps affiliate and newsletter form posts per client
	// per minute.
	SignupRateLimit int
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "marketsite"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "marketsite"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3BucketPublic: envOrDefault("S3_BUCKET_PUBLIC", "marketsite-public"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		PricingURL: os.Getenv("PRICING_URL"),
		StockURL:   os.Getenv("STOCK_URL"),
	}

	defaultFormat := "text"
	if cfg.Env == "production" {
		defaultFormat = "json"
	}
	cfg.LogFormat = envOrDefault("LOG_FORMAT", defaultFormat)

	var err error
	policy := cart.DefaultPolicy
	if policy.MaxPerItem, err = envInt("CART_MAX_PER_ITEM", policy.MaxPerItem); err != nil {
		return nil, err
	}
	if policy.Scope, err = cart.ParseScope(os.Getenv("CART_CAP_SCOPE")); err != nil {
		return nil, fmt.Errorf("CART_CAP_SCOPE: %w", err)
	}
	if policy.Precedence, err = cart.ParsePrecedence(os.Getenv("CART_PRECEDENCE")); err != nil {
		return nil, fmt.Errorf("CART_PRECEDENCE: %w", err)
	}
	cfg.CartPolicy = policy

	if cfg.DBMaxConns, err = envInt("POSTGRES_MAX_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.ValkeyDB, err = envInt("VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ValkeyPoolSize, err = envInt("VALKEY_POOL_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.SignupRateLimit, err = envInt("SIGNUP_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	if cfg.CartTTL, err = envDuration("CART_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.DocumentCacheTTL, err = envDuration("DOCUMENT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped, so
// passwords may contain '@', '/' or '%'.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Addr returns the server listen address, bracketing IPv6 hosts.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsProduction reports whether the server runs behind production TLS.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
