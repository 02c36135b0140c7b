// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"CAFEHUB_DB_PATH" envDefault:"./data/cafehub.db"`
	SessionSecret string `env:"CAFEHUB_SESSION_SECRET,required"`
	ServerHost    string `env:"CAFEHUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CAFEHUB_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CAFEHUB_ENV" envDefault:"development"`
	LogLevel      string `env:"CAFEHUB_LOG_LEVEL" envDefault:"info"`

	// Static map provider configuration
	MapQuestAPIKey string `env:"CAFEHUB_MAPQUEST_API_KEY"`
	MapsDir        string `env:"CAFEHUB_MAPS_DIR" envDefault:"./static/maps"`

	// Cache configuration
	RedisURL    string `env:"CAFEHUB_REDIS_URL"`                       // Optional Redis URL for the like-count cache
	CachePrefix string `env:"CAFEHUB_CACHE_PREFIX" envDefault:"cafehub:"` // Redis key prefix
	CacheTTL    int    `env:"CAFEHUB_CACHE_TTL" envDefault:"300"`      // Default cache TTL in seconds

	// GeoIP configuration
	GeoIPDBPath string `env:"CAFEHUB_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Seeding configuration
	DoSeed bool `env:"CAFEHUB_DO_SEED" envDefault:"false"` // Enable demo admin seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MapsEnabled returns true if the static map provider is configured.
func (c Config) MapsEnabled() bool {
	return c.MapQuestAPIKey != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CAFEHUB_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CAFEHUB_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CAFEHUB_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if !cfg.MapsEnabled() {
		slog.Warn("CAFEHUB_MAPQUEST_API_KEY is not set; static map images will not be fetched")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
