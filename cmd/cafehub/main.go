// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command cafehub runs the cafe directory web application.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"cafehub/internal/cache"
	"cafehub/internal/config"
	"cafehub/internal/geoip"
	"cafehub/internal/handler"
	"cafehub/internal/logging"
	"cafehub/internal/mapimage"
	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/scheduler"
	"cafehub/internal/service"
	"cafehub/internal/session"
	"cafehub/internal/store"
	"cafehub/internal/version"
	"cafehub/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "CafeHub - cafe directory\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_DB_PATH            SQLite database path (default: ./data/cafehub.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_MAPQUEST_API_KEY   Static map provider key (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_MAPS_DIR           Fetched map image directory (default: ./static/maps)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_REDIS_URL          Redis URL for the like-count cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CAFEHUB_GEOIP_DB_PATH      GeoLite2 country database path (optional)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("cafehub %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Seed reference data; demo users only when explicitly enabled
	if err := store.SeedCities(ctx, db); err != nil {
		return fmt.Errorf("seeding cities: %w", err)
	}
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		slog.Info("demo data seeded")
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Like-count cache: Redis when configured, in-process memory otherwise
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	var likeCache cache.Cache
	if cfg.UseRedisCache() {
		redisCache, err := cache.NewRedisCache(cache.RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.CachePrefix,
			DefaultTTL: cacheTTL,
		})
		if err != nil {
			slog.Warn("redis unavailable, falling back to memory cache", "error", err)
			likeCache = cache.NewMemoryCache(cacheTTL)
		} else {
			slog.Info("cache initialized", "backend", "redis", "url", cfg.RedisURL)
			likeCache = redisCache
		}
	} else {
		likeCache = cache.NewMemoryCache(cacheTTL)
		slog.Info("cache initialized", "backend", "memory")
	}
	defer func() {
		if err := likeCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	likeCounts := cache.NewLikeCounts(likeCache, cacheTTL)

	// GeoIP country lookups for the audit log (optional)
	geo := geoip.NewLookup()
	if cfg.GeoIPEnabled() {
		if err := geo.Init(cfg.GeoIPDBPath); err != nil {
			slog.Warn("geoip unavailable", "error", err)
		} else {
			slog.Info("geoip initialized", "path", cfg.GeoIPDBPath)
		}
	}
	defer func() { _ = geo.Close() }()

	eventService := service.NewEventService(db, geo)

	// Template renderer over the embedded template tree
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Static map image fetcher
	maps := mapimage.NewDispatcher(mapimage.Config{
		APIKey:  cfg.MapQuestAPIKey,
		MapsDir: cfg.MapsDir,
	}, logger, eventService)
	maps.Start(ctx)
	defer maps.Stop()
	if maps.Enabled() {
		slog.Info("map image dispatcher started", "dir", cfg.MapsDir)
	} else {
		slog.Info("map image fetching disabled: no API key configured")
	}

	sched := scheduler.New(db, maps, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Handlers
	pageHandler := handler.NewPageHandler(db, renderer)
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, eventService)
	cafeHandler := handler.NewCafeHandler(db, renderer, eventService, maps, likeCounts, pageHandler.NotFound)
	profileHandler := handler.NewProfileHandler(db, renderer, eventService)
	likeAPIHandler := handler.NewLikeAPIHandler(db, eventService, likeCounts)
	healthHandler := handler.NewHealthHandler(db, cfg.MapsDir, versionInfo)

	// Router and middleware stack
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)

	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.SkipCSRF(handler.RouteAPILike, handler.RouteAPIUnlike))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))
	r.Use(middleware.OptionalLoadUser(sessionManager, db))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	requireLogin := middleware.RequireLogin(sessionManager)
	requireAdmin := middleware.RequireAdmin(sessionManager)

	// Public routes
	r.Get(handler.RouteRoot, pageHandler.Home)
	r.Get(handler.RouteSignup, authHandler.SignupForm)
	r.Post(handler.RouteSignup, authHandler.Signup)
	r.Get(handler.RouteLogin, authHandler.LoginForm)
	r.Post(handler.RouteLogin, authHandler.Login)
	r.Post(handler.RouteLogout, authHandler.Logout)
	r.Get(handler.RouteHealthz, healthHandler.Health)

	// Logged-in routes
	r.Group(func(r chi.Router) {
		r.Use(requireLogin)
		r.Get(handler.RouteCafes, cafeHandler.List)
		r.Get(handler.RouteCafesID, cafeHandler.Detail)
		r.Get(handler.RouteProfile, profileHandler.Show)
		r.Get(handler.RouteProfileEdit, profileHandler.EditForm)
		r.Post(handler.RouteProfileEdit, profileHandler.Edit)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get(handler.RouteCafesAdd, cafeHandler.AddForm)
		r.Post(handler.RouteCafesAdd, cafeHandler.Add)
		r.Get(handler.RouteCafesIDEdit, cafeHandler.EditForm)
		r.Post(handler.RouteCafesIDEdit, cafeHandler.Edit)
		r.Post(handler.RouteCafesIDDelete, cafeHandler.Delete)
	})

	// Likes API: session-authenticated, answers JSON errors instead of redirects
	r.Get(handler.RouteAPILikes, likeAPIHandler.Status)
	r.Post(handler.RouteAPILike, likeAPIHandler.Like)
	r.Post(handler.RouteAPIUnlike, likeAPIHandler.Unlike)

	// Embedded static assets, with fetched map images overlaid from disk
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))
	mapServer := http.StripPrefix("/static/maps/", http.FileServer(http.Dir(cfg.MapsDir)))
	r.Get("/static/maps/*", func(w http.ResponseWriter, req *http.Request) {
		mapServer.ServeHTTP(w, req)
	})
	r.Get("/static/*", func(w http.ResponseWriter, req *http.Request) {
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, req)
	})

	r.NotFound(pageHandler.NotFound)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
