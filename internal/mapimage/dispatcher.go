// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mapimage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"cafehub/internal/imaging"
	"cafehub/internal/service"
	"cafehub/internal/store"
)

// Fetch configuration constants
const (
	MaxAttempts    = 3                // Maximum number of fetch attempts per job
	InitialBackoff = 2 * time.Second  // Initial backoff delay
	MaxBackoff     = time.Minute      // Maximum backoff delay
	RequestTimeout = 15 * time.Second // HTTP request timeout
	MaxImageBytes  = 5 * 1024 * 1024  // Maximum image size to accept (5MB)
	UserAgent      = "CafeHub/1.0"    // User-Agent header value
)

// providerRateLimit caps requests to the map provider at 2/s with a small
// burst, which stays well inside the free-tier quota.
var providerRateLimit = rate.Limit(2)

// Job is a queued map fetch for one cafe.
type Job struct {
	CafeID  int64
	Address string
	City    string
	State   string
}

// Config holds dispatcher configuration.
type Config struct {
	APIKey  string
	MapsDir string
	Workers int

	// Endpoint overrides the provider URL. Defaults to DefaultEndpoint.
	Endpoint string
}

// Dispatcher downloads map images through a bounded worker pool.
type Dispatcher struct {
	cfg     Config
	logger  *slog.Logger
	events  *service.EventService
	client  *http.Client
	limiter *rate.Limiter
	queue   chan *Job
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDispatcher creates a map image dispatcher. events may be nil.
func NewDispatcher(cfg Config, logger *slog.Logger, events *service.EventService) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cfg:    cfg,
		logger: logger,
		events: events,
		client: &http.Client{
			Timeout: RequestTimeout,
		},
		limiter: rate.NewLimiter(providerRateLimit, 4),
		queue:   make(chan *Job, 100),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
}

// Enabled reports whether an API key is configured. Without a key the
// dispatcher accepts jobs and drops them, so callers don't need to care.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.APIKey != ""
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting map image dispatcher", "workers", d.workers, "enabled", d.Enabled())

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping map image dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("map image dispatcher stopped")
}

// Enqueue queues a map fetch for a cafe. Non-blocking: if the queue is full
// the job is dropped and the nightly reconcile picks the cafe up later.
func (d *Dispatcher) Enqueue(cafe *store.CafeWithCity) {
	if !d.Enabled() {
		return
	}

	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		d.logger.Warn("map dispatcher not running, dropping job", "cafe_id", cafe.ID)
		return
	}

	job := &Job{
		CafeID:  cafe.ID,
		Address: cafe.Address,
		City:    cafe.CityName,
		State:   cafe.CityState,
	}

	select {
	case d.queue <- job:
		d.logger.Debug("map fetch queued", "cafe_id", job.CafeID)
	default:
		d.logger.Warn("map fetch queue full, dropping job", "cafe_id", job.CafeID)
	}
}

// Remove deletes a cafe's map image from disk. Missing files are not an
// error.
func (d *Dispatcher) Remove(cafeID int64) error {
	err := os.Remove(ImagePath(d.cfg.MapsDir, cafeID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing map image: %w", err)
	}
	return nil
}

// HasImage reports whether a map image exists on disk for a cafe.
func (d *Dispatcher) HasImage(cafeID int64) bool {
	_, err := os.Stat(ImagePath(d.cfg.MapsDir, cafeID))
	return err == nil
}

// worker processes queued jobs until stopped.
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("map worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			d.logger.Debug("map worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			d.logger.Debug("map worker context cancelled", "worker_id", id)
			return
		case job := <-d.queue:
			d.processJob(ctx, job)
		}
	}
}

// processJob fetches a map with retries and exponential backoff. A failed
// job never touches an existing image on disk.
func (d *Dispatcher) processJob(ctx context.Context, job *Job) {
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err := d.fetchAndSave(ctx, job)
		if err == nil {
			d.logger.Info("map image saved", "cafe_id", job.CafeID, "attempt", attempt)
			return
		}
		lastErr = err

		if attempt < MaxAttempts {
			backoff := calculateBackoff(attempt)
			d.logger.Warn("map fetch failed, will retry",
				"cafe_id", job.CafeID,
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", err)

			select {
			case <-time.After(backoff):
			case <-d.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}

	d.logger.Error("map fetch failed permanently",
		"category", store.EventCategoryMaps,
		"cafe_id", job.CafeID,
		"attempts", MaxAttempts,
		"error", lastErr)

	if d.events != nil {
		_ = d.events.LogMapsEvent(context.Background(), store.EventLevelError,
			"map image fetch failed", map[string]any{
				"cafe_id":  job.CafeID,
				"attempts": MaxAttempts,
				"error":    lastErr.Error(),
			})
	}
}

// fetchAndSave downloads, validates, and atomically writes one map image.
func (d *Dispatcher) fetchAndSave(ctx context.Context, job *Job) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	mapURL := BuildStaticMapURL(d.cfg.Endpoint, d.cfg.APIKey, job.Address, job.City, job.State)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mapURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// Reject error pages and truncated data before touching disk
	result, err := imaging.Normalize(body)
	if err != nil {
		return fmt.Errorf("validating image: %w", err)
	}

	if err := os.MkdirAll(d.cfg.MapsDir, 0755); err != nil {
		return fmt.Errorf("creating maps dir: %w", err)
	}

	// Write to a temp file, then rename: readers never see a partial image
	// and a failure leaves any previous image in place.
	tmpPath := filepath.Join(d.cfg.MapsDir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, result.Data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	finalPath := ImagePath(d.cfg.MapsDir, job.CafeID)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming map image: %w", err)
	}

	return nil
}

// calculateBackoff returns the exponential backoff for a given attempt.
// Attempt 1 = 2s, attempt 2 = 4s, attempt 3 = 8s, capped at MaxBackoff.
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	backoff := time.Duration(float64(InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}

	return backoff
}
