// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic and service layer functionality
// including event logging for audit trails.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mileusna/useragent"

	"cafehub/internal/geoip"
	"cafehub/internal/store"
	"cafehub/internal/util"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	geo     *geoip.Lookup
}

// NewEventService creates a new EventService. geo may be nil when country
// lookups are not configured.
func NewEventService(db *sql.DB, geo *geoip.Lookup) *EventService {
	return &EventService{
		queries: store.New(db),
		geo:     geo,
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    util.NullInt64FromPtr(userID),
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to log event: %v", err)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, store.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogCafeEvent logs a cafe-related event.
func (s *EventService) LogCafeEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, store.EventCategoryCafe, message, userID, ipAddress, metadata)
}

// LogUserEvent logs a user-related event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, store.EventCategoryUser, message, userID, ipAddress, metadata)
}

// LogMapsEvent logs a map-image event.
func (s *EventService) LogMapsEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, store.EventCategoryMaps, message, nil, "", metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, store.EventCategorySystem, message, nil, "", metadata)
}

// RequestMetadata builds event metadata from an HTTP request: parsed user
// agent and, when geoip is configured, the country of the client IP.
func (s *EventService) RequestMetadata(r *http.Request) map[string]any {
	metadata := map[string]any{}

	if uaString := r.UserAgent(); uaString != "" {
		ua := useragent.Parse(uaString)

		browser := ua.Name
		if browser == "" {
			browser = "Unknown"
		}
		os := ua.OS
		if os == "" {
			os = "Unknown"
		}

		var device string
		switch {
		case ua.Mobile:
			device = "mobile"
		case ua.Tablet:
			device = "tablet"
		case ua.Bot:
			device = "bot"
		default:
			device = "desktop"
		}

		metadata["browser"] = browser
		metadata["os"] = os
		metadata["device"] = device
	}

	if s.geo != nil {
		if country := s.geo.LookupCountry(ClientIP(r)); country != "" {
			metadata["country"] = country
		}
	}

	return metadata
}

// ClientIP strips the port from RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
