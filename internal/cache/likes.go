// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// LikeCounts caches per-cafe like counts. Counts are invalidated on every
// like and unlike, so a miss falls through to the database.
type LikeCounts struct {
	cache Cache
	ttl   time.Duration
}

// NewLikeCounts wraps a cache backend for like-count lookups.
func NewLikeCounts(cache Cache, ttl time.Duration) *LikeCounts {
	return &LikeCounts{cache: cache, ttl: ttl}
}

func likeCountKey(cafeID int64) string {
	return fmt.Sprintf("likes:cafe:%d", cafeID)
}

// Get returns the cached count for a cafe, or ErrCacheMiss.
func (l *LikeCounts) Get(ctx context.Context, cafeID int64) (int64, error) {
	data, err := l.cache.Get(ctx, likeCountKey(cafeID))
	if err != nil {
		return 0, err
	}

	count, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Corrupt entry; drop it and report a miss.
		_ = l.cache.Delete(ctx, likeCountKey(cafeID))
		return 0, ErrCacheMiss
	}
	return count, nil
}

// Set stores the count for a cafe.
func (l *LikeCounts) Set(ctx context.Context, cafeID, count int64) error {
	return l.cache.Set(ctx, likeCountKey(cafeID), []byte(strconv.FormatInt(count, 10)), l.ttl)
}

// Invalidate drops the cached count for a cafe.
func (l *LikeCounts) Invalidate(ctx context.Context, cafeID int64) error {
	return l.cache.Delete(ctx, likeCountKey(cafeID))
}
