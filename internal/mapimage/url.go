// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mapimage fetches static map images for cafe addresses and stores
// them on disk. Fetching is asynchronous: cafe writes enqueue a job and a
// worker pool downloads, validates, and saves the image.
package mapimage

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// DefaultEndpoint is the MapQuest static map API.
const DefaultEndpoint = "https://www.mapquestapi.com/staticmap/v5/map"

// BuildStaticMapURL builds the provider URL for a cafe's address.
// The location string is "address, city, state".
func BuildStaticMapURL(endpoint, apiKey, address, city, state string) string {
	location := fmt.Sprintf("%s,%s,%s", address, city, state)

	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("center", location)
	params.Set("size", "@2x")
	params.Set("zoom", "15")
	params.Set("locations", location)

	return endpoint + "?" + params.Encode()
}

// ImagePath returns the on-disk path for a cafe's map image.
func ImagePath(mapsDir string, cafeID int64) string {
	return filepath.Join(mapsDir, fmt.Sprintf("%d.jpg", cafeID))
}

// ImageURL returns the public URL for a cafe's map image.
func ImageURL(cafeID int64) string {
	return fmt.Sprintf("/static/maps/%d.jpg", cafeID)
}
