// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cafehub/internal/mapimage"
)

func TestCafeListRequiresLogin(t *testing.T) {
	app := newTestApp(t)

	resp := app.getNoRedirect(t, RouteCafes)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != RouteLogin {
		t.Errorf("Location = %q, want %q", loc, RouteLogin)
	}
}

func TestCafeListOrderedByName(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	app.addCafe(t, "Zeta Beans", "12 Folsom St", "sf")
	app.addCafe(t, "Alpha Roast", "99 Shattuck Ave", "berk")

	_, body := app.get(t, RouteCafes)
	alpha := strings.Index(body, "Alpha Roast")
	zeta := strings.Index(body, "Zeta Beans")
	if alpha == -1 || zeta == -1 {
		t.Fatalf("cafes missing from list (alpha=%d, zeta=%d)", alpha, zeta)
	}
	if alpha > zeta {
		t.Error("cafes not ordered by name")
	}
}

func TestCafeDetail(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Ritual Roasters", "1026 Valencia St", "sf")

	resp, body := app.get(t, detail)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Ritual Roasters") {
		t.Error("body missing cafe name")
	}
	if !strings.Contains(body, "San Francisco, CA") {
		t.Error("body missing city and state")
	}
	if !strings.Contains(body, "1026 Valencia St") {
		t.Error("body missing address")
	}
}

func TestCafeDetailNotFound(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "user", "secret-password", false)

	resp, body := app.get(t, "/cafes/9999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(body, "404") {
		t.Error("body missing 404 page")
	}
}

func TestCafeAddRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "user", "secret-password", false)

	resp := app.getNoRedirect(t, RouteCafesAdd)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != RouteCafes {
		t.Errorf("Location = %q, want %q", loc, RouteCafes)
	}

	post := app.postFormNoRedirect(t, RouteCafesAdd, url.Values{
		"name":      {"Sneaky Cafe"},
		"address":   {"1 Hack Way"},
		"city_code": {"sf"},
	})
	if post.StatusCode != http.StatusSeeOther {
		t.Fatalf("POST status = %d, want 303 redirect away", post.StatusCode)
	}

	var count int64
	if err := app.db.QueryRow(`SELECT COUNT(*) FROM cafes`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("cafe count = %d, want 0", count)
	}
}

func TestCafeAddRedirectsToDetailWithFlash(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	resp, body := app.postForm(t, RouteCafesAdd, url.Values{
		"name":        {"Four Barrel"},
		"description": {"**Great** espresso"},
		"address":     {"375 Valencia St"},
		"city_code":   {"sf"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Request.URL.Path, RouteCafes+"/") {
		t.Errorf("landed on %q, want cafe detail", resp.Request.URL.Path)
	}
	if !strings.Contains(body, "Four Barrel added!") {
		t.Error("body missing added flash")
	}
	// Markdown description is rendered and sanitized
	if !strings.Contains(body, "<strong>Great</strong>") {
		t.Error("description markdown not rendered")
	}
}

func TestCafeAddValidation(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	resp, body := app.postForm(t, RouteCafesAdd, url.Values{
		"name":      {""},
		"address":   {""},
		"city_code": {"atlantis"},
		"url":       {"not a url"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 re-render", resp.StatusCode)
	}
	for _, want := range []string{"Name is required", "Address is required", "Not a valid city", "Must be a valid URL"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestCafeEdit(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Old Name", "500 Divisadero St", "sf")

	resp, body := app.postForm(t, detail+"/edit", url.Values{
		"name":      {"New Name"},
		"address":   {"500 Divisadero St"},
		"city_code": {"sf"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Request.URL.Path != detail {
		t.Errorf("landed on %q, want %q", resp.Request.URL.Path, detail)
	}
	if !strings.Contains(body, "New Name edited!") {
		t.Error("body missing edited flash")
	}
	if !strings.Contains(body, "New Name") {
		t.Error("body missing new name")
	}
}

func TestCafeEditEmptyImageRevertsToDefault(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Sightglass", "270 7th St", "sf")

	// Set an explicit image, then clear it
	app.postForm(t, detail+"/edit", url.Values{
		"name":      {"Sightglass"},
		"address":   {"270 7th St"},
		"city_code": {"sf"},
		"image_url": {"https://example.com/photo.jpg"},
	})
	app.postForm(t, detail+"/edit", url.Values{
		"name":      {"Sightglass"},
		"address":   {"270 7th St"},
		"city_code": {"sf"},
		"image_url": {""},
	})

	var imageURL string
	if err := app.db.QueryRow(`SELECT image_url FROM cafes WHERE name = 'Sightglass'`).Scan(&imageURL); err != nil {
		t.Fatal(err)
	}
	if imageURL != "/static/images/default-cafe.png" {
		t.Errorf("image_url = %q, want default", imageURL)
	}
}

func TestCafeEditFormShowsEmptyForDefaultImage(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Blue Bottle", "66 Mint St", "sf")

	_, body := app.get(t, detail+"/edit")
	if strings.Contains(body, `name="image_url" value="/static/images/default-cafe.png"`) {
		t.Error("edit form shows the default image path instead of an empty field")
	}
}

func TestCafeDeleteRemovesMapImage(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Doomed Cafe", "1 Gone St", "oak")
	id := strings.TrimPrefix(detail, RouteCafes+"/")

	// Simulate a previously fetched map image
	mapPath := filepath.Join(app.mapsDir, id+".jpg")
	if err := os.WriteFile(mapPath, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	resp, body := app.postForm(t, detail+"/delete", url.Values{})
	if resp.Request.URL.Path != RouteCafes {
		t.Errorf("landed on %q, want %q", resp.Request.URL.Path, RouteCafes)
	}
	if !strings.Contains(body, "Doomed Cafe deleted.") {
		t.Error("body missing deleted flash")
	}

	if _, err := os.Stat(mapPath); !os.IsNotExist(err) {
		t.Error("map image still exists after delete")
	}

	var count int64
	if err := app.db.QueryRow(`SELECT COUNT(*) FROM cafes`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("cafe count = %d, want 0", count)
	}
}

// mapJPEG returns an encoded JPEG the dispatcher's validation accepts.
func mapJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// mapProvider is a stand-in static map endpoint recording the locations it
// was asked for.
type mapProvider struct {
	server *httptest.Server

	mu        sync.Mutex
	locations []string
}

func newMapProvider(t *testing.T) *mapProvider {
	t.Helper()

	p := &mapProvider{}
	fixture := mapJPEG(t)
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.locations = append(p.locations, r.URL.Query().Get("locations"))
		p.mu.Unlock()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(fixture)
	}))
	t.Cleanup(p.server.Close)
	return p
}

// count returns how many fetches were made for an address.
func (p *mapProvider) count(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, loc := range p.locations {
		if strings.HasPrefix(loc, address+",") {
			n++
		}
	}
	return n
}

// waitFor blocks until a fetch for the address arrives.
func (p *mapProvider) waitFor(t *testing.T, address string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p.count(address) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no map fetch for %q before deadline", address)
}

func TestCafeEditRefetchesMapOnlyWhenLocationChanges(t *testing.T) {
	provider := newMapProvider(t)

	app := newTestAppMaps(t, mapimage.Config{
		APIKey:   "test-key",
		Endpoint: provider.server.URL,
		Workers:  1, // sequential fetches keep queue ordering observable
	})
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Gate Cafe", "100 First St", "sf")
	provider.waitFor(t, "100 First St")

	// Name-only edit: address and city unchanged.
	resp := app.postFormNoRedirect(t, detail+"/edit", url.Values{
		"name":      {"Gate Cafe Annex"},
		"address":   {"100 First St"},
		"city_code": {"sf"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("name edit status = %d, want 303", resp.StatusCode)
	}

	// An address change queued behind it. The single worker drains the queue
	// in order, so once this fetch lands any earlier job has already hit the
	// provider.
	resp = app.postFormNoRedirect(t, detail+"/edit", url.Values{
		"name":      {"Gate Cafe Annex"},
		"address":   {"940 Market St"},
		"city_code": {"sf"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("address edit status = %d, want 303", resp.StatusCode)
	}
	provider.waitFor(t, "940 Market St")

	if got := provider.count("100 First St"); got != 1 {
		t.Errorf("fetches for the unchanged address = %d, want 1", got)
	}
	if got := provider.count("940 Market St"); got != 1 {
		t.Errorf("fetches for the new address = %d, want 1", got)
	}
}

func TestCafeDetailShowsMapWhenImageExists(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "admin", "secret-password", true)
	app.login(t, "admin", "secret-password")

	detail := app.addCafe(t, "Mapped Cafe", "3 Chart Ave", "sf")
	id := strings.TrimPrefix(detail, RouteCafes+"/")

	_, body := app.get(t, detail)
	if strings.Contains(body, "/static/maps/") {
		t.Error("detail references a map image before one was fetched")
	}

	if err := os.WriteFile(filepath.Join(app.mapsDir, id+".jpg"), []byte("jpeg bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	_, body = app.get(t, detail)
	var cafeID int64
	if err := app.db.QueryRow(`SELECT id FROM cafes WHERE name = 'Mapped Cafe'`).Scan(&cafeID); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, mapimage.ImageURL(cafeID)) {
		t.Error("detail missing map image URL")
	}
}
