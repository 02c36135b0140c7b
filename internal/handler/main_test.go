// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"cafehub/internal/geoip"
	"cafehub/internal/mapimage"
	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/service"
	"cafehub/internal/testutil"
	"cafehub/web"
)

// testApp wires the handlers into a router the way main does, backed by a
// throwaway database and an in-memory session store.
type testApp struct {
	db      *sql.DB
	sm      *scs.SessionManager
	maps    *mapimage.Dispatcher
	mapsDir string
	server  *httptest.Server
	client  *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	// No API key: Enqueue is a no-op, Remove and HasImage still work.
	return newTestAppMaps(t, mapimage.Config{})
}

// newTestAppMaps wires the app with a custom map dispatcher configuration.
// MapsDir is always replaced with a per-test temp dir; when the config
// carries an API key the dispatcher workers are started.
func newTestAppMaps(t *testing.T, mapCfg mapimage.Config) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := scs.New()
	sm.Lifetime = time.Hour

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	events := service.NewEventService(db, geoip.NewLookup())

	mapsDir := t.TempDir()
	mapCfg.MapsDir = mapsDir
	maps := mapimage.NewDispatcher(mapCfg, testutil.TestLogger(), events)
	if maps.Enabled() {
		ctx, cancel := context.WithCancel(context.Background())
		maps.Start(ctx)
		t.Cleanup(func() {
			maps.Stop()
			cancel()
		})
	}

	pageHandler := NewPageHandler(db, renderer)
	authHandler := NewAuthHandler(db, renderer, sm, events)
	cafeHandler := NewCafeHandler(db, renderer, events, maps, nil, pageHandler.NotFound)
	profileHandler := NewProfileHandler(db, renderer, events)
	likeAPIHandler := NewLikeAPIHandler(db, events, nil)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.OptionalLoadUser(sm, db))

	r.Get(RouteRoot, pageHandler.Home)
	r.Get(RouteSignup, authHandler.SignupForm)
	r.Post(RouteSignup, authHandler.Signup)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Post(RouteLogout, authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(sm))
		r.Get(RouteCafes, cafeHandler.List)
		r.Get(RouteCafesID, cafeHandler.Detail)
		r.Get(RouteProfile, profileHandler.Show)
		r.Get(RouteProfileEdit, profileHandler.EditForm)
		r.Post(RouteProfileEdit, profileHandler.Edit)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(sm))
		r.Get(RouteCafesAdd, cafeHandler.AddForm)
		r.Post(RouteCafesAdd, cafeHandler.Add)
		r.Get(RouteCafesIDEdit, cafeHandler.EditForm)
		r.Post(RouteCafesIDEdit, cafeHandler.Edit)
		r.Post(RouteCafesIDDelete, cafeHandler.Delete)
	})

	r.Get(RouteAPILikes, likeAPIHandler.Status)
	r.Post(RouteAPILike, likeAPIHandler.Like)
	r.Post(RouteAPIUnlike, likeAPIHandler.Unlike)

	r.NotFound(pageHandler.NotFound)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}

	return &testApp{
		db:      db,
		sm:      sm,
		maps:    maps,
		mapsDir: mapsDir,
		server:  server,
		client:  &http.Client{Jar: jar},
	}
}

// get fetches a path following redirects and returns the final response body.
func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

// postForm posts form values following redirects and returns the final
// response body.
func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

// postFormNoRedirect posts form values without following the redirect.
func (a *testApp) postFormNoRedirect(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	client := &http.Client{
		Jar: a.client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.PostForm(a.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp
}

// getNoRedirect fetches a path without following the redirect.
func (a *testApp) getNoRedirect(t *testing.T, path string) *http.Response {
	t.Helper()
	client := &http.Client{
		Jar: a.client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp
}

// postJSON posts a JSON body and returns the response with its body.
func (a *testApp) postJSON(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Post(a.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}

// signupUser registers a user through the signup form, leaving the session
// logged in.
func (a *testApp) signupUser(t *testing.T, username, password string, admin bool) {
	t.Helper()

	resp, _ := a.postForm(t, RouteSignup, url.Values{
		"username":   {username},
		"first_name": {"Test"},
		"last_name":  {"User"},
		"email":      {username + "@example.com"},
		"password":   {password},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup %s: status %d", username, resp.StatusCode)
	}

	if admin {
		if _, err := a.db.Exec(`UPDATE users SET admin = 1 WHERE username = ?`, username); err != nil {
			t.Fatalf("promoting %s to admin: %v", username, err)
		}
	}
}

// login authenticates through the login form.
func (a *testApp) login(t *testing.T, username, password string) {
	t.Helper()
	resp, _ := a.postForm(t, RouteLogin, url.Values{
		"username": {username},
		"password": {password},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
}

// logout ends the current session.
func (a *testApp) logout(t *testing.T) {
	t.Helper()
	a.postForm(t, RouteLogout, url.Values{})
}

// addCafe creates a cafe through the admin form and returns its detail path.
// The caller must already be logged in as an admin.
func (a *testApp) addCafe(t *testing.T, name, address, cityCode string) string {
	t.Helper()

	resp := a.postFormNoRedirect(t, RouteCafesAdd, url.Values{
		"name":      {name},
		"address":   {address},
		"city_code": {cityCode},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("add cafe %s: status %d", name, resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, RouteCafes+"/") {
		t.Fatalf("add cafe redirect = %q, want cafe detail path", loc)
	}
	return loc
}

func (a *testApp) userCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("counting users: %v", err)
	}
	return count
}
