// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestSignupLogsUserIn(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm(t, RouteSignup, url.Values{
		"username":   {"maya"},
		"first_name": {"Maya"},
		"last_name":  {"Reyes"},
		"email":      {"maya@example.com"},
		"password":   {"secret-password"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after redirect", resp.StatusCode)
	}
	if got := resp.Request.URL.Path; got != RouteCafes {
		t.Errorf("landed on %q, want %q", got, RouteCafes)
	}
	if !strings.Contains(body, msgSignedUp) {
		t.Errorf("body missing flash %q", msgSignedUp)
	}
	// Nav should show the logged-in username
	if !strings.Contains(body, "maya") {
		t.Error("body missing username in nav")
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "taken", "secret-password", false)
	app.logout(t)

	before := app.userCount(t)

	resp, body := app.postForm(t, RouteSignup, url.Values{
		"username":   {"taken"},
		"first_name": {"Other"},
		"last_name":  {"Person"},
		"email":      {"other@example.com"},
		"password":   {"another-password"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 re-render", resp.StatusCode)
	}
	if !strings.Contains(body, msgUsernameTaken) {
		t.Errorf("body missing %q", msgUsernameTaken)
	}
	// The submitted values are preserved in the re-rendered form
	if !strings.Contains(body, `value="Other"`) {
		t.Error("re-rendered form lost submitted first name")
	}

	if after := app.userCount(t); after != before {
		t.Errorf("user count changed from %d to %d", before, after)
	}
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t)
	before := app.userCount(t)

	resp, body := app.postForm(t, RouteSignup, url.Values{
		"username":   {"shortpw"},
		"first_name": {"Short"},
		"last_name":  {"Password"},
		"email":      {"not-an-email"},
		"password":   {"abc"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 re-render", resp.StatusCode)
	}
	if !strings.Contains(body, "Password must be at least 6 characters") {
		t.Error("body missing password error")
	}
	if !strings.Contains(body, "Must be a valid e-mail address") {
		t.Error("body missing email error")
	}

	if after := app.userCount(t); after != before {
		t.Errorf("user count changed from %d to %d", before, after)
	}
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "casey", "secret-password", false)
	app.logout(t)

	resp, body := app.postForm(t, RouteLogin, url.Values{
		"username": {"casey"},
		"password": {"secret-password"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	if got := resp.Request.URL.Path; got != RouteCafes {
		t.Errorf("landed on %q, want %q", got, RouteCafes)
	}
	if !strings.Contains(body, "Hello, casey!") {
		t.Error("body missing greeting flash")
	}

	resp, body = app.postForm(t, RouteLogout, url.Values{})
	if got := resp.Request.URL.Path; got != RouteLogin {
		t.Errorf("logout landed on %q, want %q", got, RouteLogin)
	}
	if !strings.Contains(body, msgLoggedOut) {
		t.Errorf("body missing flash %q", msgLoggedOut)
	}

	// Session is gone: protected pages redirect to login
	redirect := app.getNoRedirect(t, RouteCafes)
	if redirect.StatusCode != http.StatusSeeOther {
		t.Errorf("GET /cafes after logout: status = %d, want 303", redirect.StatusCode)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "casey", "secret-password", false)
	app.logout(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "casey", "wrong-password"},
		{"unknown user", "nobody", "secret-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.postForm(t, RouteLogin, url.Values{
				"username": {tt.username},
				"password": {tt.password},
			})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200 re-render", resp.StatusCode)
			}
			if !strings.Contains(body, msgInvalidCreds) {
				t.Errorf("body missing %q", msgInvalidCreds)
			}
		})
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm(t, RouteLogout, url.Values{})
	if got := resp.Request.URL.Path; got != RouteRoot {
		t.Errorf("landed on %q, want %q", got, RouteRoot)
	}
	if !strings.Contains(body, "Access unauthorized.") {
		t.Error("body missing unauthorized flash")
	}
}

func TestLoginFormRedirectsWhenAuthenticated(t *testing.T) {
	app := newTestApp(t)
	app.signupUser(t, "casey", "secret-password", false)

	resp := app.getNoRedirect(t, RouteLogin)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != RouteCafes {
		t.Errorf("Location = %q, want %q", loc, RouteCafes)
	}
}
