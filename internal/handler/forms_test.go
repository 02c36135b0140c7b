// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"strings"
	"testing"
)

var testCityCodes = map[string]bool{"sf": true, "berk": true}

func TestCafeFormValidate(t *testing.T) {
	valid := CafeForm{
		Name:     "Four Barrel",
		Address:  "375 Valencia St",
		CityCode: "sf",
	}

	t.Run("valid minimal", func(t *testing.T) {
		if errs := valid.Validate(testCityCodes); !errs.Valid() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("valid with optional fields", func(t *testing.T) {
		f := valid
		f.Description = "Good beans"
		f.URL = "https://fourbarrel.example.com"
		f.ImageURL = "http://img.example.com/fb.jpg"
		if errs := f.Validate(testCityCodes); !errs.Valid() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	tests := []struct {
		name   string
		mutate func(*CafeForm)
		field  string
	}{
		{"missing name", func(f *CafeForm) { f.Name = "" }, "name"},
		{"name too long", func(f *CafeForm) { f.Name = strings.Repeat("x", 81) }, "name"},
		{"missing address", func(f *CafeForm) { f.Address = "" }, "address"},
		{"unknown city", func(f *CafeForm) { f.CityCode = "atlantis" }, "city_code"},
		{"empty city", func(f *CafeForm) { f.CityCode = "" }, "city_code"},
		{"bad url", func(f *CafeForm) { f.URL = "not a url" }, "url"},
		{"relative url", func(f *CafeForm) { f.URL = "/just/a/path" }, "url"},
		{"bad scheme", func(f *CafeForm) { f.URL = "ftp://example.com" }, "url"},
		{"bad image url", func(f *CafeForm) { f.ImageURL = "nope" }, "image_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			errs := f.Validate(testCityCodes)
			if errs.Valid() {
				t.Fatal("expected validation error")
			}
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestSignupFormValidate(t *testing.T) {
	valid := SignupForm{
		Username:  "maya",
		FirstName: "Maya",
		LastName:  "Song",
		Email:     "maya@example.com",
		Password:  "secret-password",
	}

	t.Run("valid", func(t *testing.T) {
		if errs := valid.Validate(); !errs.Valid() {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	tests := []struct {
		name   string
		mutate func(*SignupForm)
		field  string
	}{
		{"missing username", func(f *SignupForm) { f.Username = "" }, "username"},
		{"username too long", func(f *SignupForm) { f.Username = strings.Repeat("x", 31) }, "username"},
		{"missing first name", func(f *SignupForm) { f.FirstName = "" }, "first_name"},
		{"missing last name", func(f *SignupForm) { f.LastName = "" }, "last_name"},
		{"missing email", func(f *SignupForm) { f.Email = "" }, "email"},
		{"bad email", func(f *SignupForm) { f.Email = "nope" }, "email"},
		{"email with display name", func(f *SignupForm) { f.Email = "Maya <maya@example.com>" }, "email"},
		{"short password", func(f *SignupForm) { f.Password = "abc" }, "password"},
		{"bad image url", func(f *SignupForm) { f.ImageURL = "nope" }, "image_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			errs := f.Validate()
			if errs.Valid() {
				t.Fatal("expected validation error")
			}
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestProfileFormValidate(t *testing.T) {
	valid := ProfileForm{
		FirstName: "Maya",
		LastName:  "Song",
		Email:     "maya@example.com",
	}

	if errs := valid.Validate(); !errs.Valid() {
		t.Errorf("unexpected errors: %v", errs)
	}

	f := valid
	f.Email = "broken@"
	if errs := f.Validate(); errs.Valid() {
		t.Error("expected email error")
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"//example.com", false},
		{"example.com", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isValidURL(tt.url); got != tt.want {
			t.Errorf("isValidURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFormErrorsFirstWins(t *testing.T) {
	errs := make(formErrors)
	errs.add("name", "first")
	errs.add("name", "second")
	if errs["name"] != "first" {
		t.Errorf("errs[name] = %q, want %q", errs["name"], "first")
	}
}
