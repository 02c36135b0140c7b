// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/mail"
	"net/url"
	"strings"
)

// Field length limits for user-supplied form values.
const (
	maxCafeNameLen = 80
	maxUsernameLen = 30
	maxNameLen     = 30
	maxEmailLen    = 50
	minPasswordLen = 6
	maxPasswordLen = 128
)

// formErrors maps field names to validation messages for re-rendering forms.
type formErrors map[string]string

// Valid reports whether no validation errors were recorded.
func (e formErrors) Valid() bool { return len(e) == 0 }

// add records the first error for a field; later errors for the same field
// are dropped so the user sees one message at a time.
func (e formErrors) add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

// isValidURL reports whether s parses as an absolute http(s) URL.
func isValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isValidEmail reports whether s parses as a bare e-mail address.
func isValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// CafeForm holds add/edit cafe form values.
type CafeForm struct {
	Name        string
	Description string
	URL         string
	Address     string
	CityCode    string
	ImageURL    string
}

// cafeFormFromRequest pulls cafe form values out of a parsed request.
func cafeFormFromRequest(r *http.Request) CafeForm {
	return CafeForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		URL:         strings.TrimSpace(r.PostFormValue("url")),
		Address:     strings.TrimSpace(r.PostFormValue("address")),
		CityCode:    strings.TrimSpace(r.PostFormValue("city_code")),
		ImageURL:    strings.TrimSpace(r.PostFormValue("image_url")),
	}
}

// Validate checks the form against the allowed city codes.
func (f CafeForm) Validate(cityCodes map[string]bool) formErrors {
	errs := make(formErrors)
	if f.Name == "" {
		errs.add("name", "Name is required")
	} else if len(f.Name) > maxCafeNameLen {
		errs.add("name", "Name must be 80 characters or fewer")
	}
	if f.URL != "" && !isValidURL(f.URL) {
		errs.add("url", "Must be a valid URL")
	}
	if f.Address == "" {
		errs.add("address", "Address is required")
	}
	if !cityCodes[f.CityCode] {
		errs.add("city_code", "Not a valid city")
	}
	if f.ImageURL != "" && !isValidURL(f.ImageURL) {
		errs.add("image_url", "Must be a valid URL")
	}
	return errs
}

// SignupForm holds signup form values.
type SignupForm struct {
	Username    string
	FirstName   string
	LastName    string
	Description string
	Email       string
	Password    string
	ImageURL    string
}

func signupFormFromRequest(r *http.Request) SignupForm {
	return SignupForm{
		Username:    strings.TrimSpace(r.PostFormValue("username")),
		FirstName:   strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:    strings.TrimSpace(r.PostFormValue("last_name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Password:    r.PostFormValue("password"),
		ImageURL:    strings.TrimSpace(r.PostFormValue("image_url")),
	}
}

// Validate checks the signup form fields.
func (f SignupForm) Validate() formErrors {
	errs := make(formErrors)
	if f.Username == "" {
		errs.add("username", "Username is required")
	} else if len(f.Username) > maxUsernameLen {
		errs.add("username", "Username must be 30 characters or fewer")
	}
	if f.FirstName == "" {
		errs.add("first_name", "First name is required")
	} else if len(f.FirstName) > maxNameLen {
		errs.add("first_name", "First name must be 30 characters or fewer")
	}
	if f.LastName == "" {
		errs.add("last_name", "Last name is required")
	} else if len(f.LastName) > maxNameLen {
		errs.add("last_name", "Last name must be 30 characters or fewer")
	}
	if f.Email == "" || !isValidEmail(f.Email) {
		errs.add("email", "Must be a valid e-mail address")
	} else if len(f.Email) > maxEmailLen {
		errs.add("email", "E-mail must be 50 characters or fewer")
	}
	if len(f.Password) < minPasswordLen {
		errs.add("password", "Password must be at least 6 characters")
	} else if len(f.Password) > maxPasswordLen {
		errs.add("password", "Password is too long")
	}
	if f.ImageURL != "" && !isValidURL(f.ImageURL) {
		errs.add("image_url", "Must be a valid URL")
	}
	return errs
}

// LoginForm holds login form values.
type LoginForm struct {
	Username string
	Password string
}

func loginFormFromRequest(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

// Validate checks that both credentials were supplied.
func (f LoginForm) Validate() formErrors {
	errs := make(formErrors)
	if f.Username == "" {
		errs.add("username", "Username is required")
	}
	if f.Password == "" {
		errs.add("password", "Password is required")
	}
	return errs
}

// ProfileForm holds profile edit form values. Username is immutable and
// therefore not part of the form.
type ProfileForm struct {
	FirstName   string
	LastName    string
	Description string
	Email       string
	ImageURL    string
}

func profileFormFromRequest(r *http.Request) ProfileForm {
	return ProfileForm{
		FirstName:   strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:    strings.TrimSpace(r.PostFormValue("last_name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		ImageURL:    strings.TrimSpace(r.PostFormValue("image_url")),
	}
}

// Validate checks the profile form fields.
func (f ProfileForm) Validate() formErrors {
	errs := make(formErrors)
	if f.FirstName == "" {
		errs.add("first_name", "First name is required")
	} else if len(f.FirstName) > maxNameLen {
		errs.add("first_name", "First name must be 30 characters or fewer")
	}
	if f.LastName == "" {
		errs.add("last_name", "Last name is required")
	} else if len(f.LastName) > maxNameLen {
		errs.add("last_name", "Last name must be 30 characters or fewer")
	}
	if f.Email == "" || !isValidEmail(f.Email) {
		errs.add("email", "Must be a valid e-mail address")
	} else if len(f.Email) > maxEmailLen {
		errs.add("email", "E-mail must be 50 characters or fewer")
	}
	if f.ImageURL != "" && !isValidURL(f.ImageURL) {
		errs.add("image_url", "Must be a valid URL")
	}
	return errs
}
