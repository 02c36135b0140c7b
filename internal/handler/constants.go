// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the web UI and the
// likes JSON API.
package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSignup is the signup route.
	RouteSignup = "/signup"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteCafes is the cafe list route.
	RouteCafes = "/cafes"
	// RouteCafesAdd is the add-cafe route.
	RouteCafesAdd = "/cafes/add"
	// RouteCafesID is the cafe detail route pattern.
	RouteCafesID = "/cafes/{id}"
	// RouteCafesIDEdit is the edit-cafe route pattern.
	RouteCafesIDEdit = "/cafes/{id}/edit"
	// RouteCafesIDDelete is the delete-cafe route pattern.
	RouteCafesIDDelete = "/cafes/{id}/delete"
	// RouteProfile is the own-profile route.
	RouteProfile = "/profile"
	// RouteProfileEdit is the edit-profile route.
	RouteProfileEdit = "/profile/edit"
	// RouteAPILikes is the like-status API route.
	RouteAPILikes = "/api/likes"
	// RouteAPILike is the add-like API route.
	RouteAPILike = "/api/like"
	// RouteAPIUnlike is the remove-like API route.
	RouteAPIUnlike = "/api/unlike"
	// RouteHealthz is the liveness probe route.
	RouteHealthz = "/healthz"
)

// Flash message constants. The exact wording is part of the UI contract;
// the templates and tests match on these strings.
const (
	msgSignedUp        = "You are signed up and logged in."
	msgUsernameTaken   = "Username already taken"
	msgInvalidCreds    = "Invalid credentials"
	msgLoggedOut       = "You've been successfully logged out!"
	msgProfileEdited   = "Profile edited."
	msgInvalidFormData = "Invalid form data"
)

// Flash types map onto the alert styles in the base layout.
const (
	flashTypeSuccess = "success"
	flashTypeError   = "error"
	flashTypeInfo    = "info"
)
