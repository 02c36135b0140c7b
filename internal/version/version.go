// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version exposes the build metadata stamped into the cafehub
// binary.
package version

// Info is the version metadata set through -ldflags at build time. Local
// builds without ldflags report "dev" with an unknown commit.
type Info struct {
	Version   string // release tag, or "dev" for local builds
	GitCommit string // abbreviated commit hash
	BuildTime string // UTC build timestamp, RFC3339
}
