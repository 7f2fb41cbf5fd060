// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package probe runs the external media inspector (ffprobe) against a single
// segment URI and returns the diagnostic lines it wrote to stderr.
//
// The exit status is secondary: diagnostics flushed before a late failure are
// still returned alongside the error so callers can show them.
package probe
