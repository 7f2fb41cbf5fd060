// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for iptvcheck.
//
// Precedence, lowest first: built-in defaults, YAML file, environment,
// command line flags. Flags are applied by the CLI after Load returns.
package config
