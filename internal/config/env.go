// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/iptvcheck/internal/log"
)

// Environment variables consulted by Load.
const (
	EnvFFprobeBin = "IPTVCHECK_FFPROBE_BIN"
	EnvTimeout    = "IPTVCHECK_TIMEOUT"
	EnvWorkers    = "IPTVCHECK_WORKERS"
	EnvRate       = "IPTVCHECK_RATE"
	EnvStopOnFail = "IPTVCHECK_STOP_ON_FAIL"
	EnvLogLevel   = "LOG_LEVEL"

	// EnvColorsDisabled and EnvNoColor disable colored output when set to any value.
	EnvColorsDisabled = "ANSI_COLORS_DISABLED"
	EnvNoColor        = "NO_COLOR"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", i).
		Str("source", "environment").
		Msg("using environment variable")
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Float64("value", f).
		Str("source", "environment").
		Msg("using environment variable")
	return f
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Dur("value", d).
		Str("source", "environment").
		Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

func mergeEnv(cfg *Config) {
	cfg.Prober.Bin = ParseString(EnvFFprobeBin, cfg.Prober.Bin)
	cfg.Check.Timeout = ParseDuration(EnvTimeout, cfg.Check.Timeout)
	cfg.Check.Workers = ParseInt(EnvWorkers, cfg.Check.Workers)
	cfg.Check.Rate = ParseFloat(EnvRate, cfg.Check.Rate)
	cfg.Check.StopOnFail = ParseBool(EnvStopOnFail, cfg.Check.StopOnFail)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
}

// ColorsDisabledByEnv reports whether ANSI_COLORS_DISABLED or NO_COLOR is set.
func ColorsDisabledByEnv() bool {
	if _, ok := os.LookupEnv(EnvColorsDisabled); ok {
		return true
	}
	_, ok := os.LookupEnv(EnvNoColor)
	return ok
}

// ResolveColor decides whether output is colored. "auto" colors a terminal
// unless the environment opts out; "always" and "never" are unconditional.
func ResolveColor(mode string, terminal bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return terminal && !ColorsDisabledByEnv()
	}
}
