// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/iptvcheck/internal/platform/httpx"
	"github.com/ManuGH/iptvcheck/internal/probe"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the complete runtime configuration.
type Config struct {
	Playlist PlaylistConfig `yaml:"playlist"`
	Check    CheckConfig    `yaml:"check"`
	Prober   ProberConfig   `yaml:"prober"`
	Noise    NoiseConfig    `yaml:"noise"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// PlaylistConfig controls playlist decoding and sub-playlist fetches.
type PlaylistConfig struct {
	// Lenient accepts top-level documents the strict decoder rejects.
	Lenient      bool          `yaml:"lenient"`
	UserAgent    string        `yaml:"userAgent"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
}

// CheckConfig controls the run policy.
type CheckConfig struct {
	StopOnFail bool          `yaml:"stopOnFail"`
	Timeout    time.Duration `yaml:"timeout"` // per channel
	Workers    int           `yaml:"workers"`
	Rate       float64       `yaml:"rate"` // check starts per second, 0 = unlimited
}

// ProberConfig configures the ffprobe child.
type ProberConfig struct {
	Bin       string        `yaml:"bin"`
	LogLevel  string        `yaml:"logLevel"`
	ExtraArgs []string      `yaml:"extraArgs"`
	KillGrace time.Duration `yaml:"killGrace"`
}

// NoiseConfig extends the built-in noise table.
type NoiseConfig struct {
	ExtraPatterns []string `yaml:"extraPatterns"`
}

// OutputConfig controls reporting.
type OutputConfig struct {
	Format      string `yaml:"format"`
	Color       string `yaml:"color"`
	Verbose     bool   `yaml:"verbose"`
	ReportFile  string `yaml:"reportFile"`
	MetricsFile string `yaml:"metricsFile"`
}

// LogConfig configures the diagnostic logger (stderr).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|console
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Playlist: PlaylistConfig{
			UserAgent:    httpx.DefaultUserAgent,
			FetchTimeout: 15 * time.Second,
		},
		Check: CheckConfig{
			Timeout: 60 * time.Second,
			Workers: 1,
		},
		Prober: ProberConfig{
			Bin:       probe.DefaultBin,
			LogLevel:  probe.DefaultLogLevel,
			KillGrace: 2 * time.Second,
		},
		Output: OutputConfig{
			Format: FormatText,
			Color:  ColorAuto,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "json",
		},
	}
}

// ProbeOptions maps the prober section onto probe.Options. forceColor is
// decided by the caller from the resolved color mode and verbosity.
func (c Config) ProbeOptions(forceColor bool) probe.Options {
	return probe.Options{
		Bin:        c.Prober.Bin,
		LogLevel:   c.Prober.LogLevel,
		ExtraArgs:  c.Prober.ExtraArgs,
		ForceColor: forceColor,
		KillGrace:  c.Prober.KillGrace,
	}
}
