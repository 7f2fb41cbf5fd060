// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/iptvcheck/internal/validate"
)

const maxWorkers = 64

var proberLogLevels = []string{"quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace"}

// Validate checks cfg and returns an error wrapping ErrInvalidConfig that
// lists every problem found.
func Validate(cfg Config) error {
	v := validate.New()

	v.PositiveDuration("playlist.fetchTimeout", cfg.Playlist.FetchTimeout)

	v.PositiveDuration("check.timeout", cfg.Check.Timeout)
	v.Range("check.workers", cfg.Check.Workers, 1, maxWorkers)
	v.NonNegativeFloat("check.rate", cfg.Check.Rate)

	v.NotEmpty("prober.bin", cfg.Prober.Bin)
	v.OneOf("prober.logLevel", cfg.Prober.LogLevel, proberLogLevels)
	v.PositiveDuration("prober.killGrace", cfg.Prober.KillGrace)
	for i, arg := range cfg.Prober.ExtraArgs {
		if arg == "-i" {
			v.AddError(fmt.Sprintf("prober.extraArgs[%d]", i), "input is always passed last and must not be set here", arg)
		}
	}

	v.Regexp("noise.extraPatterns", cfg.Noise.ExtraPatterns)

	v.OneOf("output.format", cfg.Output.Format, []string{FormatText, FormatJSON})
	v.OneOf("output.color", cfg.Output.Color, []string{ColorAuto, ColorAlways, ColorNever})
	v.OutputFile("output.reportFile", cfg.Output.ReportFile)
	v.OutputFile("output.metricsFile", cfg.Output.MetricsFile)

	if _, err := validate.ParseLogLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		v.AddError("log.level", fmt.Sprintf("must be one of %v", validate.LogLevels), cfg.Log.Level)
	}
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
