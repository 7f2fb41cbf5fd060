// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package noise classifies prober diagnostic lines into real errors and
// known-benign encoder chatter.
package noise

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ResetSentinel is the SGR reset sequence a color-forced prober (or the
// terminal reporter) may leave on a line of its own.
const ResetSentinel = "\x1b[0m"

// ErrInvalidPattern is returned by New when an extra pattern does not compile.
var ErrInvalidPattern = errors.New("invalid noise pattern")

// builtinPatterns are warnings real-world encoders emit constantly without the
// stream being broken. Matched unanchored against the ANSI-stripped line.
var builtinPatterns = []string{
	`Last message repeated`,
	`mmco: unref short failure`,
	`number of reference frames .+ exceeds max`,
}

var builtin = mustCompile(builtinPatterns)

// Filter recognises benign diagnostic lines. The zero value is not usable; use
// Default or New.
type Filter struct {
	patterns []*regexp.Regexp
}

// Default returns a filter holding only the built-in patterns.
func Default() *Filter {
	return &Filter{patterns: builtin}
}

// New returns a filter with the built-in patterns plus extra ones.
func New(extra ...string) (*Filter, error) {
	patterns := make([]*regexp.Regexp, 0, len(builtin)+len(extra))
	patterns = append(patterns, builtin...)
	for _, p := range extra {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		patterns = append(patterns, re)
	}
	return &Filter{patterns: patterns}, nil
}

// Patterns returns the source of every active pattern, built-ins first.
func (f *Filter) Patterns() []string {
	out := make([]string, len(f.patterns))
	for i, re := range f.patterns {
		out[i] = re.String()
	}
	return out
}

// IsNoise reports whether line carries no real error: it is empty, is the
// reset sentinel, or matches a pattern. Whitespace or escape-only lines are
// not empty and count as errors. Color codes are stripped for pattern
// matching only.
func (f *Filter) IsNoise(line string) bool {
	if line == "" || line == ResetSentinel {
		return true
	}
	plain := ansi.Strip(line)
	for _, re := range f.patterns {
		if re.MatchString(plain) {
			return true
		}
	}
	return false
}

// Residual returns the lines that are not noise, in input order.
func (f *Filter) Residual(lines []string) []string {
	var out []string
	for _, line := range lines {
		if f.IsNoise(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// IsNoise classifies line against the built-in patterns only.
func IsNoise(line string) bool {
	return Default().IsNoise(line)
}

func mustCompile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
