// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checker

import (
	"errors"
	"fmt"

	"github.com/ManuGH/iptvcheck/internal/playlist"
)

var (
	// ErrCanceled is returned by Check when the caller's context ends. It is
	// the only error Check returns; every other failure becomes a verdict.
	ErrCanceled = errors.New("check canceled")
	// ErrTimeout marks a check that exceeded its per-channel deadline.
	ErrTimeout = errors.New("channel check timed out")
	// ErrNoSegments marks a sub-playlist without segments.
	ErrNoSegments = playlist.ErrNoSegments
	// ErrPanic marks a stage that panicked.
	ErrPanic = errors.New("check panicked")
)

// Kind classifies a check failure.
type Kind string

const (
	KindRetrieval      Kind = "retrieval"
	KindProbe          Kind = "probe"
	KindClassification Kind = "classification"
)

// CheckError is the error recorded in a FAILED verdict.
type CheckError struct {
	Kind Kind
	URI  string // channel or segment URI the failing stage worked on
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.URI, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a *CheckError.
func KindOf(err error) Kind {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// panicError carries the recovered value and stack for verbose output.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%v: %v\n%s", ErrPanic, e.value, e.stack)
}

func (e *panicError) Unwrap() error { return ErrPanic }
