// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn wraps failures to start the prober process.
	ErrSpawn = errors.New("prober spawn failed")
	// ErrDecode is returned when the prober's stderr is not valid UTF-8.
	ErrDecode = errors.New("prober output is not valid UTF-8")
	// ErrBinaryNotFound is returned by CheckBinary.
	ErrBinaryNotFound = errors.New("prober binary not found")
)

// ExitError reports a non-zero prober exit.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("prober exited with status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }
