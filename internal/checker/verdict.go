// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checker

import (
	"time"

	"github.com/ManuGH/iptvcheck/internal/playlist"
)

// Stage is the last state a check reached.
//
//	pending -> fetching -> probing -> classifying -> {OK | FAILED}
type Stage string

const (
	StagePending     Stage = "pending"
	StageFetching    Stage = "fetching"
	StageProbing     Stage = "probing"
	StageClassifying Stage = "classifying"
)

// Verdict is the outcome of one channel check.
type Verdict struct {
	Channel playlist.Channel
	OK      bool
	// Stage is where the check ended; for OK verdicts always StageClassifying.
	Stage      Stage
	SegmentURI string
	// Diagnostics holds the non-noise prober lines in emission order.
	Diagnostics []string
	// Err is set for failures other than residual diagnostics.
	Err      error
	Duration time.Duration
}

// Status returns the label shown to the operator.
func (v Verdict) Status() string {
	if v.OK {
		return "OK"
	}
	return "FAILED"
}
