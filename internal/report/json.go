// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/playlist"
)

// Event names written by the JSON reporter.
const (
	EventChecking = "checking"
	EventVerdict  = "verdict"
)

// Event is one line of JSON reporter output.
type Event struct {
	Event       string    `json:"event"`
	Time        time.Time `json:"time"`
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	URI         string    `json:"uri"`
	Status      string    `json:"status,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	SegmentURI  string    `json:"segment_uri,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
}

// JSON writes one JSON object per line.
type JSON struct {
	enc     *json.Encoder
	verbose bool
	now     func() time.Time
}

// NewJSON returns a JSON lines reporter writing to w (os.Stdout when nil).
// Diagnostics are included only when verbose is set.
func NewJSON(w io.Writer, verbose bool) *JSON {
	if w == nil {
		w = os.Stdout
	}
	return &JSON{enc: json.NewEncoder(w), verbose: verbose, now: time.Now}
}

// Checking emits a "checking" event.
func (j *JSON) Checking(ch playlist.Channel) {
	j.write(Event{
		Event: EventChecking,
		Time:  j.now(),
		Index: ch.Index,
		Title: ch.Title,
		URI:   ch.URI,
	})
}

// Verdict emits a "verdict" event.
func (j *JSON) Verdict(v checker.Verdict) {
	ev := Event{
		Event:      EventVerdict,
		Time:       j.now(),
		Index:      v.Channel.Index,
		Title:      v.Channel.Title,
		URI:        v.Channel.URI,
		Status:     v.Status(),
		Stage:      string(v.Stage),
		SegmentURI: v.SegmentURI,
		ErrorKind:  string(checker.KindOf(v.Err)),
		DurationMS: v.Duration.Milliseconds(),
	}
	if v.Err != nil {
		ev.Error = v.Err.Error()
	}
	if j.verbose {
		ev.Diagnostics = v.Diagnostics
	}
	j.write(ev)
}

// Interrupted is a no-op; a consumer sees a checking event without verdict.
func (j *JSON) Interrupted() {}

func (j *JSON) write(ev Event) {
	if err := j.enc.Encode(ev); err != nil {
		logger := log.WithComponent("report")
		logger.Error().Err(err).Str(log.FieldEvent, ev.Event).Msg("write report event")
	}
}
