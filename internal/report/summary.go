// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/runner"
)

// SummaryDoc is the on-disk form of a run summary.
type SummaryDoc struct {
	RunID      string       `json:"run_id"`
	Playlist   string       `json:"playlist"`
	StopOnFail bool         `json:"stop_on_fail"`
	OK         bool         `json:"ok"`
	Total      int          `json:"total"`
	Checked    int          `json:"checked"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DurationMS int64        `json:"duration_ms"`
	Channels   []ChannelDoc `json:"channels"`
}

// ChannelDoc is one verdict in a SummaryDoc.
type ChannelDoc struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	URI         string   `json:"uri"`
	Status      string   `json:"status"`
	Stage       string   `json:"stage"`
	SegmentURI  string   `json:"segment_uri,omitempty"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Error       string   `json:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// NewSummaryDoc converts a runner summary.
func NewSummaryDoc(s runner.Summary) SummaryDoc {
	doc := SummaryDoc{
		RunID:      s.RunID,
		Playlist:   s.Playlist,
		StopOnFail: s.StopOnFail,
		OK:         s.OK,
		Total:      s.Total,
		Checked:    s.Checked,
		Passed:     s.Passed,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		DurationMS: s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
		Channels:   make([]ChannelDoc, 0, len(s.Verdicts)),
	}
	for _, v := range s.Verdicts {
		doc.Channels = append(doc.Channels, channelDoc(v))
	}
	return doc
}

func channelDoc(v checker.Verdict) ChannelDoc {
	c := ChannelDoc{
		Index:       v.Channel.Index,
		Title:       v.Channel.Title,
		URI:         v.Channel.URI,
		Status:      v.Status(),
		Stage:       string(v.Stage),
		SegmentURI:  v.SegmentURI,
		ErrorKind:   string(checker.KindOf(v.Err)),
		Diagnostics: v.Diagnostics,
		DurationMS:  v.Duration.Milliseconds(),
	}
	if v.Err != nil {
		c.Error = v.Err.Error()
	}
	return c
}

// WriteSummary atomically replaces path with the JSON summary of s.
func WriteSummary(path string, s runner.Summary) error {
	data, err := json.MarshalIndent(NewSummaryDoc(s), "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	data = append(data, '\n')

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending summary file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger := log.WithComponent("report")
			logger.Debug().Err(err).Msg("cleanup pending summary file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace summary file: %w", err)
	}
	logger := log.WithComponent("report")
	logger.Info().Str(log.FieldPath, path).Msg("summary written")
	return nil
}
