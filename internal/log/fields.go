// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Channel / segment fields
	FieldChannel      = "channel"
	FieldChannelIndex = "channel_index"
	FieldChannelURI   = "channel_uri"
	FieldSegmentURI   = "segment_uri"
	FieldStage        = "stage"

	// Process fields
	FieldPID      = "pid"
	FieldBinary   = "binary"
	FieldExitCode = "exit_code"

	// Path fields
	FieldPath         = "path"
	FieldPlaylistPath = "playlist_path"
)
