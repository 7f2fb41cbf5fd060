// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"errors"
	"fmt"
)

var (
	// ErrNotChannelList is returned when the top-level document is an HLS master
	// playlist (variant streams) instead of a list of channels.
	ErrNotChannelList = errors.New("playlist is not a channel list")
	// ErrNoSegments is returned when a channel's media playlist holds no segments.
	ErrNoSegments = errors.New("media playlist has no segments")
	// ErrNestedMaster is returned when a master playlist's variant is itself a master playlist.
	ErrNestedMaster = errors.New("variant resolves to another master playlist")
	// ErrNotM3U is returned when a fetched body does not start with #EXTM3U.
	ErrNotM3U = errors.New("not an M3U playlist")
	// ErrNoVariants is returned for a master playlist without usable variants.
	ErrNoVariants = errors.New("master playlist has no variants")
)

// Channel is one entry of the top-level playlist.
type Channel struct {
	Index int    // zero-based position in document order
	Title string // display title from #EXTINF
	URI   string // absolute URI of the channel's media playlist
}

// Playlist is the ordered channel list of one document.
type Playlist struct {
	Source   string // path or URL the document was read from
	Channels []Channel
}

// Len returns the number of channels.
func (p Playlist) Len() int { return len(p.Channels) }

// Segment is one media chunk of a channel's live playlist.
type Segment struct {
	URI      string
	Sequence uint64
	Duration float64
}

// Media is a fetched channel sub-playlist. VariantURI is set when the channel
// URI pointed to a master playlist and a variant was followed.
type Media struct {
	URI        string
	VariantURI string
	Segments   []Segment
}

// Last returns the most recent segment.
func (m Media) Last() (Segment, error) {
	if len(m.Segments) == 0 {
		return Segment{}, fmt.Errorf("%w: %s", ErrNoSegments, m.effectiveURI())
	}
	return m.Segments[len(m.Segments)-1], nil
}

func (m Media) effectiveURI() string {
	if m.VariantURI != "" {
		return m.VariantURI
	}
	return m.URI
}

// HTTPError reports a non-200 answer while fetching a playlist.
type HTTPError struct {
	URI        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s (%s)", e.StatusCode, e.Status, e.URI)
}
