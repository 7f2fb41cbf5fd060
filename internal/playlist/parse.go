// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grafov/m3u8"
)

// cnIDAttr matches the provider specific cn-id attribute some panels inject
// into #EXTINF. It breaks the duration field, so it is cut before decoding.
var cnIDAttr = regexp.MustCompile(` cn-id=.+,`)

// Normalize rewrites every " cn-id=<value>," token to ",".
func Normalize(data []byte) []byte {
	return cnIDAttr.ReplaceAll(data, []byte(","))
}

// ParseOptions controls top-level decoding.
type ParseOptions struct {
	// Lenient accepts #EXTINF lines whose duration field carries extra
	// attributes (tvg-id=... and friends). The title is taken after the first comma.
	Lenient bool
}

// Load reads, normalizes and parses the top-level playlist at path.
func Load(path string, opts ParseOptions) (Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Playlist{}, fmt.Errorf("read playlist: %w", err)
	}
	base, err := fileBase(path)
	if err != nil {
		return Playlist{}, err
	}
	pl, err := Parse(Normalize(data), base, opts)
	if err != nil {
		return Playlist{}, fmt.Errorf("parse playlist %s: %w", path, err)
	}
	pl.Source = path
	return pl, nil
}

// Parse decodes an already normalized top-level playlist. Relative channel
// URIs are resolved against base; base may be nil when all entries are absolute.
func Parse(data []byte, base *url.URL, opts ParseOptions) (Playlist, error) {
	if !bytes.Contains(data, []byte("#EXTINF")) && !hasURILine(data) {
		// Header-only document: a valid, empty channel list.
		return Playlist{}, nil
	}

	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), !opts.Lenient)
	if err != nil {
		return Playlist{}, err
	}
	if listType != m3u8.MEDIA {
		return Playlist{}, ErrNotChannelList
	}
	media, ok := p.(*m3u8.MediaPlaylist)
	if !ok {
		return Playlist{}, ErrNotChannelList
	}

	var out Playlist
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		uri, err := Resolve(base, seg.URI)
		if err != nil {
			return Playlist{}, err
		}
		out.Channels = append(out.Channels, Channel{
			Index: len(out.Channels),
			Title: strings.TrimSpace(seg.Title),
			URI:   uri,
		})
	}
	return out, nil
}

// Resolve turns ref into an absolute URI relative to base.
func Resolve(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == nil {
		return "", fmt.Errorf("relative uri %q without base", ref)
	}
	return base.ResolveReference(u).String(), nil
}

func fileBase(path string) (*url.URL, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve playlist path: %w", err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

func hasURILine(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] != '#' {
			return true
		}
	}
	return false
}
