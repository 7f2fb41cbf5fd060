// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/grafov/m3u8"

	"github.com/ManuGH/iptvcheck/internal/log"
	platformnet "github.com/ManuGH/iptvcheck/internal/platform/net"
)

// maxPlaylistBytes bounds a sub-playlist body. Live media playlists are a
// few KiB; anything larger is not a playlist.
const maxPlaylistBytes = 4 << 20

// Fetcher loads channel sub-playlists over HTTP(S) or from local files.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher using client for network URIs.
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchMedia loads the media playlist at uri. A master playlist is followed
// once, to its highest-bandwidth variant.
func (f *Fetcher) FetchMedia(ctx context.Context, uri string) (Media, error) {
	base, p, listType, err := f.decode(ctx, uri)
	if err != nil {
		return Media{}, err
	}

	out := Media{URI: uri}
	if listType == m3u8.MASTER {
		variant, err := pickVariant(base, p.(*m3u8.MasterPlaylist))
		if err != nil {
			return Media{}, fmt.Errorf("%s: %w", uri, err)
		}
		logger := log.WithComponentFromContext(ctx, "playlist")
		logger.Debug().
			Str(log.FieldChannelURI, platformnet.SanitizeURL(uri)).
			Str("variant_uri", platformnet.SanitizeURL(variant)).
			Msg("following master playlist variant")

		base, p, listType, err = f.decode(ctx, variant)
		if err != nil {
			return Media{}, err
		}
		if listType == m3u8.MASTER {
			return Media{}, fmt.Errorf("%s: %w", variant, ErrNestedMaster)
		}
		out.VariantURI = variant
	}

	media, ok := p.(*m3u8.MediaPlaylist)
	if !ok {
		return Media{}, fmt.Errorf("%s: unexpected playlist type", uri)
	}
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		segURI, err := Resolve(base, seg.URI)
		if err != nil {
			return Media{}, err
		}
		out.Segments = append(out.Segments, Segment{
			URI:      segURI,
			Sequence: seg.SeqId,
			Duration: seg.Duration,
		})
	}
	return out, nil
}

func (f *Fetcher) decode(ctx context.Context, uri string) (*url.URL, m3u8.Playlist, m3u8.ListType, error) {
	base, err := url.Parse(uri)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("invalid playlist uri %q: %w", uri, err)
	}
	data, err := f.read(ctx, base)
	if err != nil {
		return nil, nil, 0, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\ufeff \t\r\n"), []byte("#EXTM3U")) {
		return nil, nil, 0, fmt.Errorf("decode %s: %w", uri, ErrNotM3U)
	}
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("decode %s: %w", uri, err)
	}
	return base, p, listType, nil
}

func (f *Fetcher) read(ctx context.Context, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", u, err)
		}
		return data, nil
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported playlist scheme %q in %s", u.Scheme, u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{URI: u.String(), StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if len(data) > maxPlaylistBytes {
		return nil, fmt.Errorf("%s: playlist exceeds %d bytes", u, maxPlaylistBytes)
	}
	return data, nil
}

func pickVariant(base *url.URL, master *m3u8.MasterPlaylist) (string, error) {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil || v.URI == "" || v.Iframe {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil {
		return "", ErrNoVariants
	}
	return Resolve(base, best.URI)
}
