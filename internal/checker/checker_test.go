// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptvcheck/internal/noise"
	"github.com/ManuGH/iptvcheck/internal/playlist"
	"github.com/ManuGH/iptvcheck/internal/probe"
)

type fetchFunc func(ctx context.Context, uri string) (playlist.Media, error)

func (f fetchFunc) FetchMedia(ctx context.Context, uri string) (playlist.Media, error) {
	return f(ctx, uri)
}

type probeFunc func(ctx context.Context, uri string) ([]string, error)

func (f probeFunc) Probe(ctx context.Context, uri string) ([]string, error) {
	return f(ctx, uri)
}

var channel = playlist.Channel{Index: 0, Title: "Das Erste HD", URI: "http://iptv.example/ard/index.m3u8"}

func liveMedia(uri string) fetchFunc {
	return func(_ context.Context, got string) (playlist.Media, error) {
		return playlist.Media{
			URI: got,
			Segments: []playlist.Segment{
				{URI: "http://iptv.example/ard/1000.ts", Sequence: 1000, Duration: 6},
				{URI: "http://iptv.example/ard/1001.ts", Sequence: 1001, Duration: 6},
				{URI: uri, Sequence: 1002, Duration: 6},
			},
		}, nil
	}
}

func lines(out ...string) probeFunc {
	return func(context.Context, string) ([]string, error) { return out, nil }
}

const lastSegment = "http://iptv.example/ard/1002.ts"

func TestCheck_CleanProbeIsOK(t *testing.T) {
	var probed string
	p := probeFunc(func(_ context.Context, uri string) ([]string, error) {
		probed = uri
		return []string{""}, nil
	})

	v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)

	assert.True(t, v.OK)
	assert.Equal(t, "OK", v.Status())
	assert.Equal(t, StageClassifying, v.Stage)
	assert.Equal(t, lastSegment, probed, "only the newest segment is probed")
	assert.Equal(t, lastSegment, v.SegmentURI)
	assert.NoError(t, v.Err)
	assert.Empty(t, v.Diagnostics)
	assert.Equal(t, channel, v.Channel)
}

func TestCheck_NoiseOnlyIsOK(t *testing.T) {
	p := lines("Last message repeated 5 times", noise.ResetSentinel, "")
	v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)
	assert.True(t, v.OK)
}

func TestCheck_ResidualDiagnosticsFail(t *testing.T) {
	p := lines(
		"[h264 @ 0x1] mmco: unref short failure",
		"[h264 @ 0x1] error while decoding MB 12 30, bytestream -5",
		"Last message repeated 2 times",
		"[h264 @ 0x1] concealing 1620 DC, 1620 AC, 1620 MV errors in P frame",
		"",
	)
	v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)

	assert.False(t, v.OK)
	assert.Equal(t, "FAILED", v.Status())
	assert.Equal(t, StageClassifying, v.Stage)
	assert.NoError(t, v.Err)
	want := []string{
		"[h264 @ 0x1] error while decoding MB 12 30, bytestream -5",
		"[h264 @ 0x1] concealing 1620 DC, 1620 AC, 1620 MV errors in P frame",
	}
	if diff := cmp.Diff(want, v.Diagnostics); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_BlankButNonEmptyLineFails(t *testing.T) {
	for _, line := range []string{"   ", "\t", "\r"} {
		p := lines("Last message repeated 1 times", line)
		v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
		require.NoError(t, err)

		assert.False(t, v.OK, "line %q", line)
		assert.Equal(t, StageClassifying, v.Stage)
		assert.Equal(t, []string{line}, v.Diagnostics)
	}
}

func TestCheck_ExtraNoisePatterns(t *testing.T) {
	filter, err := noise.New(`deprecated pixel format used`)
	require.NoError(t, err)

	p := lines("[swscaler @ 0x2] deprecated pixel format used, make sure you did set range correctly")
	v, err := New(liveMedia(lastSegment), p, filter, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)
	assert.True(t, v.OK)
}

func TestCheck_FetchFailureSkipsProbe(t *testing.T) {
	probed := false
	f := fetchFunc(func(_ context.Context, uri string) (playlist.Media, error) {
		return playlist.Media{}, &playlist.HTTPError{URI: uri, StatusCode: 404, Status: "Not Found"}
	})
	p := probeFunc(func(context.Context, string) ([]string, error) {
		probed = true
		return nil, nil
	})

	v, err := New(f, p, nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)

	assert.False(t, v.OK)
	assert.False(t, probed)
	assert.Equal(t, StageFetching, v.Stage)
	assert.Equal(t, KindRetrieval, KindOf(v.Err))
	var httpErr *playlist.HTTPError
	require.ErrorAs(t, v.Err, &httpErr)
	assert.Equal(t, 404, httpErr.StatusCode)
	assert.Contains(t, v.Err.Error(), channel.URI)
}

func TestCheck_EmptySubPlaylistFails(t *testing.T) {
	f := fetchFunc(func(_ context.Context, uri string) (playlist.Media, error) {
		return playlist.Media{URI: uri}, nil
	})
	v, err := New(f, lines(), nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)

	assert.False(t, v.OK)
	assert.ErrorIs(t, v.Err, ErrNoSegments)
	assert.Equal(t, KindRetrieval, KindOf(v.Err))
	assert.Empty(t, v.SegmentURI)
}

func TestCheck_ProberErrors(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		err      error
		wantOK   bool
		wantKind Kind
		wantDiag []string
	}{
		{
			name:     "spawn failure",
			err:      fmt.Errorf("%w: ffprobe: executable file not found", probe.ErrSpawn),
			wantKind: KindProbe,
		},
		{
			name:     "undecodable output",
			err:      probe.ErrDecode,
			wantKind: KindClassification,
		},
		{
			name:   "non-zero exit without diagnostics",
			lines:  []string{""},
			err:    &probe.ExitError{Code: 1, Err: errors.New("exit status 1")},
			wantOK: true,
		},
		{
			name:     "non-zero exit with partial output",
			lines:    []string{"http://iptv.example/ard/1002.ts: Server returned 403 Forbidden (access denied)", ""},
			err:      &probe.ExitError{Code: 1, Err: errors.New("exit status 1")},
			wantDiag: []string{"http://iptv.example/ard/1002.ts: Server returned 403 Forbidden (access denied)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := probeFunc(func(context.Context, string) ([]string, error) { return tt.lines, tt.err })
			v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOK, v.OK)
			assert.Equal(t, tt.wantKind, KindOf(v.Err))
			assert.Equal(t, tt.wantDiag, v.Diagnostics)
			if tt.wantKind != "" {
				assert.ErrorIs(t, v.Err, tt.err)
				assert.Equal(t, StageProbing, v.Stage)
			}
		})
	}
}

func TestCheck_PanicBecomesFailedVerdict(t *testing.T) {
	p := probeFunc(func(context.Context, string) ([]string, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	})

	v, err := New(liveMedia(lastSegment), p, nil, Options{}).Check(context.Background(), channel)
	require.NoError(t, err)

	assert.False(t, v.OK)
	assert.ErrorIs(t, v.Err, ErrPanic)
	assert.Equal(t, KindProbe, KindOf(v.Err))
	assert.Contains(t, v.Err.Error(), "goroutine", "stack is kept for verbose output")
}

func TestCheck_TimeoutBecomesFailedVerdict(t *testing.T) {
	p := probeFunc(func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return []string{"partial"}, ctx.Err()
	})

	v, err := New(liveMedia(lastSegment), p, nil, Options{Timeout: 20 * time.Millisecond}).
		Check(context.Background(), channel)
	require.NoError(t, err)

	assert.False(t, v.OK)
	assert.ErrorIs(t, v.Err, ErrTimeout)
	assert.ErrorIs(t, v.Err, context.DeadlineExceeded)
	assert.Equal(t, KindProbe, KindOf(v.Err))
}

func TestCheck_TimeoutDuringFetch(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, _ string) (playlist.Media, error) {
		<-ctx.Done()
		return playlist.Media{}, ctx.Err()
	})

	v, err := New(f, lines(), nil, Options{Timeout: 20 * time.Millisecond}).Check(context.Background(), channel)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Err, ErrTimeout)
	assert.Equal(t, KindRetrieval, KindOf(v.Err))
}

func TestCheck_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := probeFunc(func(pctx context.Context, _ string) ([]string, error) {
		cancel()
		<-pctx.Done()
		return []string{"Immediate exit requested"}, pctx.Err()
	})

	v, err := New(liveMedia(lastSegment), p, nil, Options{Timeout: time.Minute}).Check(ctx, channel)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Verdict{}, v, "no verdict for a canceled check")
}

func TestCheck_AlreadyCanceledDoesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetched := false
	f := fetchFunc(func(context.Context, string) (playlist.Media, error) {
		fetched = true
		return playlist.Media{}, nil
	})

	_, err := New(f, lines(), nil, Options{}).Check(ctx, channel)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.False(t, fetched)
}

func TestCheckError_Message(t *testing.T) {
	err := &CheckError{Kind: KindRetrieval, URI: channel.URI, Err: errors.New("connection refused")}
	assert.Equal(t, "retrieval error: http://iptv.example/ard/index.m3u8: connection refused", err.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
