// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package checker decides whether one channel is healthy: it fetches the
// channel's live playlist, probes the newest segment and classifies the
// prober's diagnostics.
package checker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/metrics"
	"github.com/ManuGH/iptvcheck/internal/noise"
	platformnet "github.com/ManuGH/iptvcheck/internal/platform/net"
	"github.com/ManuGH/iptvcheck/internal/playlist"
	"github.com/ManuGH/iptvcheck/internal/probe"
)

// Fetcher loads a channel's media playlist.
type Fetcher interface {
	FetchMedia(ctx context.Context, uri string) (playlist.Media, error)
}

// Options configures a Checker.
type Options struct {
	// Timeout bounds one channel check (fetch and probe). Zero disables it.
	Timeout time.Duration
}

// Checker runs single channel checks. It is safe for concurrent use when
// its Fetcher and Prober are.
type Checker struct {
	fetcher Fetcher
	prober  probe.Prober
	filter  *noise.Filter
	timeout time.Duration
}

// New returns a Checker. A nil filter uses the built-in noise table.
func New(fetcher Fetcher, prober probe.Prober, filter *noise.Filter, opts Options) *Checker {
	if filter == nil {
		filter = noise.Default()
	}
	return &Checker{
		fetcher: fetcher,
		prober:  prober,
		filter:  filter,
		timeout: opts.Timeout,
	}
}

// Check runs one attempt for ch. Every failure is folded into a FAILED
// verdict; the returned error is non-nil only when ctx ends, and then wraps
// ErrCanceled and no verdict is produced.
func (c *Checker) Check(ctx context.Context, ch playlist.Channel) (Verdict, error) {
	if ctx.Err() != nil {
		return Verdict{}, canceled(ctx)
	}

	start := time.Now()
	checkCtx := log.ContextWithChannel(ctx, ch.Title)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeoutCause(checkCtx, c.timeout, ErrTimeout)
		defer cancel()
	}

	v := Verdict{Channel: ch, Stage: StagePending}
	c.run(checkCtx, &v)
	v.Duration = time.Since(start)

	if ctx.Err() != nil {
		return Verdict{}, canceled(ctx)
	}

	metrics.RecordCheck(v.OK, string(v.Stage), v.Duration)

	logger := log.WithComponentFromContext(checkCtx, "checker")
	evt := logger.Debug()
	if !v.OK {
		evt = logger.Info().Err(v.Err).Int("diagnostics", len(v.Diagnostics))
	}
	evt.Str(log.FieldChannelURI, platformnet.SanitizeURL(ch.URI)).
		Str(log.FieldSegmentURI, platformnet.SanitizeURL(v.SegmentURI)).
		Str(log.FieldStage, string(v.Stage)).
		Dur("duration", v.Duration).
		Str("status", v.Status()).
		Msg("channel checked")

	return v, nil
}

func (c *Checker) run(ctx context.Context, v *Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v.OK = false
			v.Err = &CheckError{
				Kind: kindForStage(v.Stage),
				URI:  v.Channel.URI,
				Err:  &panicError{value: r, stack: debug.Stack()},
			}
		}
	}()

	v.Stage = StageFetching
	media, err := c.fetcher.FetchMedia(ctx, v.Channel.URI)
	if err != nil {
		v.Err = c.failure(ctx, KindRetrieval, v.Channel.URI, err)
		return
	}
	seg, err := media.Last()
	if err != nil {
		v.Err = &CheckError{Kind: KindRetrieval, URI: v.Channel.URI, Err: err}
		return
	}
	v.SegmentURI = seg.URI

	v.Stage = StageProbing
	lines, err := c.prober.Probe(ctx, seg.URI)
	if err != nil {
		// The diagnostic text is the signal, not the exit status.
		var exitErr *probe.ExitError
		if !errors.As(err, &exitErr) {
			kind := KindProbe
			if errors.Is(err, probe.ErrDecode) {
				kind = KindClassification
			}
			v.Err = c.failure(ctx, kind, seg.URI, err)
			return
		}
		logger := log.WithComponentFromContext(ctx, "checker")
		logger.Debug().
			Int(log.FieldExitCode, exitErr.Code).
			Str(log.FieldSegmentURI, platformnet.SanitizeURL(seg.URI)).
			Int("lines", len(lines)).
			Msg("prober exited non-zero, classifying its output")
	}

	v.Stage = StageClassifying
	residual := c.filter.Residual(lines)
	metrics.RecordDiagnostics(len(lines)-len(residual), len(residual))
	if len(residual) > 0 {
		v.Diagnostics = residual
		return
	}
	v.OK = true
}

// failure builds the verdict error, marking it ErrTimeout when the
// per-channel deadline caused it.
func (c *Checker) failure(ctx context.Context, kind Kind, uri string, err error) error {
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
	}
	return &CheckError{Kind: kind, URI: uri, Err: err}
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

func kindForStage(s Stage) Kind {
	switch s {
	case StageProbing:
		return KindProbe
	case StageClassifying:
		return KindClassification
	default:
		return KindRetrieval
	}
}
