// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runner checks every channel of a playlist and aggregates the
// verdicts under the selected stop policy.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/metrics"
	"github.com/ManuGH/iptvcheck/internal/playlist"
)

// ErrInterrupted is returned when the run's context ends before every
// channel was handled. No aggregate is produced in that case.
var ErrInterrupted = errors.New("run interrupted")

// ChannelChecker checks one channel. Its error is reserved for cancellation.
type ChannelChecker interface {
	Check(ctx context.Context, ch playlist.Channel) (checker.Verdict, error)
}

// Reporter receives progress in document order: Checking(ch) always
// precedes Verdict for the same channel, and a channel whose check was
// interrupted gets no Verdict.
type Reporter interface {
	Checking(ch playlist.Channel)
	Verdict(v checker.Verdict)
}

// Options selects the run policy.
type Options struct {
	// StopOnFail ends the run at the first FAILED verdict.
	StopOnFail bool
	// Workers is the number of concurrent checks; <= 1 checks sequentially.
	Workers int
	// Rate limits check starts per second; 0 means unlimited.
	Rate float64
	// Parse controls decoding of the top-level playlist.
	Parse playlist.ParseOptions
}

// Summary aggregates one completed run.
type Summary struct {
	RunID      string
	Playlist   string
	StopOnFail bool
	Total      int
	Checked    int
	Passed     int
	Failed     int
	// OK is the run result: every checked channel passed and, unless the run
	// stopped early, every channel was checked.
	OK         bool
	Verdicts   []checker.Verdict
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s *Summary) add(v checker.Verdict) {
	s.Checked++
	if v.OK {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Verdicts = append(s.Verdicts, v)
}

// Runner drives one playlist through a ChannelChecker.
type Runner struct {
	checker  ChannelChecker
	reporter Reporter
	opts     Options
	limiter  *rate.Limiter
}

// New returns a Runner.
func New(c ChannelChecker, r Reporter, opts Options) *Runner {
	rn := &Runner{checker: c, reporter: r, opts: opts}
	if opts.Rate > 0 {
		rn.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return rn
}

// Run loads the playlist at path and checks its channels. Load failures and
// interruption are returned as errors; channel failures only affect
// Summary.OK.
func (r *Runner) Run(ctx context.Context, path string) (Summary, error) {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "runner")

	pl, err := playlist.Load(path, r.opts.Parse)
	if err != nil {
		return Summary{}, fmt.Errorf("load playlist %s: %w", path, err)
	}
	logger.Info().
		Str(log.FieldPlaylistPath, path).
		Int("channels", pl.Len()).
		Bool("stop_on_fail", r.opts.StopOnFail).
		Int("workers", r.workers()).
		Msg("playlist loaded")

	return r.run(ctx, runID, pl)
}

// RunPlaylist checks an already loaded playlist.
func (r *Runner) RunPlaylist(ctx context.Context, pl playlist.Playlist) (Summary, error) {
	runID := uuid.NewString()
	return r.run(log.ContextWithRunID(ctx, runID), runID, pl)
}

func (r *Runner) run(ctx context.Context, runID string, pl playlist.Playlist) (Summary, error) {
	sum := Summary{
		RunID:      runID,
		Playlist:   pl.Source,
		StopOnFail: r.opts.StopOnFail,
		Total:      pl.Len(),
		StartedAt:  time.Now(),
	}

	var err error
	if r.workers() > 1 && pl.Len() > 1 {
		err = r.runPool(ctx, pl.Channels, &sum)
	} else {
		err = r.runSequential(ctx, pl.Channels, &sum)
	}

	logger := log.WithComponentFromContext(ctx, "runner")
	if err != nil {
		logger.Warn().Err(err).Int("checked", sum.Checked).Msg("run interrupted")
		return Summary{}, err
	}

	sum.FinishedAt = time.Now()
	sum.OK = sum.Failed == 0 && sum.Checked == sum.Total
	metrics.RecordRun(sum.Total, sum.Checked, sum.Failed, sum.OK, sum.FinishedAt)

	logger.Info().
		Int("total", sum.Total).
		Int("checked", sum.Checked).
		Int("failed", sum.Failed).
		Bool("ok", sum.OK).
		Dur("duration", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("run finished")
	return sum, nil
}

func (r *Runner) runSequential(ctx context.Context, channels []playlist.Channel, sum *Summary) error {
	for _, ch := range channels {
		if err := r.pace(ctx); err != nil {
			return interrupted(err)
		}
		r.reporter.Checking(ch)
		v, err := r.checker.Check(ctx, ch)
		if err != nil {
			return interrupted(err)
		}
		r.reporter.Verdict(v)
		sum.add(v)
		if !v.OK && r.opts.StopOnFail {
			return nil
		}
	}
	return nil
}

// pace blocks until the next check may start. Only the end of ctx stops the
// wait; a deadline that falls inside it is waited out, not anticipated.
func (r *Runner) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.limiter == nil {
		return nil
	}
	res := r.limiter.Reserve()
	delay := res.Delay()
	if delay == 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return context.Cause(ctx)
	}
}

func (r *Runner) workers() int {
	if r.opts.Workers < 1 {
		return 1
	}
	return r.opts.Workers
}

func interrupted(err error) error {
	if errors.Is(err, ErrInterrupted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInterrupted, err)
}
