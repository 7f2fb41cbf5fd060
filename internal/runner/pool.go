// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/playlist"
)

type outcome struct {
	verdict checker.Verdict
	err     error
}

// runPool checks channels on a bounded pool. Results land in a per-index
// slot and are reported strictly in document order. On the first reported
// failure with StopOnFail, every job still running belongs to a later index
// and is canceled; its result is discarded.
func (r *Runner) runPool(ctx context.Context, channels []playlist.Channel, sum *Summary) error {
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan outcome, len(channels))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}

	var g errgroup.Group
	g.SetLimit(r.workers())

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, ch := range channels {
			if err := r.pace(poolCtx); err != nil {
				return
			}
			slot := slots[i]
			g.Go(func() error {
				v, err := r.checker.Check(poolCtx, ch)
				slot <- outcome{verdict: v, err: err}
				return nil
			})
		}
	}()

	defer func() {
		cancel()
		<-dispatched
		_ = g.Wait()
	}()

	logger := log.WithComponentFromContext(ctx, "runner")
	for i, ch := range channels {
		r.reporter.Checking(ch)

		var o outcome
		select {
		case o = <-slots[i]:
		case <-ctx.Done():
			return interrupted(ctx.Err())
		}
		if o.err != nil {
			return interrupted(o.err)
		}
		if ctx.Err() != nil {
			return interrupted(ctx.Err())
		}

		r.reporter.Verdict(o.verdict)
		sum.add(o.verdict)
		if !o.verdict.OK && r.opts.StopOnFail {
			logger.Debug().
				Int(log.FieldChannelIndex, ch.Index).
				Int("remaining", len(channels)-i-1).
				Msg("stopping after first failure, canceling later checks")
			return nil
		}
	}
	return nil
}
