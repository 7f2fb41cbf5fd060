// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report renders channel progress and verdicts.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/noise"
	"github.com/ManuGH/iptvcheck/internal/playlist"
)

const (
	eraseLine  = "\x1b[K"
	titleWidth = 22
)

// TextOptions configures the terminal reporter.
type TextOptions struct {
	Out io.Writer // verdict lines and verbose dumps, defaults to os.Stdout
	Err io.Writer // verbose detail of unexpected errors, defaults to Out
	// Color enables bold/colored labels and URIs.
	Color bool
	// Interactive rewrites the "checking" marker in place. Pipes and files
	// get the marker on a line of its own, followed by the verdict line.
	Interactive bool
	// Verbose dumps URIs, errors and diagnostics for failed channels.
	Verbose bool
}

// Text is the line oriented terminal reporter.
type Text struct {
	out         io.Writer
	errOut      io.Writer
	color       bool
	interactive bool
	verbose     bool

	okStyle     lipgloss.Style
	failedStyle lipgloss.Style
	infoStyle   lipgloss.Style
	alertStyle  lipgloss.Style

	pending bool // a progress marker is on the current line
}

// NewText returns a text reporter.
func NewText(opts TextOptions) *Text {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = out
	}

	r := lipgloss.NewRenderer(out)
	if opts.Color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	green := lipgloss.Color("2")
	red := lipgloss.Color("1")
	return &Text{
		out:         out,
		errOut:      errOut,
		color:       opts.Color,
		interactive: opts.Interactive,
		verbose:     opts.Verbose,
		okStyle:     r.NewStyle().Foreground(green).Bold(true),
		failedStyle: r.NewStyle().Foreground(red).Bold(true),
		infoStyle:   r.NewStyle().Foreground(green),
		alertStyle:  r.NewStyle().Foreground(red),
	}
}

// Checking shows the in-progress marker for ch.
func (t *Text) Checking(ch playlist.Channel) {
	if !t.interactive {
		fmt.Fprintf(t.out, "%-*s checking\n", titleWidth, ch.Title)
		return
	}
	fmt.Fprintf(t.out, "%-*s checking", titleWidth, ch.Title)
	t.pending = true
}

// Verdict replaces the marker with the terminal label and, in verbose mode,
// dumps the failure context.
func (t *Text) Verdict(v checker.Verdict) {
	label := t.okStyle.Render(v.Status())
	if !v.OK {
		label = t.failedStyle.Render(v.Status())
	}
	if t.pending {
		fmt.Fprint(t.out, "\r"+eraseLine)
		t.pending = false
	}
	fmt.Fprintf(t.out, "%-*s %s\n", titleWidth, v.Channel.Title, label)

	if t.verbose && !v.OK {
		t.dump(v)
	}
}

func (t *Text) dump(v checker.Verdict) {
	switch {
	case len(v.Diagnostics) > 0:
		fmt.Fprintln(t.out, t.infoStyle.Render(v.Channel.URI))
		fmt.Fprintln(t.out, t.alertStyle.Render(v.SegmentURI))
		fmt.Fprintln(t.out, strings.Join(v.Diagnostics, "\n"))
		if t.color {
			fmt.Fprintln(t.out, noise.ResetSentinel)
		} else {
			fmt.Fprintln(t.out)
		}
	case v.Err == nil:
	case checker.KindOf(v.Err) == checker.KindRetrieval && !errors.Is(v.Err, checker.ErrPanic):
		fmt.Fprintln(t.out, t.alertStyle.Render(v.Channel.URI))
		fmt.Fprintln(t.out, unwrapCheckError(v.Err))
		fmt.Fprintln(t.out)
	default:
		fmt.Fprintln(t.errOut, v.Err)
	}
}

// Interrupted ends a dangling progress line.
func (t *Text) Interrupted() {
	if t.pending {
		fmt.Fprintln(t.out)
		t.pending = false
	}
}

// unwrapCheckError drops the kind/URI prefix, which the dump already shows.
func unwrapCheckError(err error) error {
	var ce *checker.CheckError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	return err
}
