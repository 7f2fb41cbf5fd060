// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ManuGH/iptvcheck/internal/log"
	platformnet "github.com/ManuGH/iptvcheck/internal/platform/net"
	"github.com/ManuGH/iptvcheck/internal/procgroup"
)

const (
	DefaultBin      = "ffprobe"
	DefaultLogLevel = "warning"

	defaultKillGrace = 2 * time.Second
	maxStderrBytes   = 1 << 20
)

// Prober inspects one segment and returns its raw diagnostic lines.
type Prober interface {
	Probe(ctx context.Context, segmentURI string) ([]string, error)
}

// Options configures FFprobe.
type Options struct {
	Bin        string   // binary name or path, defaults to ffprobe
	LogLevel   string   // -v value, defaults to warning
	ExtraArgs  []string // inserted before -i (e.g. -rw_timeout 10000000)
	ForceColor bool     // sets AV_LOG_FORCE_COLOR=1 for the child only
	KillGrace  time.Duration
}

// FFprobe is the Prober backed by an ffprobe child process.
type FFprobe struct {
	bin        string
	logLevel   string
	extraArgs  []string
	forceColor bool
	killGrace  time.Duration
}

// NewFFprobe returns an ffprobe based prober.
func NewFFprobe(opts Options) *FFprobe {
	p := &FFprobe{
		bin:        strings.TrimSpace(opts.Bin),
		logLevel:   strings.TrimSpace(opts.LogLevel),
		extraArgs:  append([]string(nil), opts.ExtraArgs...),
		forceColor: opts.ForceColor,
		killGrace:  opts.KillGrace,
	}
	if p.bin == "" {
		p.bin = DefaultBin
	}
	if p.logLevel == "" {
		p.logLevel = DefaultLogLevel
	}
	if p.killGrace <= 0 {
		p.killGrace = defaultKillGrace
	}
	return p
}

// Bin returns the binary the prober executes.
func (p *FFprobe) Bin() string { return p.bin }

// Args returns the argument vector used for segmentURI.
func (p *FFprobe) Args(segmentURI string) []string {
	args := make([]string, 0, 4+len(p.extraArgs))
	args = append(args, "-v", p.logLevel)
	args = append(args, p.extraArgs...)
	args = append(args, "-i", segmentURI)
	return args
}

// Probe runs ffprobe against segmentURI. On cancellation the child's process
// group is terminated and ctx's error is returned.
func (p *FFprobe) Probe(ctx context.Context, segmentURI string) ([]string, error) {
	logger := log.WithComponentFromContext(ctx, "probe")

	// #nosec G204 - binary comes from operator config; the URI is passed as a single argument
	cmd := exec.Command(p.bin, p.Args(segmentURI)...)
	procgroup.Set(cmd)
	stderr := &cappedBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr
	if p.forceColor {
		cmd.Env = append(os.Environ(), "AV_LOG_FORCE_COLOR=1")
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, p.bin, err)
	}
	logger.Debug().
		Int(log.FieldPID, cmd.Process.Pid).
		Str(log.FieldBinary, p.bin).
		Str(log.FieldSegmentURI, platformnet.SanitizeURL(segmentURI)).
		Msg("prober started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, p.killGrace)
		// Wait has returned, stderr is no longer written to.
		lines, _ := decodeLines(stderr)
		return lines, ctx.Err()
	}

	if stderr.truncated > 0 {
		logger.Warn().Int("dropped_bytes", stderr.truncated).Msg("prober stderr truncated")
	}

	lines, err := decodeLines(stderr)
	if err != nil {
		return nil, err
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logger.Debug().Int(log.FieldExitCode, exitErr.ExitCode()).Msg("prober exited non-zero")
			return lines, &ExitError{Code: exitErr.ExitCode(), Err: waitErr}
		}
		return lines, waitErr
	}
	return lines, nil
}

func decodeLines(b *cappedBuffer) ([]string, error) {
	raw := b.Bytes()
	if b.truncated > 0 {
		// The cap may have split a rune; keep whole lines only.
		if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
			raw = raw[:i+1]
		}
	}
	if !utf8.Valid(raw) {
		return nil, ErrDecode
	}
	return strings.Split(string(raw), "\n"), nil
}

// CheckBinary verifies bin can be found (PATH lookup for bare names).
func CheckBinary(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, bin)
	}
	return nil
}

// cappedBuffer keeps the first limit bytes written and counts the rest.
// A hard-failing stream can make ffprobe print the same error forever.
type cappedBuffer struct {
	buf       []byte
	limit     int
	truncated int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - len(b.buf)
	if room <= 0 {
		b.truncated += len(p)
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated += len(p) - room
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf }
