// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// iptvcheck probes every channel of an IPTV playlist and reports which
// streams currently fail to decode.
//
// Usage:
//
//	iptvcheck [flags] <playlist>
//	iptvcheck check-config -c iptvcheck.yaml
//
// Exit codes:
//   - 0: every checked channel is healthy
//   - 1: a channel failed, the run was interrupted, or a setup error occurred
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ManuGH/iptvcheck/internal/checker"
	"github.com/ManuGH/iptvcheck/internal/config"
	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/metrics"
	"github.com/ManuGH/iptvcheck/internal/noise"
	"github.com/ManuGH/iptvcheck/internal/platform/httpx"
	"github.com/ManuGH/iptvcheck/internal/playlist"
	"github.com/ManuGH/iptvcheck/internal/probe"
	"github.com/ManuGH/iptvcheck/internal/report"
	"github.com/ManuGH/iptvcheck/internal/runner"
	"github.com/ManuGH/iptvcheck/internal/version"
)

var (
	// errUnhealthy ends a completed run that found failing channels.
	errUnhealthy = errors.New("playlist unhealthy")
	// errInterrupted ends a run stopped by a signal; the reporter already
	// terminated its output.
	errInterrupted = errors.New("interrupted")
)

// sink is a runner.Reporter that can close a dangling progress line.
type sink interface {
	runner.Reporter
	Interrupted()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUnhealthy), errors.Is(err, errInterrupted):
		return 1
	default:
		fmt.Fprintf(stderr, "iptvcheck: %v\n", err)
		return 1
	}
}

type cliFlags struct {
	configPath  string
	stopOnFail  bool
	verbose     bool
	workers     int
	timeout     time.Duration
	format      string
	color       string
	reportFile  string
	metricsFile string
	ffprobe     string
	logLevel    string
}

// A playlist file named like a subcommand is reachable after "--", where
// cobra stops looking for subcommands.
const rootLong = `Check the health of the channels in an IPTV playlist.

A playlist file named like a subcommand is checked when it follows "--":
  iptvcheck -- check-config`

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:           "iptvcheck [flags] <playlist>",
		Short:         "Check the health of the channels in an IPTV playlist",
		Long:          rootLong,
		Version:       version.String(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return checkPlaylist(cmd.Context(), cfg, args[0], stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "path to YAML configuration file")
	fl.BoolVarP(&f.stopOnFail, "stop-on-fail", "s", false, "stop on first fail")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print additional info on fail")
	fl.IntVarP(&f.workers, "workers", "j", 1, "number of channels checked concurrently")
	fl.DurationVarP(&f.timeout, "timeout", "t", 0, "per-channel timeout (e.g. 45s)")
	fl.StringVar(&f.format, "format", config.FormatText, "output format: text or json")
	fl.StringVar(&f.color, "color", config.ColorAuto, "colored output: auto, always or never")
	fl.StringVar(&f.reportFile, "report", "", "write a JSON run summary to this file")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics (textfile format) to this file")
	fl.StringVar(&f.ffprobe, "ffprobe", "", "ffprobe binary to run")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(newCheckConfigCmd(stdout))
	return cmd
}

// loadConfig applies flags set on the command line on top of file and
// environment configuration, then validates the result.
func loadConfig(cmd *cobra.Command, f cliFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	if fl.Changed("stop-on-fail") {
		cfg.Check.StopOnFail = f.stopOnFail
	}
	if fl.Changed("verbose") {
		cfg.Output.Verbose = f.verbose
	}
	if fl.Changed("workers") {
		cfg.Check.Workers = f.workers
	}
	if fl.Changed("timeout") {
		cfg.Check.Timeout = f.timeout
	}
	if fl.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fl.Changed("color") {
		cfg.Output.Color = f.color
	}
	if fl.Changed("report") {
		cfg.Output.ReportFile = f.reportFile
	}
	if fl.Changed("metrics-file") {
		cfg.Output.MetricsFile = f.metricsFile
	}
	if fl.Changed("ffprobe") {
		cfg.Prober.Bin = f.ffprobe
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func checkPlaylist(ctx context.Context, cfg config.Config, path string, stdout, stderr io.Writer) error {
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  stderr,
		Version: version.Version,
		Console: cfg.Log.Format == "console",
	})
	logger := log.WithComponent("cli")

	terminal := isTerminal(stdout)
	color := config.ResolveColor(cfg.Output.Color, terminal)

	filter, err := noise.New(cfg.Noise.ExtraPatterns...)
	if err != nil {
		return err
	}
	prober := probe.NewFFprobe(cfg.ProbeOptions(cfg.Output.Verbose && color))
	if err := probe.CheckBinary(prober.Bin()); err != nil {
		return err
	}
	fetcher := playlist.NewFetcher(httpx.NewClientWithUserAgent(cfg.Playlist.FetchTimeout, cfg.Playlist.UserAgent))
	chk := checker.New(fetcher, prober, filter, checker.Options{Timeout: cfg.Check.Timeout})

	var rep sink
	if cfg.Output.Format == config.FormatJSON {
		rep = report.NewJSON(stdout, cfg.Output.Verbose)
	} else {
		rep = report.NewText(report.TextOptions{
			Out:         stdout,
			Err:         stderr,
			Color:       color,
			Interactive: terminal,
			Verbose:     cfg.Output.Verbose,
		})
	}

	rn := runner.New(chk, rep, runner.Options{
		StopOnFail: cfg.Check.StopOnFail,
		Workers:    cfg.Check.Workers,
		Rate:       cfg.Check.Rate,
		Parse:      playlist.ParseOptions{Lenient: cfg.Playlist.Lenient},
	})

	sum, err := rn.Run(ctx, path)
	if errors.Is(err, runner.ErrInterrupted) {
		rep.Interrupted()
		return errInterrupted
	}
	if err != nil {
		return err
	}

	if cfg.Output.ReportFile != "" {
		if err := report.WriteSummary(cfg.Output.ReportFile, sum); err != nil {
			return err
		}
	}
	if cfg.Output.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
		logger.Info().Str(log.FieldPath, cfg.Output.MetricsFile).Msg("metrics written")
	}

	if !sum.OK {
		return errUnhealthy
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
