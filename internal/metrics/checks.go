// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	channelChecksTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvcheck_channel_checks_total",
		Help: "Channel checks by outcome and the stage the check ended in",
	}, []string{"outcome", "stage"}) // outcome=ok|failed

	channelCheckDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iptvcheck_channel_check_duration_seconds",
		Help:    "Wall time of a single channel check",
		Buckets: prometheus.ExponentialBuckets(0.25, 2.0, 10), // 250ms to ~2m
	}, []string{"outcome"})

	diagnosticLinesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvcheck_diagnostic_lines_total",
		Help: "Prober diagnostic lines by classification",
	}, []string{"class"}) // class=noise|error

	runChannels = factory.NewGauge(prometheus.GaugeOpts{
		Name: "iptvcheck_run_channels",
		Help: "Number of channels in the playlist of the last run",
	})

	runChecked = factory.NewGauge(prometheus.GaugeOpts{
		Name: "iptvcheck_run_channels_checked",
		Help: "Number of channels checked in the last run",
	})

	runFailed = factory.NewGauge(prometheus.GaugeOpts{
		Name: "iptvcheck_run_channels_failed",
		Help: "Number of failed channels in the last run",
	})

	runHealthy = factory.NewGauge(prometheus.GaugeOpts{
		Name: "iptvcheck_run_healthy",
		Help: "Whether the last run was judged healthy (1) or not (0)",
	})

	runFinished = factory.NewGauge(prometheus.GaugeOpts{
		Name: "iptvcheck_run_last_finished_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
)

// RecordCheck records the outcome of one channel check.
func RecordCheck(ok bool, stage string, d time.Duration) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	channelChecksTotal.WithLabelValues(outcome, stage).Inc()
	channelCheckDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordDiagnostics counts classified prober lines.
func RecordDiagnostics(noise, errors int) {
	if noise > 0 {
		diagnosticLinesTotal.WithLabelValues("noise").Add(float64(noise))
	}
	if errors > 0 {
		diagnosticLinesTotal.WithLabelValues("error").Add(float64(errors))
	}
}

// RecordRun publishes the aggregate of a finished run.
func RecordRun(total, checked, failed int, healthy bool, finished time.Time) {
	runChannels.Set(float64(total))
	runChecked.Set(float64(checked))
	runFailed.Set(float64(failed))
	if healthy {
		runHealthy.Set(1)
	} else {
		runHealthy.Set(0)
	}
	runFinished.Set(float64(finished.Unix()))
}
