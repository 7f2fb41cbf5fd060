// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	procTerminateTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvcheck_proc_terminate_total",
		Help: "Signals sent to prober process groups by result",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	procWaitTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvcheck_proc_wait_total",
		Help: "Outcome of waiting on a terminated prober process",
	}, []string{"outcome"})
)

// IncProcTerminate counts a termination signal sent to a process group.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait counts how a terminated process finally exited.
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}
