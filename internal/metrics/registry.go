// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus instruments of a check run.
//
// The checker is a one-shot CLI, so instruments live on a private registry
// that is exported as a node_exporter textfile at the end of a run instead of
// being served over HTTP.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every iptvcheck instrument.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// WriteTextfile writes the current registry state to path in the text
// exposition format. The write is atomic (temp file + rename).
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
