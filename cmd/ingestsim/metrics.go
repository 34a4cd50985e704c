package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftdb/driftdb"
	"github.com/driftdb/driftdb/internal/metrics"
)

// newMetricsRecorder wires a Prometheus registry into the windowing
// core's MetricsRecorder interface.
func newMetricsRecorder(registry *prometheus.Registry) driftdb.MetricsRecorder {
	return metrics.NewPrometheusRecorder(registry)
}
