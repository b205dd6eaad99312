package runner

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webharness-go/domain/run"
)

var (
	metricFlows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webharness",
		Name:      "flows_total",
		Help:      "Completed flows by name and outcome.",
	}, []string{"flow", "outcome"})
	metricFlowSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "webharness",
		Name:      "flow_duration_seconds",
		Help:      "Flow duration from setup to teardown.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"flow"})
	metricFlowsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "webharness",
		Name:      "flows_in_flight",
		Help:      "Flows currently running.",
	})
)

func recordFlow(rec *run.Record) {
	metricFlows.WithLabelValues(rec.Flow, rec.Outcome.String()).Inc()
	metricFlowSeconds.WithLabelValues(rec.Flow).Observe(rec.Duration().Seconds())
}

// WriteMetrics writes every registered metric to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
