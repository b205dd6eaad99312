package interaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webharness-go/core/failure"
)

const (
	resultOK       = "ok"
	resultFalse    = "false"
	resultNoDriver = "no_driver"
)

var (
	metricInteractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webharness",
		Name:      "interactions_total",
		Help:      "Element interactions by operation and result.",
	}, []string{"op", "result"})
	metricWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "webharness",
		Name:      "interaction_wait_seconds",
		Help:      "Time from the start of an interaction until it returned.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"op"})
)

func recordInteraction(op, result string, start time.Time) {
	metricInteractions.WithLabelValues(op, result).Inc()
	metricWaitSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// kindResult maps a failure kind onto a metric label value.
func kindResult(kind failure.Kind) string {
	switch kind {
	case failure.Timeout:
		return "timeout"
	case failure.ElementNotInteractable:
		return "not_interactable"
	case failure.ElementNotVisible:
		return "not_visible"
	case failure.ElementNotSelectable:
		return "not_selectable"
	case failure.StaleReference:
		return "stale"
	case failure.NotFound:
		return "not_found"
	default:
		return "error"
	}
}
