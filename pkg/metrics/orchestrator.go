package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/orchestrator"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flip_bridge",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Total number of finished orchestration runs",
		},
		[]string{"state"}, // succeeded, failed
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flip_bridge",
			Subsystem: "orchestrator",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each orchestration stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	stageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flip_bridge",
			Subsystem: "orchestrator",
			Name:      "stage_failures_total",
			Help:      "Total number of runs that failed, by stage and error kind",
		},
		[]string{"stage", "kind"},
	)
)

// RunObserver returns an observer that records stage timings and outcomes
func RunObserver() orchestrator.Observer {
	return orchestrator.ObserverFunc(observeTransition)
}

func observeTransition(t orchestrator.Transition) {
	if t.From != orchestrator.StateIdle {
		stageDuration.WithLabelValues(string(t.From)).Observe(t.Elapsed.Seconds())
	}
	if !t.To.IsTerminal() {
		return
	}
	runsTotal.WithLabelValues(string(t.To)).Inc()
	if t.To == orchestrator.StateFailed {
		stageFailuresTotal.WithLabelValues(string(t.From), kindLabel(t.Err)).Inc()
	}
}

func kindLabel(err error) string {
	switch apperrors.Kind(err) {
	case apperrors.ErrQuoteUnavailable:
		return "quote_unavailable"
	case apperrors.ErrGasPriceUnavailable:
		return "gas_price_unavailable"
	case apperrors.ErrGasEstimationFailed:
		return "gas_estimation_failed"
	case apperrors.ErrBridgeQuoteUnavailable:
		return "bridge_quote_unavailable"
	case apperrors.ErrSubmissionFailed:
		return "submission_failed"
	case apperrors.ErrInvalidRequest:
		return "invalid_request"
	case apperrors.ErrInvalidConfig:
		return "invalid_config"
	default:
		return "other"
	}
}
