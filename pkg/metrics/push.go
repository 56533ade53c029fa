package metrics

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used for CLI runs
const DefaultJob = "flip-bridge"

// PushRunMetrics sends the orchestrator collectors to a Prometheus
// Pushgateway. The CLI exits right after a run, so nothing would scrape it.
func PushRunMetrics(ctx context.Context, gatewayURL, job string) error {
	gatewayURL = strings.TrimSpace(gatewayURL)
	if gatewayURL == "" {
		return nil
	}
	if job == "" {
		job = DefaultJob
	}

	err := push.New(gatewayURL, job).
		Collector(runsTotal).
		Collector(stageDuration).
		Collector(stageFailuresTotal).
		PushContext(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to push run metrics")
	}
	return nil
}
