package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job runs are grouped under
const JobName = "dnasmoke"

// Push sends the collected metrics to a Pushgateway. A run is short-lived, so
// nothing would be around to be scraped.
func Push(ctx context.Context, gatewayURL, scenario, environment string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, gatewayURL, scenario, environment)
}

// PushFrom pushes the metrics of the given gatherer
func PushFrom(ctx context.Context, gatherer prometheus.Gatherer, gatewayURL, scenario, environment string) error {
	pusher := push.New(gatewayURL, JobName).
		Gatherer(gatherer).
		Grouping("scenario", scenario)
	if environment != "" {
		pusher = pusher.Grouping("environment", environment)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %v", gatewayURL, err)
	}
	return nil
}
