package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Instrument names follow the OpenTelemetry GenAI client semantic
// conventions. Every consumer of Metrics records against the same six
// instruments regardless of provider or code path.
const (
	MetricTokenUsage        = "gen_ai.client.token.usage"
	MetricOperationDuration = "gen_ai.client.operation.duration"
	MetricCost              = "gen_ai.client.cost"
	MetricRetries           = "gen_ai.client.retries"
	MetricFallbacks         = "gen_ai.client.fallbacks"
	MetricErrors            = "gen_ai.client.errors"
)

// Metrics holds the gateway's metric instruments. Constructed once at
// startup and passed by reference into the gateway client; there is no
// hidden global registration.
//
// Thread Safety: safe for concurrent use after creation.
type Metrics struct {
	// TokenUsage records input/output token counts per successful attempt,
	// distinguished by the gen_ai.token.type attribute.
	TokenUsage metric.Int64Histogram

	// OperationDuration records wall-clock seconds per single attempt.
	OperationDuration metric.Float64Histogram

	// Cost accumulates the USD cost of successful attempts.
	Cost metric.Float64Counter

	// Retries counts retry attempts, excluding the first attempt on each
	// provider.
	Retries metric.Int64Counter

	// Fallbacks counts switches to the fallback provider, once per call.
	Fallbacks metric.Int64Counter

	// Errors counts failed attempts across all providers.
	Errors metric.Int64Counter
}

// NewMetrics registers all gateway instruments with the provided meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TokenUsage, err = meter.Int64Histogram(
		MetricTokenUsage,
		metric.WithDescription("Number of input and output tokens used per model call"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create token usage histogram: %w", err)
	}

	m.OperationDuration, err = meter.Float64Histogram(
		MetricOperationDuration,
		metric.WithDescription("Duration of a single model call attempt in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create operation duration histogram: %w", err)
	}

	m.Cost, err = meter.Float64Counter(
		MetricCost,
		metric.WithDescription("Accumulated USD cost of model calls"),
		metric.WithUnit("{USD}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cost counter: %w", err)
	}

	m.Retries, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Retry attempts, not counting the first attempt per provider"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retry counter: %w", err)
	}

	m.Fallbacks, err = meter.Int64Counter(
		MetricFallbacks,
		metric.WithDescription("Calls that switched to the fallback provider"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fallback counter: %w", err)
	}

	m.Errors, err = meter.Int64Counter(
		MetricErrors,
		metric.WithDescription("Failed model call attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create error counter: %w", err)
	}

	return m, nil
}
