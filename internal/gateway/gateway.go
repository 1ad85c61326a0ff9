// Package gateway wraps LLM provider calls with retry, fallback, cost
// accounting, and GenAI-convention telemetry. Providers return pure data;
// all observability emission happens here.
package gateway

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dtmai/genai-gateway/internal/pricing"
	"github.com/dtmai/genai-gateway/internal/provider"
	"github.com/dtmai/genai-gateway/internal/telemetry"
)

// Client orchestrates generation calls: retry loop over the primary
// provider, then an identical loop over the optional fallback. It holds no
// per-call state, so one Client serves unlimited concurrent calls.
type Client struct {
	primary       provider.Provider
	fallback      provider.Provider // nil when no fallback is configured
	fallbackModel string            // substituted on the fallback leg when set
	metrics       *telemetry.Metrics
	em            *emitter
}

// New builds a gateway client. fallback may be nil; in that case exhausting
// the primary provider is immediately terminal. fallbackModel replaces the
// request model on the fallback leg so a cross-vendor fallback asks for a
// model its provider actually serves; empty keeps the original model.
func New(primary, fallback provider.Provider, fallbackModel string, table *pricing.Table, tracer trace.Tracer, metrics *telemetry.Metrics) *Client {
	return &Client{
		primary:       primary,
		fallback:      fallback,
		fallbackModel: fallbackModel,
		metrics:       metrics,
		em: &emitter{
			tracer:  tracer,
			metrics: metrics,
			pricing: table,
		},
	}
}

// Generate runs the request against the primary provider with retries and,
// if the primary is exhausted, once more against the fallback. A success
// returns the response with CostUSD populated; any terminal failure is a
// *GatewayError. Context cancellation aborts immediately without engaging
// the fallback.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	resp, err := c.runProvider(ctx, c.primary, req)
	if err == nil {
		return resp, nil
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		// Cancellation or deadline, not provider failure.
		return nil, err
	}

	if c.fallback == nil {
		return nil, &GatewayError{Provider: c.primary.Name(), Err: err}
	}

	fbReq := req
	if c.fallbackModel != "" && c.fallbackModel != req.Model {
		clone := *req
		clone.Model = c.fallbackModel
		fbReq = &clone
	}

	// One increment per call, however many fallback retries follow.
	c.metrics.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProviderName, c.fallback.Name()),
		attribute.String(attrRequestModel, fbReq.Model),
	))

	resp, err = c.runProvider(ctx, c.fallback, fbReq)
	if err == nil {
		resp.Fallback = true
		return resp, nil
	}
	var fbExhausted *ExhaustedError
	if !errors.As(err, &fbExhausted) {
		// Cancellation during the fallback leg, same as on the primary.
		return nil, err
	}
	return nil, &GatewayError{Provider: c.primary.Name(), Err: err}
}

// runProvider drives the per-provider attempt state machine. Every error is
// retried the same way regardless of its type; only context cancellation
// breaks out early.
func (c *Client) runProvider(ctx context.Context, p provider.Provider, req *provider.Request) (*provider.Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.Retries.Add(ctx, 1, metric.WithAttributes(
				attribute.String(attrProviderName, p.Name()),
				attribute.String(attrRequestModel, req.Model),
			))
			if err := sleepFn(ctx, backoffDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		resp, err := c.em.attempt(ctx, p, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ExhaustedError{Provider: p.Name(), Attempts: maxAttempts, Err: lastErr}
}
