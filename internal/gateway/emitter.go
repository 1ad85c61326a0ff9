package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dtmai/genai-gateway/internal/pricing"
	"github.com/dtmai/genai-gateway/internal/provider"
	"github.com/dtmai/genai-gateway/internal/redact"
	"github.com/dtmai/genai-gateway/internal/telemetry"
)

// Span attribute and event names follow the OpenTelemetry GenAI semantic
// conventions. gen_ai.provider.name replaces the deprecated gen_ai.system.
const (
	attrOperationName = "gen_ai.operation.name"
	attrProviderName  = "gen_ai.provider.name"
	attrRequestModel  = "gen_ai.request.model"
	attrServerAddress = "server.address"
	attrServerPort    = "server.port"
	attrTemperature   = "gen_ai.request.temperature"
	attrMaxTokens     = "gen_ai.request.max_tokens"
	attrPipelineStage = "gen_ai.pipeline.stage"
	attrResponseModel = "gen_ai.response.model"
	attrInputTokens   = "gen_ai.usage.input_tokens"
	attrOutputTokens  = "gen_ai.usage.output_tokens"
	attrCostUSD       = "gen_ai.usage.cost_usd"
	attrFinishReasons = "gen_ai.response.finish_reasons"
	attrErrorType     = "error.type"
	attrTokenType     = "gen_ai.token.type"

	eventUserMessage      = "gen_ai.user.message"
	eventSystemMessage    = "gen_ai.system.message"
	eventAssistantMessage = "gen_ai.assistant.message"
)

// Event-body truncation limits, applied after PII scrubbing.
const (
	promptEventLimit     = 1000
	systemEventLimit     = 500
	completionEventLimit = 2000
)

// emitter produces the per-attempt span and metric emission. Adapters stay
// telemetry-free; every attempt goes through here so span shape is the same
// no matter which provider served it.
type emitter struct {
	tracer  trace.Tracer
	metrics *telemetry.Metrics
	pricing *pricing.Table
}

// attempt runs a single provider call wrapped in the full observability
// contract: one span, duration recorded always, usage and cost only on
// success, error counter only on failure. On success the response cost is
// populated from the pricing table.
func (e *emitter) attempt(ctx context.Context, p provider.Provider, req *provider.Request) (*provider.Response, error) {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("gen_ai.chat %s", req.Model),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String(attrOperationName, "chat"),
		attribute.String(attrProviderName, p.Name()),
		attribute.String(attrRequestModel, req.Model),
		attribute.String(attrServerAddress, p.Host()),
		attribute.Int(attrServerPort, p.Port()),
		attribute.Float64(attrTemperature, req.Temperature),
		attribute.Int(attrMaxTokens, req.MaxTokens),
	)
	if req.Stage != "" {
		span.SetAttributes(attribute.String(attrPipelineStage, req.Stage))
	}

	span.AddEvent(eventUserMessage, trace.WithAttributes(
		attribute.String("content", redact.Truncate(redact.Scrub(req.Prompt), promptEventLimit)),
	))
	if req.System != "" {
		span.AddEvent(eventSystemMessage, trace.WithAttributes(
			attribute.String("content", redact.Truncate(redact.Scrub(req.System), systemEventLimit)),
		))
	}

	commonAttrs := metric.WithAttributes(
		attribute.String(attrProviderName, p.Name()),
		attribute.String(attrRequestModel, req.Model),
	)

	start := time.Now()
	resp, err := p.Generate(ctx, req)
	elapsed := time.Since(start)

	e.metrics.OperationDuration.Record(ctx, elapsed.Seconds(), commonAttrs)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(attrErrorType, fmt.Sprintf("%T", err)))
		e.metrics.Errors.Add(ctx, 1, commonAttrs)
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	resp.CostUSD = e.pricing.Cost(model, resp.InputTokens, resp.OutputTokens)
	resp.Provider = p.Name()
	resp.LatencyMs = elapsed.Milliseconds()

	// Token attributes are set unconditionally: a zero count is a real
	// measurement, not an absent one.
	span.SetAttributes(
		attribute.String(attrResponseModel, model),
		attribute.Int(attrInputTokens, resp.InputTokens),
		attribute.Int(attrOutputTokens, resp.OutputTokens),
		attribute.Float64(attrCostUSD, resp.CostUSD),
	)
	if resp.FinishReason != "" {
		span.SetAttributes(attribute.StringSlice(attrFinishReasons, []string{resp.FinishReason}))
	}

	span.AddEvent(eventAssistantMessage, trace.WithAttributes(
		attribute.String("content", redact.Truncate(redact.Scrub(resp.Content), completionEventLimit)),
	))

	e.metrics.TokenUsage.Record(ctx, int64(resp.InputTokens), metric.WithAttributes(
		attribute.String(attrProviderName, p.Name()),
		attribute.String(attrRequestModel, req.Model),
		attribute.String(attrTokenType, "input"),
	))
	e.metrics.TokenUsage.Record(ctx, int64(resp.OutputTokens), metric.WithAttributes(
		attribute.String(attrProviderName, p.Name()),
		attribute.String(attrRequestModel, req.Model),
		attribute.String(attrTokenType, "output"),
	))
	e.metrics.Cost.Add(ctx, resp.CostUSD, commonAttrs)

	return resp, nil
}
