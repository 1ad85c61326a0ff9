package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dtmai/genai-gateway/internal/auth"
	"github.com/dtmai/genai-gateway/internal/billing"
	"github.com/dtmai/genai-gateway/internal/provider"
	"github.com/dtmai/genai-gateway/internal/redact"
	"github.com/dtmai/genai-gateway/internal/worker"
	"github.com/dtmai/genai-gateway/pkg/ratelimit"
)

// Gateway is the surface of the generation client the handler needs.
type Gateway interface {
	Generate(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// Defaults fill in request fields the client omitted.
type Defaults struct {
	Temperature float64
	MaxTokens   int
}

type Handler struct {
	gw       Gateway
	breaker  *gobreaker.CircuitBreaker
	billing  billing.Store
	recorder *worker.Recorder
	limiter  *ratelimit.Limiter
	tracer   trace.Tracer
	defaults Defaults
}

// NewHandler wires the HTTP surface. The circuit breaker sits outside the
// gateway so it observes terminal failures only, never individual retries.
func NewHandler(gw Gateway, store billing.Store, recorder *worker.Recorder, limiter *ratelimit.Limiter, tracer trace.Tracer, defaults Defaults) *Handler {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Handler{
		gw:       gw,
		breaker:  breaker,
		billing:  store,
		recorder: recorder,
		limiter:  limiter,
		tracer:   tracer,
		defaults: defaults,
	}
}

type generateRequest struct {
	Model       string   `json:"model"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stage       string   `json:"stage,omitempty"`
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.GetTenantID(ctx)
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID := auth.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Model == "" || body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "model and prompt are required")
		return
	}

	req := &provider.Request{
		Model:       body.Model,
		System:      body.System,
		Prompt:      body.Prompt,
		Temperature: h.defaults.Temperature,
		MaxTokens:   h.defaults.MaxTokens,
		Stage:       body.Stage,
	}
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	if body.MaxTokens > 0 {
		req.MaxTokens = body.MaxTokens
	}

	ctx, span := h.tracer.Start(ctx, "proxy.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("request_id", requestID),
		attribute.String("model", req.Model),
	)

	estimatedTokens := req.MaxTokens
	if estimatedTokens <= 0 {
		estimatedTokens = 1000
	}
	allowed, err := h.limiter.Allow(ctx, tenantID, estimatedTokens)
	if err != nil || !allowed {
		w.Header().Set("Retry-After", "60s")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if budget := auth.GetBudgetUSD(ctx); budget > 0 {
		if exceeded, err := h.budgetExceeded(ctx, tenantID, budget); err == nil && exceeded {
			writeError(w, http.StatusPaymentRequired, "monthly budget exceeded")
			return
		}
	}

	start := time.Now()
	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.gw.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			writeError(w, http.StatusServiceUnavailable, "upstream temporarily unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := result.(*provider.Response)

	h.recorder.Record(&billing.UsageLog{
		TenantID:     tenantID,
		RequestID:    requestID,
		Provider:     resp.Provider,
		Model:        resp.Model,
		Stage:        req.Stage,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.CostUSD,
		FinishReason: resp.FinishReason,
		Fallback:     resp.Fallback,
		LatencyMs:    time.Since(start).Milliseconds(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       requestID,
		"object":   "chat.completion",
		"model":    resp.Model,
		"provider": resp.Provider,
		"fallback": resp.Fallback,
		"choices": []interface{}{
			map[string]interface{}{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": redact.Scrub(resp.Content),
				},
				"finish_reason": resp.FinishReason,
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     resp.InputTokens,
			"completion_tokens": resp.OutputTokens,
			"total_tokens":      resp.InputTokens + resp.OutputTokens,
			"cost_usd":          resp.CostUSD,
		},
	})
}

// budgetExceeded compares the tenant's month-to-date spend with its cap.
func (h *Handler) budgetExceeded(ctx context.Context, tenantID string, budget float64) (bool, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	spent, err := h.billing.GetTotalCostByTenant(ctx, tenantID, monthStart, now)
	if err != nil {
		return false, fmt.Errorf("failed to check budget: %w", err)
	}
	return spent >= budget, nil
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.GetTenantID(ctx)
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -30) // default: last 30 days
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date format (use RFC3339)")
			return
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date format (use RFC3339)")
			return
		}
	}

	logs, err := h.billing.GetUsageByTenant(ctx, tenantID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalCost, err := h.billing.GetTotalCostByTenant(ctx, tenantID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byModel, err := h.billing.GetCostByModel(ctx, tenantID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":      tenantID,
		"total_requests": len(logs),
		"total_cost_usd": totalCost,
		"by_model":       byModel,
		"logs":           logs,
		"from":           from,
		"to":             to,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
