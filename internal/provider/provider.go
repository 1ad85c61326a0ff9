package provider

import (
	"context"
	"fmt"
)

// Request is a single generation request. Values are set once by the caller
// and never mutated by adapters or the gateway.
type Request struct {
	Model       string
	System      string // optional system instruction
	Prompt      string
	Temperature float64
	MaxTokens   int
	Stage       string // optional pipeline-stage label, e.g. "classification"
}

// Response is the normalized result of one provider call. CostUSD,
// Provider, LatencyMs and Fallback are filled in by the gateway after the
// call; adapters have no pricing or routing knowledge and must leave them
// zero.
type Response struct {
	Content      string
	Model        string // resolved model, may differ from Request.Model
	InputTokens  int
	OutputTokens int
	FinishReason string
	CostUSD      float64
	Provider     string // serving provider name
	LatencyMs    int64
	Fallback     bool // true when the fallback provider served the call
}

// Provider is implemented once per LLM backend. Adapters translate Request
// into the backend wire format and back; they emit no spans or metrics and
// keep no per-call state, so a single instance is safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider identifier, e.g. "openai" or "ollama".
	Name() string

	// Host and Port describe the upstream endpoint for telemetry.
	// Cloud backends report their API host and 443; a local Ollama
	// reports whatever its base URL resolves to (11434 by default).
	Host() string
	Port() int
}

// Error wraps an upstream failure with the provider that produced it. The
// gateway retries every adapter error the same way regardless of type; this
// exists for error reporting, not for retry classification.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
