package gateway

import "fmt"

// ExhaustedError means every attempt against a single provider failed. It
// always wraps the last underlying provider error.
type ExhaustedError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("provider %s exhausted after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// GatewayError is the terminal failure surfaced to the caller: the primary
// leg was exhausted and either no fallback was configured or the fallback
// leg was exhausted too. Provider names the primary provider.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("generation failed (primary provider %s): %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
