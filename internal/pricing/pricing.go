package pricing

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rate holds per-million-token USD prices for one model.
type Rate struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Table maps model identifiers to token rates. Immutable after Load; safe
// for concurrent readers.
type Table struct {
	rates    map[string]Rate
	fallback Rate
}

// defaultFallback is applied to any model the table does not know. Cost is
// a best-effort observability signal, so unknown models price at a fixed
// rate instead of failing the call.
var defaultFallback = Rate{Input: 3.0, Output: 15.0}

// builtinRates cover the models the sample adapters default to, so the
// gateway prices sensibly even without a pricing file.
var builtinRates = map[string]Rate{
	"gpt-4.1":           {Input: 2.0, Output: 8.0},
	"gpt-4.1-mini":      {Input: 0.4, Output: 1.6},
	"gpt-4o":            {Input: 2.5, Output: 10.0},
	"gpt-4o-mini":       {Input: 0.15, Output: 0.6},
	"claude-sonnet-4-5": {Input: 3.0, Output: 15.0},
	"claude-haiku-4-5":  {Input: 1.0, Output: 5.0},
	"gemini-2.0-flash":  {Input: 0.1, Output: 0.4},
	// Local models are free to run; zero rates keep their cost at 0.
	"llama3.2": {Input: 0, Output: 0},
}

// Default returns a table with the built-in rates only.
func Default() *Table {
	rates := make(map[string]Rate, len(builtinRates))
	for model, rate := range builtinRates {
		rates[model] = rate
	}
	return &Table{rates: rates, fallback: defaultFallback}
}

// Load reads a JSON pricing file keyed by model name and merges it over the
// built-in rates. A missing file is not an error: the built-ins apply. A
// present but malformed file is an error so a bad deploy is caught early.
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var fileRates map[string]Rate
	if err := json.Unmarshal(data, &fileRates); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %s: %w", path, err)
	}

	for model, rate := range fileRates {
		t.rates[model] = rate
	}
	return t, nil
}

// Cost computes the USD cost of a call. Unknown models use the fallback
// rate; this never fails.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := t.rates[model]
	if !ok {
		rate = t.fallback
	}
	return (float64(inputTokens)*rate.Input + float64(outputTokens)*rate.Output) / 1_000_000
}

// HasModel reports whether the table carries an explicit rate for model.
func (t *Table) HasModel(model string) bool {
	_, ok := t.rates[model]
	return ok
}

// Rate returns the effective rate for a model, falling back for unknown ones.
func (t *Table) Rate(model string) Rate {
	if rate, ok := t.rates[model]; ok {
		return rate
	}
	return t.fallback
}
