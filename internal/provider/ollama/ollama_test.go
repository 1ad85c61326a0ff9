package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtmai/genai-gateway/internal/provider"
)

func TestGenerate_Mock(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected /api/chat, got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		resp := ollamaResponse{
			Model:           "llama3.2",
			Message:         ollamaMessage{Role: "assistant", Content: "Hello from Ollama mock!"},
			DoneReason:      "stop",
			PromptEvalCount: 5,
			EvalCount:       9,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := New(server.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := p.Generate(context.Background(), &provider.Request{
		Model:     "llama3.2",
		Prompt:    "hi",
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Content != "Hello from Ollama mock!" {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 9 {
		t.Errorf("Unexpected usage: %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if captured.Stream {
		t.Error("Expected stream=false")
	}
	if captured.Options == nil || captured.Options.NumPredict != 64 {
		t.Errorf("Expected num_predict=64, got %+v", captured.Options)
	}
}

func TestDefaultEndpoint(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama, got %s", p.Name())
	}
	if p.Host() != "localhost" {
		t.Errorf("Expected localhost, got %s", p.Host())
	}
	if p.Port() != 11434 {
		t.Errorf("Expected 11434, got %d", p.Port())
	}
}

func TestExplicitEndpoint(t *testing.T) {
	p, err := New("http://ollama.internal:8080")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.Host() != "ollama.internal" {
		t.Errorf("Expected ollama.internal, got %s", p.Host())
	}
	if p.Port() != 8080 {
		t.Errorf("Expected 8080, got %d", p.Port())
	}
}

func TestGenerate_ModelUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := New(server.URL)
	_, err := p.Generate(context.Background(), &provider.Request{Model: "nope", Prompt: "hi"})
	if err == nil {
		t.Fatal("Expected error for missing model")
	}
}
