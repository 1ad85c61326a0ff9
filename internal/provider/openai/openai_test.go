package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtmai/genai-gateway/internal/provider"
)

func TestGenerate_Mock(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		resp := openAIResponse{
			ID: "test-id",
			Choices: []openAIChoice{
				{
					Message:      openAIMessage{Role: "assistant", Content: "Hello from OpenAI mock!"},
					FinishReason: "stop",
				},
			},
			Usage: openAIUsage{
				PromptTokens:     15,
				CompletionTokens: 25,
			},
			Model: "gpt-4o-mini",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := &OpenAIProvider{
		apiKey:  "test-key",
		baseURL: server.URL,
		client:  http.DefaultClient,
	}

	req := &provider.Request{
		Model:  "gpt-4o-mini",
		System: "be brief",
		Prompt: "hi",
	}

	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Content != "Hello from OpenAI mock!" {
		t.Errorf("Expected 'Hello from OpenAI mock!', got %s", resp.Content)
	}
	if resp.InputTokens != 15 {
		t.Errorf("Expected 15 input tokens, got %d", resp.InputTokens)
	}
	if resp.OutputTokens != 25 {
		t.Errorf("Expected 25 output tokens, got %d", resp.OutputTokens)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected finish reason stop, got %s", resp.FinishReason)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("Expected system + user messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "be brief" {
		t.Errorf("Expected system message first, got %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "hi" {
		t.Errorf("Expected user message second, got %+v", captured.Messages[1])
	}
}

func TestGenerate_NoSystemMessage(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	p := &OpenAIProvider{apiKey: "k", baseURL: server.URL, client: http.DefaultClient}
	_, err := p.Generate(context.Background(), &provider.Request{Model: "gpt-4o", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(captured.Messages) != 1 {
		t.Errorf("Expected 1 message without system instruction, got %d", len(captured.Messages))
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := &OpenAIProvider{apiKey: "k", baseURL: server.URL, client: http.DefaultClient}
	_, err := p.Generate(context.Background(), &provider.Request{Model: "gpt-4o", Prompt: "hi"})
	if err == nil {
		t.Fatal("Expected error for 503 response")
	}

	var perr *provider.Error
	ok := false
	if e, isProvider := err.(*provider.Error); isProvider {
		perr, ok = e, true
	}
	if !ok {
		t.Fatalf("Expected *provider.Error, got %T", err)
	}
	if perr.Provider != "openai" {
		t.Errorf("Expected provider openai, got %s", perr.Provider)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{Model: "gpt-4o"})
	}))
	defer server.Close()

	p := &OpenAIProvider{apiKey: "k", baseURL: server.URL, client: http.DefaultClient}
	_, err := p.Generate(context.Background(), &provider.Request{Model: "gpt-4o", Prompt: "hi"})
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}
}

func TestEndpoint(t *testing.T) {
	p := New("k")
	if p.Name() != "openai" {
		t.Errorf("Expected openai, got %s", p.Name())
	}
	if p.Host() != "api.openai.com" {
		t.Errorf("Expected api.openai.com, got %s", p.Host())
	}
	if p.Port() != 443 {
		t.Errorf("Expected 443, got %d", p.Port())
	}
}
