package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dtmai/genai-gateway/internal/provider"
)

const defaultPort = 11434

// OllamaProvider talks to a local Ollama server via its /api/chat endpoint.
type OllamaProvider struct {
	baseURL string
	host    string
	port    int
	client  *http.Client
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// New creates an Ollama provider from a base URL such as
// "http://localhost:11434". An empty baseURL uses the default.
func New(baseURL string) (provider.Provider, error) {
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", defaultPort)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}

	port := defaultPort
	if s := u.Port(); s != "" {
		port, err = strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama port in %q: %w", baseURL, err)
		}
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		host:    u.Hostname(),
		port:    port,
		client:  http.DefaultClient,
	}, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, &provider.Error{Provider: p.Name(), Err: err}
	}

	url := fmt.Sprintf("%s/api/chat", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &provider.Error{Provider: p.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &provider.Error{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &provider.Error{
			Provider: p.Name(),
			Err:      fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, &provider.Error{Provider: p.Name(), Err: err}
	}

	model := ollamaResp.Model
	if model == "" {
		model = req.Model
	}

	return &provider.Response{
		Content:      ollamaResp.Message.Content,
		Model:        model,
		InputTokens:  ollamaResp.PromptEvalCount,
		OutputTokens: ollamaResp.EvalCount,
		FinishReason: ollamaResp.DoneReason,
	}, nil
}

func (p *OllamaProvider) mapRequest(req *provider.Request) ollamaRequest {
	var messages []ollamaMessage
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.Prompt})

	out := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		out.Options = &ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		}
	}
	return out
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Host() string {
	return p.host
}

func (p *OllamaProvider) Port() int {
	return p.port
}
