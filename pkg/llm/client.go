// Package llm is the thin HTTP boundary to the summarization provider that
// pkg/providerlimit regulates (spec.md §4.3). The prompt text itself is an
// out-of-scope collaborator (spec.md §1); this package only owns the wire
// call and the rate-limit header extraction the ProviderLimiter consumes.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/engagic/pipeline/pkg/providerlimit"
)

// Result is what a successful Summarize call returns. Summarize fills only
// Text; Topics is always left empty.
type Result struct {
	Text   string
	Topics []string
}

// Client is the capability the Processor depends on (spec.md §4.9: "invoke
// the LLM through ProviderLimiter with the canonical prompt").
type Client interface {
	Summarize(ctx context.Context, model, prompt string) (Result, providerlimit.Headers, error)
}

// HTTPClient is the default Client, speaking the Anthropic Messages API
// shape spec.md §4.3 describes headers for (anthropic-ratelimit-*).
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewHTTPClient constructs a Client against baseURL (e.g.
// "https://api.anthropic.com") using apiKey for auth.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []messageContent `json:"messages"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize posts prompt to the provider and returns its text response plus
// the rate-limit headers spec.md §4.3 parses (anthropic-ratelimit-requests-
// remaining/reset, retry-after).
func (c *HTTPClient) Summarize(ctx context.Context, model, prompt string) (Result, providerlimit.Headers, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: 4096,
		Messages:  []messageContent{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Result{}, providerlimit.Headers{}, fmt.Errorf("encoding summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Result{}, providerlimit.Headers{}, fmt.Errorf("building summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, providerlimit.Headers{}, fmt.Errorf("calling summarize provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	headers := providerlimit.Headers{
		RequestsRemaining: resp.Header.Get("anthropic-ratelimit-requests-remaining"),
		RequestsReset:     resp.Header.Get("anthropic-ratelimit-requests-reset"),
		RetryAfter:        resp.Header.Get("retry-after"),
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, headers, fmt.Errorf("reading summarize response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 529 {
		return Result{}, headers, &providerlimit.ErrRateLimited{Status: resp.StatusCode, Inner: fmt.Errorf("%s", raw)}
	}
	if resp.StatusCode >= 400 {
		return Result{}, headers, fmt.Errorf("summarize provider returned status %d: %s", resp.StatusCode, raw)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, headers, fmt.Errorf("decoding summarize response: %w", err)
	}

	var text string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return Result{Text: text}, headers, nil
}
