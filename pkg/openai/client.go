// Package openai provides OpenAI-backed implementations of the ai.Embedder
// and ai.Chatter interfaces over the plain HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the hosted API endpoint.
	DefaultBaseURL = "https://api.openai.com"
	// DefaultEmbedModel matches the original index's embedding space.
	DefaultEmbedModel = "text-embedding-ada-002"
	// DefaultChatModel is the commentary model.
	DefaultChatModel = "gpt-4o-mini"
)

// Client talks to the OpenAI embeddings and chat completions endpoints.
// Outbound calls share a token bucket so bursts of submissions don't
// trip the account rate limit.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	chatModel  string
	httpc      *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests and proxies).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithEmbedModel overrides the embedding model.
func WithEmbedModel(m string) Option { return func(c *Client) { c.embedModel = m } }

// WithChatModel overrides the chat model.
func WithChatModel(m string) Option { return func(c *Client) { c.chatModel = m } }

// WithRateLimit overrides the outbound requests-per-second budget.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

// New creates a Client with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		embedModel: DefaultEmbedModel,
		chatModel:  DefaultChatModel,
		httpc:      &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(3), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements ai.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embedResponse
	if err := c.post(ctx, "/v1/embeddings", embedRequest{Model: c.embedModel, Input: text}, &result); err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}
	out := make([]float32, len(result.Data[0].Embedding))
	for i, v := range result.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat implements ai.Chatter.
func (c *Client) Chat(ctx context.Context, system, prompt string) (string, error) {
	req := chatRequest{
		Model:       c.chatModel,
		Temperature: 0.3,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	var result chatResponse
	if err := c.post(ctx, "/v1/chat/completions", req, &result); err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
