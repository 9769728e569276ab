package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/docufind/backend/internal/config"
)

// GenerateResult is the raw outcome of one oracle call.
type GenerateResult struct {
	Text             string
	ModelVersion     string
	PromptTokens     int
	CompletionTokens int
}

// Oracle is the extraction/adjudication LLM interface consumed by the
// matching and case pipelines.
type Oracle interface {
	GenerateJSON(ctx context.Context, prompt string) (GenerateResult, error)
}

// Embedder produces embedding vectors for semantic candidate search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Client talks to the model service over HTTP. It issues exactly one request
// per call; retry and circuit-breaker policy is layered on by WithResilience
// so the two never stack.
type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
}

// NewClient creates a model-service client from configuration.
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// GenerateJSON asks the generative model for a JSON-mode completion.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (GenerateResult, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response     string `json:"response"`
		ModelVersion string `json:"model_version"`
		Usage        struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := c.postJSON(ctx, "/api/generate", reqBody, &response); err != nil {
		return GenerateResult{}, err
	}

	return GenerateResult{
		Text:             response.Response,
		ModelVersion:     response.ModelVersion,
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
	}, nil
}

// EmbedQuery returns the embedding vector for a single text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]any{
		"model": c.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	if err := c.postJSON(ctx, "/api/embed", reqBody, &response); err != nil {
		return nil, err
	}

	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("model service request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &transientError{err: fmt.Errorf("model service status %s: %s", resp.Status, truncate(raw, 200))}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("model service status %s: %s", resp.Status, truncate(raw, 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(raw []byte, n int) string {
	s := string(raw)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
