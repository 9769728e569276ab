package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docufind/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:             baseURL,
		APIKey:              "test-key",
		GenModel:            "docufind-adjudicator",
		EmbedModel:          "docufind-embedder",
		RequestTimeout:      5 * time.Second,
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     5 * time.Millisecond,
		BreakerOpenTimeout:  time.Second,
		BreakerMinRequests:  100,
		BreakerFailureRatio: 0.9,
	}
}

func TestGenerateJSON(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"response":      `{"overall_score": 80}`,
			"model_version": "v3",
			"usage":         map[string]int{"prompt_tokens": 120, "completion_tokens": 40},
		})
	}))
	defer server.Close()

	client := NewClient(testAIConfig(server.URL))
	result, err := client.GenerateJSON(context.Background(), "compare these documents")
	require.NoError(t, err)

	assert.Equal(t, `{"overall_score": 80}`, result.Text)
	assert.Equal(t, "v3", result.ModelVersion)
	assert.Equal(t, 120, result.PromptTokens)
	assert.Equal(t, 40, result.CompletionTokens)

	assert.Equal(t, "docufind-adjudicator", gotBody["model"])
	assert.Equal(t, "compare these documents", gotBody["prompt"])
	assert.Equal(t, "json", gotBody["format"])
	assert.Equal(t, false, gotBody["stream"])
}

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	client := NewClient(testAIConfig(server.URL))
	vector, err := client.EmbedQuery(context.Background(), "national id card KOFI MENSAH")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEmbedQueryEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
	}))
	defer server.Close()

	client := NewClient(testAIConfig(server.URL))
	_, err := client.EmbedQuery(context.Background(), "anything")
	assert.Error(t, err)
}

// resilientClient builds the wrapped client the way main does, so the tests
// exercise the single policy layer production traffic goes through.
func resilientClient(baseURL string) *ResilientClient {
	cfg := testAIConfig(baseURL)
	return WithResilience(NewClient(cfg), NewExecutor(cfg))
}

func TestGenerateJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "{}", "model_version": "v3"})
	}))
	defer server.Close()

	result, err := resilientClient(server.URL).GenerateJSON(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "{}", result.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := resilientClient(server.URL).GenerateJSON(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestGenerateJSONExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := resilientClient(server.URL).GenerateJSON(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPlainClientIssuesExactlyOneRequest(t *testing.T) {
	// The bare client carries no retry loop of its own; wrapping it must not
	// multiply attempts.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testAIConfig(server.URL))
	_, err := client.GenerateJSON(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.EmbedQuery(context.Background(), "text")
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecutorStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(testAIConfig(""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "generate", func(ctx context.Context) error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsCircuitOpen(t *testing.T) {
	assert.False(t, IsCircuitOpen(nil))
	assert.False(t, IsCircuitOpen(context.Canceled))

	// Trip a breaker for real: low thresholds, persistent failure.
	cfg := testAIConfig("")
	cfg.RetryMaxAttempts = 1
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	exec := NewExecutor(cfg)

	failing := func(ctx context.Context) error {
		return &transientError{err: assert.AnError}
	}
	for i := 0; i < 5; i++ {
		exec.Execute(context.Background(), "embed", failing)
	}
	err := exec.Execute(context.Background(), "embed", failing)
	assert.True(t, IsCircuitOpen(err))
}
