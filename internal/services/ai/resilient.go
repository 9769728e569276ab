package ai

import "context"

// ModelService is the full model-provider surface.
type ModelService interface {
	Oracle
	Embedder
}

// ResilientClient decorates a model client with the executor's retry and
// circuit-breaker policy. Callers keep the plain Oracle/Embedder interfaces.
type ResilientClient struct {
	inner ModelService
	exec  *Executor
}

// WithResilience wraps a model client.
func WithResilience(inner ModelService, exec *Executor) *ResilientClient {
	return &ResilientClient{inner: inner, exec: exec}
}

// GenerateJSON runs the completion through the "generate" breaker.
func (r *ResilientClient) GenerateJSON(ctx context.Context, prompt string) (GenerateResult, error) {
	var result GenerateResult
	err := r.exec.Execute(ctx, "generate", func(ctx context.Context) error {
		var callErr error
		result, callErr = r.inner.GenerateJSON(ctx, prompt)
		return callErr
	})
	return result, err
}

// EmbedQuery runs the embedding through the "embed" breaker.
func (r *ResilientClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := r.exec.Execute(ctx, "embed", func(ctx context.Context) error {
		var callErr error
		vector, callErr = r.inner.EmbedQuery(ctx, text)
		return callErr
	})
	return vector, err
}
