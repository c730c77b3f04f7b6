// Package embeddings defines the embedding provider contract used by the
// record store.
package embeddings

import "context"

// Embedding is one provider result: a dense vector plus the token count the
// provider charged for the input.
type Embedding struct {
	Vector []float32
	Tokens int
}

// Provider produces vector representations for text. Implementations must
// trim input text before submission and must not retry internally; failures
// wrap model.ErrEmbeddingFailed and are propagated verbatim to the caller.
//
// Empty input is submitted like any other text: a provider that rejects it
// fails the call rather than returning an empty result.
type Provider interface {
	Embed(ctx context.Context, text string) (Embedding, error)
	// EmbedBatch preserves input order in the returned slice.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// HealthPinger is optionally implemented by a Provider to expose a cheap
// readiness probe. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
