// Package embedtest provides a deterministic in-process embedding provider
// for tests. Vectors are derived from a hash of the input text, so equal
// texts embed identically and different texts almost surely do not.
package embedtest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"

	"github.com/recallhq/recall/internal/embeddings"
)

// Provider implements embeddings.Provider without any network calls.
type Provider struct {
	Dim int
	// Err, when non-nil, is returned from every call. Lets tests simulate
	// provider outages.
	Err error
	// FailOnEmpty makes the provider reject empty input like a real
	// provider that requires non-empty text.
	FailOnEmpty bool
}

// New returns a provider emitting unit vectors of the given dimension.
func New(dim int) *Provider { return &Provider{Dim: dim} }

func (p *Provider) Embed(_ context.Context, text string) (embeddings.Embedding, error) {
	if p.Err != nil {
		return embeddings.Embedding{}, p.Err
	}
	text = strings.TrimSpace(text)
	if p.FailOnEmpty && text == "" {
		return embeddings.Embedding{}, errEmpty
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.Dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return embeddings.Embedding{Vector: vec, Tokens: len(strings.Fields(text))}, nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	out := make([]embeddings.Embedding, 0, len(texts))
	for _, t := range texts {
		e, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var errEmpty = errors.New("empty input")

var _ embeddings.Provider = (*Provider)(nil)
