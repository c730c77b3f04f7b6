// Package ollama implements the embeddings.Provider contract against the
// Ollama HTTP API.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/recallhq/recall/internal/embeddings"
	"github.com/recallhq/recall/internal/model"
)

// Provider calls the Ollama /api/embed endpoint.
type Provider struct {
	client *resty.Client
	model  string
}

// New creates a Provider for the given model. baseURL may omit the scheme;
// http is assumed.
func New(model, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &Provider{client: c, model: model}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Model           string      `json:"model"`
	Embeddings      [][]float64 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	Error           string      `json:"error"`
}

// Embed generates a dense vector for the given text. The text is trimmed
// before submission; an empty string is still sent, so a provider-side
// rejection surfaces as an embedding failure, not an empty result.
func (p *Provider) Embed(ctx context.Context, text string) (embeddings.Embedding, error) {
	reqBody := embedRequest{Model: p.model, Input: strings.TrimSpace(text)}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/api/embed")
	if err != nil {
		return embeddings.Embedding{}, fmt.Errorf("%w: ollama request: %v", model.ErrEmbeddingFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return embeddings.Embedding{}, fmt.Errorf("%w: ollama status %d: %s",
			model.ErrEmbeddingFailed, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var er embedResponse
	if err := json.Unmarshal(resp.Body(), &er); err != nil {
		return embeddings.Embedding{}, fmt.Errorf("%w: decode response: %v", model.ErrEmbeddingFailed, err)
	}
	if er.Error != "" {
		return embeddings.Embedding{}, fmt.Errorf("%w: ollama: %s", model.ErrEmbeddingFailed, er.Error)
	}
	if len(er.Embeddings) == 0 {
		return embeddings.Embedding{}, fmt.Errorf("%w: ollama returned no embedding", model.ErrEmbeddingFailed)
	}

	raw := er.Embeddings[0]
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return embeddings.Embedding{Vector: vec, Tokens: er.PromptEvalCount}, nil
}

// EmbedBatch embeds each text in turn. Requests are issued one at a time so
// every item carries its own token count; output order matches input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	out := make([]embeddings.Embedding, 0, len(texts))
	for i, text := range texts {
		e, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// HealthPing checks /api/tags for the configured model's presence.
func (p *Provider) HealthPing(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return err
	}
	want := baseModelName(p.model)
	for _, m := range data.Models {
		if baseModelName(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found", want)
}

// baseModelName strips the tag suffix, e.g. "mxbai-embed-large:latest".
func baseModelName(name string) string {
	return strings.Split(name, ":")[0]
}

var _ embeddings.Provider = (*Provider)(nil)
