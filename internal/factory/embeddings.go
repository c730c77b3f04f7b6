// Package factory wires configuration into ready-to-use store components.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/embeddings"
	"github.com/recallhq/recall/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates an embedding provider based on config.
func NewEmbeddingProvider(cfg *config.Config, log zerolog.Logger) (embeddings.Provider, error) {
	switch cfg.EmbedProvider {
	case "", "ollama":
		log.Debug().Str("model", cfg.EmbedModel).Str("url", cfg.EmbedURL).Msg("using ollama embedding provider")
		return ollama.New(cfg.EmbedModel, cfg.EmbedURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}
