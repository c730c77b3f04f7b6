package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// ProvisioningPolicy selects how index schema provisioning treats an
// existing index at startup.
type ProvisioningPolicy string

const (
	// ProvisionEnsure leaves an existing index untouched (safe default).
	ProvisionEnsure ProvisioningPolicy = "ensure"
	// ProvisionRecreate drops and rebuilds the index, discarding all
	// indexed data. Development only.
	ProvisionRecreate ProvisioningPolicy = "recreate"
)

// Config holds the configuration for the record store.
// Environment variables are parsed from the RECALL_ prefix,
// e.g. RECALL_STORE_URL, RECALL_VECTOR_DIM.
type Config struct {
	// StoreURL is the Weaviate host:port (no scheme).
	StoreURL string `envconfig:"STORE_URL" default:"localhost:8080"`

	// Class names backing the two store instantiations.
	IdeaIndex   string `envconfig:"IDEA_INDEX" default:"Idea"`
	MemoryIndex string `envconfig:"MEMORY_INDEX" default:"Memory"`

	// IndexPolicy is "ensure" or "recreate" (see ProvisioningPolicy).
	IndexPolicy string `envconfig:"INDEX_POLICY" default:"ensure"`

	// Embedding configuration.
	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	EmbedURL      string `envconfig:"EMBED_URL" default:"http://localhost:11434"`

	// VectorDim is the fixed embedding dimension for the store. A provider
	// returning any other dimension is a fatal configuration error.
	VectorDim int `envconfig:"VECTOR_DIM" default:"1024"`

	// Search defaults.
	SearchThreshold float64 `envconfig:"SEARCH_THRESHOLD" default:"0.1"`
	ListLimit       int     `envconfig:"LIST_LIMIT" default:"50"`
}

// Validate rejects configurations the store cannot start with. Missing
// required values are a startup error, never deferred to first use.
func (c *Config) Validate() error {
	if c.StoreURL == "" {
		return fmt.Errorf("RECALL_STORE_URL is required")
	}
	if c.IdeaIndex == "" || c.MemoryIndex == "" {
		return fmt.Errorf("index names must not be empty")
	}
	if c.EmbedModel == "" {
		return fmt.Errorf("RECALL_EMBED_MODEL is required")
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("RECALL_VECTOR_DIM must be positive, got %d", c.VectorDim)
	}
	switch ProvisioningPolicy(c.IndexPolicy) {
	case ProvisionEnsure, ProvisionRecreate:
	default:
		return fmt.Errorf("unsupported RECALL_INDEX_POLICY: %q", c.IndexPolicy)
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return fmt.Errorf("RECALL_SEARCH_THRESHOLD must be in [0,1], got %g", c.SearchThreshold)
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("RECALL_LIST_LIMIT must be positive, got %d", c.ListLimit)
	}
	return nil
}

// Policy returns the parsed provisioning policy. Call Validate first.
func (c *Config) Policy() ProvisioningPolicy {
	return ProvisioningPolicy(c.IndexPolicy)
}

// New creates a Config by parsing RECALL_-prefixed environment variables
// and validating the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("store_url", cfg.StoreURL).
		Str("idea_index", cfg.IdeaIndex).
		Str("memory_index", cfg.MemoryIndex).
		Str("index_policy", cfg.IndexPolicy).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("vector_dim", cfg.VectorDim).
		Float64("search_threshold", cfg.SearchThreshold).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a config suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		StoreURL:        "localhost:8080",
		IdeaIndex:       "TestIdea",
		MemoryIndex:     "TestMemory",
		IndexPolicy:     string(ProvisionRecreate),
		EmbedProvider:   "ollama",
		EmbedModel:      "mxbai-embed-large",
		EmbedURL:        "http://localhost:11434",
		VectorDim:       8,
		SearchThreshold: 0.1,
		ListLimit:       50,
	}
}
