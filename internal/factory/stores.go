package factory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/records"
	"github.com/recallhq/recall/internal/searchindex"
)

// Stores bundles the two store instantiations.
type Stores struct {
	Ideas    *records.Service
	Memories *records.Service
}

// newIndex builds a provisioned index for one class. Provisioning is
// synchronous: the index is not handed out until the schema exists, so no
// read or write can race it.
func newIndex(ctx context.Context, cfg *config.Config, class string, log zerolog.Logger) (searchindex.Index, error) {
	idx, err := searchindex.NewWeaviateIndex(cfg.StoreURL, class, searchindex.Policy(cfg.Policy()), log)
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// NewStores wires both record stores from config: embedding provider,
// provisioned indexes, and the schema-parameterized services.
func NewStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	emb, err := NewEmbeddingProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	ideaIdx, err := newIndex(ctx, cfg, cfg.IdeaIndex, log)
	if err != nil {
		return nil, err
	}
	memIdx, err := newIndex(ctx, cfg, cfg.MemoryIndex, log)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Ideas:    records.New(ideaIdx, emb, records.IdeaSchema(cfg.IdeaIndex), cfg.VectorDim, log),
		Memories: records.New(memIdx, emb, records.MemorySchema(cfg.MemoryIndex), cfg.VectorDim, log),
	}, nil
}
