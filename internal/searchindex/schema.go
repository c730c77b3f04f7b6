package searchindex

import (
	"context"
	"fmt"

	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/recallhq/recall/internal/model"
)

// Policy selects how EnsureSchema treats an already-provisioned class.
type Policy string

const (
	// PolicyEnsure leaves an existing class untouched (idempotent-create).
	// This is the production-safe choice.
	PolicyEnsure Policy = "ensure"
	// PolicyRecreate drops an existing class and rebuilds it from the
	// current schema, discarding all indexed data. Development only.
	PolicyRecreate Policy = "recreate"
)

// EnsureSchema provisions the record class: text fields for title/content,
// scalar metadata fields, a text[] tag field queried with ContainsAny, a
// JSON reminders payload, RFC3339 date fields, and an HNSW vector index
// using cosine distance. Vectors are supplied by the embedding adapter, so
// the vectorizer is "none".
//
// Weaviate infers the vector dimension from the first object; the configured
// dimension is enforced by the record service on every embedding.
func (w *weavIndex) EnsureSchema(ctx context.Context) error {
	existing, err := w.client.Schema().ClassGetter().
		WithClassName(w.class).Do(ctx)
	if err == nil && existing != nil {
		if w.policy == PolicyEnsure {
			w.log.Debug().Str("class", w.class).Msg("index class already provisioned")
			return nil
		}
		w.log.Warn().Str("class", w.class).Msg("recreate policy: dropping existing index class")
		if err := w.client.Schema().ClassDeleter().
			WithClassName(w.class).Do(ctx); err != nil {
			return fmt.Errorf("%w: delete class %s: %v", model.ErrStoreUnavailable, w.class, err)
		}
	}

	class := &wmodels.Class{
		Class:           w.class,
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*wmodels.Property{
			{Name: "recordId", DataType: []string{"uuid"}},
			// Whole-value tokenization so Equal/ContainsAny match the
			// exact stored value, not individual words.
			{Name: "ownerId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "conversationId", DataType: []string{"int"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "priority", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "status", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "tags", DataType: []string{"text[]"}, Tokenization: "field"},
			{Name: "remindersJson", DataType: []string{"text"}},
			{Name: "creationTime", DataType: []string{"date"}},
			{Name: "updateTime", DataType: []string{"date"}},
		},
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("%w: create class %s: %v", model.ErrStoreUnavailable, w.class, err)
	}
	w.log.Info().Str("class", w.class).Str("policy", string(w.policy)).Msg("index class provisioned")
	return nil
}
