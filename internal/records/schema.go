// Package records implements the semantic record store: metadata-schema
// parameterized CRUD over embedded text records, similarity search, and the
// reminder due-scan.
package records

import (
	"fmt"

	"github.com/recallhq/recall/internal/model"
)

// Schema parameterizes a store instantiation: the backing index class and
// the enum value sets with their defaults. The "idea" and "memory" stores
// are the same Service running with different Schema values.
type Schema struct {
	// Name is the index class backing this instantiation.
	Name string

	Categories      []string
	DefaultCategory string

	Priorities      []string
	DefaultPriority string

	Statuses      []string
	DefaultStatus string
}

// IdeaSchema returns the schema for the idea store.
func IdeaSchema(name string) Schema {
	return Schema{
		Name:            name,
		Categories:      []string{"business", "personal", "technical", "creative", "other"},
		DefaultCategory: "other",
		Priorities:      []string{"low", "medium", "high"},
		DefaultPriority: "medium",
		Statuses:        []string{"active", "archived", "completed"},
		DefaultStatus:   "active",
	}
}

// MemorySchema returns the schema for the memory store.
func MemorySchema(name string) Schema {
	return Schema{
		Name:            name,
		Categories:      []string{"personal", "work", "family", "health", "travel", "other"},
		DefaultCategory: "other",
		Priorities:      []string{"low", "medium", "high"},
		DefaultPriority: "medium",
		Statuses:        []string{"active", "archived"},
		DefaultStatus:   "active",
	}
}

// defaulted returns def when v is empty, v when it is an allowed value, and
// a validation error otherwise.
func defaulted(field, v, def string, allowed []string) (string, error) {
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: invalid %s %q", model.ErrValidation, field, v)
}

func (s Schema) category(v string) (string, error) {
	return defaulted("category", v, s.DefaultCategory, s.Categories)
}

func (s Schema) priority(v string) (string, error) {
	return defaulted("priority", v, s.DefaultPriority, s.Priorities)
}

func (s Schema) status(v string) (string, error) {
	return defaulted("status", v, s.DefaultStatus, s.Statuses)
}
