// Package searchindex abstracts the vector document store backing a record
// store instance: per-key JSON documents, scalar filter predicates, and
// nearest-neighbor queries over a cosine vector index.
package searchindex

import (
	"context"

	"github.com/recallhq/recall/internal/model"
)

// Hit is a raw nearest-neighbor result. Score is cosine similarity
// (1 - engine distance, higher is better); Distance is the engine's raw
// cosine distance.
type Hit struct {
	Record   *model.Record
	Score    float64
	Distance float64
}

// Index provides document CRUD and vector search for one record class.
// One Index instance serves one store instantiation (one class).
//
// Absence is reported as nil values / false booleans; every other failure
// wraps model.ErrStoreUnavailable.
type Index interface {
	// EnsureSchema provisions the class per the configured policy. It must
	// complete before any other call is issued.
	EnsureSchema(ctx context.Context) error

	// PutRecord upserts the full record document with its vector.
	PutRecord(ctx context.Context, rec *model.Record, vec []float32) error

	// GetRecord returns the record and its stored vector, or (nil, nil, nil)
	// when the id is absent.
	GetRecord(ctx context.Context, id string) (*model.Record, []float32, error)

	// DeleteRecord reports whether a document existed and was removed.
	DeleteRecord(ctx context.Context, id string) (bool, error)

	// SearchNearest runs a k-nearest query constrained by the filter,
	// ordered by ascending distance.
	SearchNearest(ctx context.Context, vec []float32, f model.Filter, limit int) ([]Hit, error)

	// ListRecords returns records matching the filter ordered by creation
	// time descending, capped at limit.
	ListRecords(ctx context.Context, f model.Filter, limit int) ([]*model.Record, error)

	// ScanRecords visits every record in the class in unspecified order.
	// The walk stops early when fn returns false.
	ScanRecords(ctx context.Context, fn func(*model.Record) bool) error
}

// HealthPinger is optionally implemented by an Index to expose a cheap
// readiness probe. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
