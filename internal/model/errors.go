package model

import "errors"

// Sentinel errors for the store. Absence of a record is reported as a nil
// value (or false boolean), never as an error.
var (
	// ErrValidation rejects malformed input before any external call.
	ErrValidation = errors.New("validation error")
	// ErrEmbeddingFailed covers embedding provider failures and vector
	// dimension mismatches; it always aborts the write or search.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrStoreUnavailable covers connectivity and index errors from the
	// backing document store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
