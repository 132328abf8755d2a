// Package search is the client for the external metadata index collaborator.
// The index is a black box offering hybrid (lexical + vector) retrieval over
// table, field, and relationship documents; document ingestion and index
// schema management live outside this engine.
package search

import "context"

// Query is a hybrid search request. Vector is optional: when nil, the index
// performs a lexical-only search.
type Query struct {
	SearchText string    `json:"search_text"`
	Vector     []float32 `json:"vector,omitempty"`
	TopK       int       `json:"top_k"`
	Filter     string    `json:"filter,omitempty"`
}

// Result is one scored document from the index. Fields carries the raw
// document body; the index does not guarantee any particular key is present,
// so consumers must normalize defensively.
type Result struct {
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

// Index abstracts the metadata search collaborator.
// Use this interface for dependency injection to enable mocking in tests.
type Index interface {
	// Search runs a hybrid query and returns scored documents, best first.
	// An empty result list is a valid response, not an error.
	Search(ctx context.Context, q Query) ([]Result, error)
}
