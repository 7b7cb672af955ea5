// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

// Package index implements the semantic-memory index: an id-keyed vector
// store with nearest-neighbor search, one-shot segment search, k-means
// grouping, and atomic full rebuild from an external system of record.
package index

import "context"

// MemoryRecord is one stored memory: a caller-assigned id, its embedding
// vector, and the source text. Vector width is fixed per store.
type MemoryRecord struct {
	ID     int64     `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
}

// SegmentRecord is a caller-supplied segment for one-shot search. It is
// never persisted; Index is the segment's position in the caller's list and
// Start is a time offset into the source media.
type SegmentRecord struct {
	Index  int       `json:"index"`
	Text   string    `json:"text"`
	Start  float64   `json:"start"`
	Vector []float32 `json:"vector"`
}

// SegmentMatch is one ranked result from SearchSegments.
type SegmentMatch struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	Score float64 `json:"score"`
}

// Match is one ranked result from Search against the store.
type Match struct {
	ID    int64   `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// RebuildEntry is one (id, text) pair from the authoritative rebuild source.
type RebuildEntry struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Persister mirrors the in-memory index onto durable storage. The in-memory
// generation is the query path; the persister exists so the index survives
// restarts.
type Persister interface {
	// LoadAll returns every persisted record.
	LoadAll(ctx context.Context) ([]MemoryRecord, error)
	// Upsert writes or overwrites one record.
	Upsert(ctx context.Context, rec MemoryRecord) error
	// ReplaceAll replaces the entire persisted set in one transaction.
	ReplaceAll(ctx context.Context, recs []MemoryRecord) error
	Close() error
}
