// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package server

import (
	"context"

	"github.com/mnemos-dev/mnemos/internal/index"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
	"github.com/mnemos-dev/mnemos/pkg/health"
)

// Services holds dependencies injected into route handlers. Each field is an
// interface so subsystems can be mocked in tests. Use NewServices to ensure
// all required services are provided.
type Services struct {
	idx        IndexService
	embeddings EmbeddingService
}

// NewServices creates a Services instance with validation. Returns an error
// if any required service is nil.
func NewServices(idx IndexService, embeddings EmbeddingService) (*Services, error) {
	if idx == nil {
		return nil, mnemoserr.New(mnemoserr.CodeConfigValidateInvalidValue, "index service is required")
	}
	if embeddings == nil {
		return nil, mnemoserr.New(mnemoserr.CodeConfigValidateInvalidValue, "embedding service is required")
	}
	return &Services{idx: idx, embeddings: embeddings}, nil
}

// Index returns the index service.
func (s *Services) Index() IndexService {
	return s.idx
}

// Embeddings returns the embedding service.
func (s *Services) Embeddings() EmbeddingService {
	return s.embeddings
}

// IndexService provides the memory-index operations for REST handlers.
type IndexService interface {
	Upsert(ctx context.Context, id int64, text string) error
	Search(ctx context.Context, queryText string, limit int) ([]index.Match, error)
	SearchSegments(ctx context.Context, queryText string, segments []index.SegmentRecord) ([]index.SegmentMatch, error)
	Cluster(vectors [][]float32, numClusters int) ([]int, error)
	Rebuild(ctx context.Context, entries []index.RebuildEntry) (int, error)
	GetAll() []index.MemoryRecord
	Count() int
	Generation() string
}

// EmbeddingService exposes the embedding provider for the passthrough
// endpoint and the status report.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Status(ctx context.Context) ProviderStatus
}

// ProviderStatus is the embedding provider's portion of the status report.
type ProviderStatus struct {
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Dimensions int            `json:"dimensions"`
	Health     health.Metrics `json:"health"`
}
