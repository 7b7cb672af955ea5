// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mnemos-dev/mnemos/internal/index"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Memory endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "upsert-memory",
		Method:      http.MethodPost,
		Path:        "/api/v1/memories",
		Summary:     "Insert or overwrite a memory",
		Tags:        []string{"memories"},
	}, s.handleUpsert)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-vectors",
		Method:      http.MethodGet,
		Path:        "/api/v1/vectors",
		Summary:     "List all stored records",
		Tags:        []string{"memories"},
	}, s.handleListVectors)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuild-index",
		Method:      http.MethodPost,
		Path:        "/api/v1/rebuild",
		Summary:     "Atomically rebuild the index from an authoritative memory set",
		Tags:        []string{"memories"},
	}, s.handleRebuild)

	// Search endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "search-memories",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Rank stored memories by similarity to a query",
		Tags:        []string{"search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-segments",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/segments",
		Summary:     "Rank a caller-supplied segment batch by similarity to a query",
		Tags:        []string{"search"},
	}, s.handleSearchSegments)

	// Clustering endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "cluster-vectors",
		Method:      http.MethodPost,
		Path:        "/api/v1/cluster",
		Summary:     "Partition a vector batch into K groups",
		Tags:        []string{"cluster"},
	}, s.handleCluster)

	// Embedding passthrough
	huma.Register(s.api, huma.Operation{
		OperationID: "embed-text",
		Method:      http.MethodPost,
		Path:        "/api/v1/embedding",
		Summary:     "Embed a text with the configured provider",
		Tags:        []string{"embedding"},
	}, s.handleEmbedding)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "index-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Index and provider status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// apiError maps a classified core error onto the matching HTTP status.
func apiError(err error) error {
	return huma.NewError(mnemoserr.HTTPStatus(err), err.Error())
}

// --- Request/Response types for huma ---

type upsertInput struct {
	Body struct {
		ID   int64  `json:"id" doc:"Caller-assigned memory id"`
		Text string `json:"text" minLength:"1" doc:"Memory text to embed and store"`
	}
}
type upsertOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
		Count  int    `json:"count" doc:"Records in the store after the upsert"`
	}
}

type listVectorsOutput struct {
	Body struct {
		Records    []index.MemoryRecord `json:"records"`
		Generation string               `json:"generation" doc:"Identifier of the snapshot generation"`
	}
}

type rebuildInput struct {
	Body struct {
		Memories []index.RebuildEntry `json:"memories" minItems:"1" doc:"Authoritative (id, text) set"`
	}
}
type rebuildOutput struct {
	Body struct {
		Status     string `json:"status" example:"ok"`
		Count      int    `json:"count" doc:"Records in the store after the rebuild"`
		Generation string `json:"generation"`
	}
}

type searchInput struct {
	Body struct {
		Query string `json:"query" minLength:"1" doc:"Query text"`
		Limit int    `json:"limit,omitempty" minimum:"1" doc:"Maximum results (default 5)"`
	}
}
type searchOutput struct {
	Body struct {
		Matches []index.Match `json:"matches"`
	}
}

type searchSegmentsInput struct {
	Body struct {
		Query    string                `json:"query" minLength:"1" doc:"Query text"`
		Segments []index.SegmentRecord `json:"segments" minItems:"1" doc:"Segment batch to rank"`
	}
}
type searchSegmentsOutput struct {
	Body struct {
		Matches []index.SegmentMatch `json:"matches"`
	}
}

type clusterInput struct {
	Body struct {
		Vectors     [][]float32 `json:"vectors" minItems:"1" doc:"Vector batch to partition"`
		NumClusters int         `json:"num_clusters" minimum:"1" doc:"K, at most len(vectors)"`
	}
}
type clusterOutput struct {
	Body struct {
		Labels []int `json:"labels" doc:"One label in [0,K) per input vector"`
	}
}

type embeddingInput struct {
	Body struct {
		Text string `json:"text" minLength:"1" doc:"Text to embed"`
	}
}
type embeddingOutput struct {
	Body struct {
		Embedding []float32 `json:"embedding"`
	}
}

type statusOutput struct {
	Body struct {
		Status     string         `json:"status" example:"ok"`
		Records    int            `json:"records"`
		Generation string         `json:"generation"`
		Provider   ProviderStatus `json:"provider"`
	}
}

// --- Handlers ---

func (s *Server) handleUpsert(ctx context.Context, input *upsertInput) (*upsertOutput, error) {
	if err := s.services.Index().Upsert(ctx, input.Body.ID, input.Body.Text); err != nil {
		return nil, apiError(err)
	}
	out := &upsertOutput{}
	out.Body.Status = "ok"
	out.Body.Count = s.services.Index().Count()
	return out, nil
}

func (s *Server) handleListVectors(_ context.Context, _ *struct{}) (*listVectorsOutput, error) {
	out := &listVectorsOutput{}
	out.Body.Records = s.services.Index().GetAll()
	out.Body.Generation = s.services.Index().Generation()
	return out, nil
}

func (s *Server) handleRebuild(ctx context.Context, input *rebuildInput) (*rebuildOutput, error) {
	count, err := s.services.Index().Rebuild(ctx, input.Body.Memories)
	if err != nil {
		return nil, apiError(err)
	}
	out := &rebuildOutput{}
	out.Body.Status = "ok"
	out.Body.Count = count
	out.Body.Generation = s.services.Index().Generation()
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	limit := input.Body.Limit
	if limit == 0 {
		limit = 5
	}

	matches, err := s.services.Index().Search(ctx, input.Body.Query, limit)
	if err != nil {
		return nil, apiError(err)
	}
	out := &searchOutput{}
	out.Body.Matches = matches
	return out, nil
}

func (s *Server) handleSearchSegments(ctx context.Context, input *searchSegmentsInput) (*searchSegmentsOutput, error) {
	matches, err := s.services.Index().SearchSegments(ctx, input.Body.Query, input.Body.Segments)
	if err != nil {
		return nil, apiError(err)
	}
	out := &searchSegmentsOutput{}
	out.Body.Matches = matches
	if out.Body.Matches == nil {
		// An empty ranked list is a valid outcome, serialize it as [].
		out.Body.Matches = []index.SegmentMatch{}
	}
	return out, nil
}

func (s *Server) handleCluster(_ context.Context, input *clusterInput) (*clusterOutput, error) {
	labels, err := s.services.Index().Cluster(input.Body.Vectors, input.Body.NumClusters)
	if err != nil {
		return nil, apiError(err)
	}
	out := &clusterOutput{}
	out.Body.Labels = labels
	return out, nil
}

func (s *Server) handleEmbedding(ctx context.Context, input *embeddingInput) (*embeddingOutput, error) {
	vec, err := s.services.Embeddings().Embed(ctx, input.Body.Text)
	if err != nil {
		return nil, apiError(err)
	}
	out := &embeddingOutput{}
	out.Body.Embedding = vec
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Records = s.services.Index().Count()
	out.Body.Generation = s.services.Index().Generation()
	out.Body.Provider = s.services.Embeddings().Status(ctx)
	return out, nil
}
