// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mnemos-dev/mnemos/internal/index"
	"github.com/mnemos-dev/mnemos/internal/provider"
	"github.com/stretchr/testify/require"
)

// stubEmbedder produces fixed vectors from a lookup table, giving tests
// exact, deterministic geometry. Unknown texts embed to the last axis.
type stubEmbedder struct {
	mu      sync.Mutex
	dims    int
	vectors map[string][]float32
	err     error
	// embedBatchStarted is closed when EmbedBatch is entered; embedBatchGate,
	// when non-nil, blocks EmbedBatch until closed. Used to freeze a rebuild
	// mid-embedding.
	embedBatchStarted chan struct{}
	embedBatchGate    chan struct{}
	calls             int
}

var _ provider.Embedder = (*stubEmbedder)(nil)

func newStubEmbedder(dims int, vectors map[string][]float32) *stubEmbedder {
	return &stubEmbedder{dims: dims, vectors: vectors}
}

func (s *stubEmbedder) Name() string    { return "stub" }
func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Close() error    { return nil }

func (s *stubEmbedder) lookup(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	out := make([]float32, s.dims)
	out[s.dims-1] = 1
	return out
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.lookup(text), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	started := s.embedBatchStarted
	gate := s.embedBatchGate
	s.mu.Unlock()

	if started != nil {
		close(started)
		s.mu.Lock()
		s.embedBatchStarted = nil
		s.mu.Unlock()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.lookup(t)
	}
	return out, nil
}

func (s *stubEmbedder) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// oneHotVectors gives cat/kitten nearly parallel vectors and dog/car their
// own axes, so similarity rankings are exact.
func oneHotVectors() map[string][]float32 {
	return map[string][]float32{
		"cat":    {1, 0, 0, 0},
		"kitten": {0.9, 0.1, 0, 0},
		"dog":    {0, 1, 0, 0},
		"car":    {0, 0, 1, 0},
	}
}

func newTestStore(t *testing.T, embedder provider.Embedder, opts index.Options) *index.Store {
	t.Helper()
	s, err := index.Open(context.Background(), embedder, opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}
