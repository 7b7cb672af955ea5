// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index_test

import (
	"context"
	"testing"

	"github.com/mnemos-dev/mnemos/internal/index"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RequiresEmbedder(t *testing.T) {
	_, err := index.Open(context.Background(), nil, index.Options{})
	require.Error(t, err)
	assert.True(t, mnemoserr.IsInvalidInput(err))
}

func TestUpsert_Idempotence(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, 1, "cat"))
	first := s.GetAll()

	require.NoError(t, s.Upsert(ctx, 1, "cat"))
	second := s.GetAll()

	assert.Equal(t, first, second, "same upsert twice must leave the same observable state")
	assert.Equal(t, 1, s.Count())
}

func TestUpsert_Uniqueness(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, 1, "cat"))
	require.NoError(t, s.Upsert(ctx, 2, "dog"))
	require.NoError(t, s.Upsert(ctx, 1, "car"))

	all := s.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, "car", all[0].Text, "latest upsert for id 1 must win")
	assert.Equal(t, []float32{0, 0, 1, 0}, all[0].Vector)
	assert.Equal(t, int64(2), all[1].ID)
	assert.Equal(t, "dog", all[1].Text)
}

func TestUpsert_EmptyText(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})

	err := s.Upsert(context.Background(), 1, "   ")
	require.Error(t, err)
	assert.True(t, mnemoserr.IsInvalidInput(err))
	assert.Zero(t, s.Count())
}

func TestUpsert_ProviderDown(t *testing.T) {
	stub := newStubEmbedder(4, oneHotVectors())
	s := newTestStore(t, stub, index.Options{})

	stub.setErr(mnemoserr.New(mnemoserr.CodeProviderUnavailable, "model not loaded"))

	err := s.Upsert(context.Background(), 1, "cat")
	require.Error(t, err)
	assert.True(t, mnemoserr.IsProviderUnavailable(err))
	assert.Zero(t, s.Count(), "failed upsert must not change state")
}

func TestUpsert_UncodedProviderErrorClassified(t *testing.T) {
	stub := newStubEmbedder(4, oneHotVectors())
	s := newTestStore(t, stub, index.Options{})

	stub.setErr(assert.AnError)

	err := s.Upsert(context.Background(), 1, "cat")
	require.Error(t, err)
	assert.True(t, mnemoserr.IsProviderUnavailable(err),
		"uncoded embedder failures classify as provider unavailable")
}

type skewEmbedder struct{ *stubEmbedder }

func (s skewEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil // narrower than Dimensions() reports
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	stub := newStubEmbedder(4, oneHotVectors())
	s := newTestStore(t, skewEmbedder{stub}, index.Options{})

	err := s.Upsert(context.Background(), 1, "cat")
	require.Error(t, err)
	assert.True(t, mnemoserr.IsDimensionMismatch(err))
	assert.Zero(t, s.Count())
}

func TestGetAll_SortedSnapshot(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, 7, "dog"))
	require.NoError(t, s.Upsert(ctx, 3, "cat"))
	require.NoError(t, s.Upsert(ctx, 5, "car"))

	all := s.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 5, 7}, []int64{all[0].ID, all[1].ID, all[2].ID})
}

func TestGetAll_EmptyStore(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})
	assert.Empty(t, s.GetAll())
	assert.Zero(t, s.Count())
}

func TestGeneration_StableAcrossUpserts(t *testing.T) {
	s := newTestStore(t, newStubEmbedder(4, oneHotVectors()), index.Options{})
	ctx := context.Background()

	gen := s.Generation()
	require.NotEmpty(t, gen)

	require.NoError(t, s.Upsert(ctx, 1, "cat"))
	assert.Equal(t, gen, s.Generation(), "upserts mutate the live generation")

	_, err := s.Rebuild(ctx, []index.RebuildEntry{{ID: 1, Text: "dog"}})
	require.NoError(t, err)
	assert.NotEqual(t, gen, s.Generation(), "rebuild swaps in a new generation")
}
