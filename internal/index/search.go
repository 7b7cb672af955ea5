// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index

import (
	"context"
	"math"
	"sort"
	"strings"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// Search embeds queryText and ranks every stored record by cosine
// similarity, most similar first. At most limit matches are returned; no
// threshold is applied. Ties break on ascending record id so identical
// corpora rank identically.
func (s *Store) Search(ctx context.Context, queryText string, limit int) ([]Match, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, mnemoserr.New(mnemoserr.CodeIndexQueryInvalid,
			"index: query text must not be empty")
	}
	if limit < 1 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeIndexQueryInvalid,
			"index: limit must be >= 1, got %d", limit)
	}

	query, err := s.embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	gen := s.gen.Load()
	matches := make([]Match, 0, len(gen.records))
	for _, rec := range gen.records {
		matches = append(matches, Match{
			ID:    rec.ID,
			Text:  rec.Text,
			Score: cosineSimilarity(query, rec.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SearchSegments embeds queryText once and ranks the caller-supplied
// segments by cosine similarity. Matches scoring below the configured
// threshold are dropped and at most the configured top-K survive. Ties
// keep the caller's original segment order. An empty result is a valid
// outcome; empty input is not.
func (s *Store) SearchSegments(ctx context.Context, queryText string, segments []SegmentRecord) ([]SegmentMatch, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, mnemoserr.New(mnemoserr.CodeIndexQueryInvalid,
			"index: query text must not be empty")
	}
	if len(segments) == 0 {
		return nil, mnemoserr.New(mnemoserr.CodeIndexQueryInvalid,
			"index: segment batch must not be empty")
	}

	query, err := s.embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	matches := make([]SegmentMatch, 0, len(segments))
	for _, seg := range segments {
		matches = append(matches, SegmentMatch{
			Index: seg.Index,
			Text:  seg.Text,
			Start: seg.Start,
			Score: cosineSimilarity(query, seg.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	kept := matches[:0]
	for _, m := range matches {
		if m.Score < s.segmentThreshold {
			continue
		}
		kept = append(kept, m)
		if len(kept) == s.segmentTopK {
			break
		}
	}
	return kept, nil
}

// cosineSimilarity is dot(a,b) / (|a|*|b|), accumulated in float64.
// Mismatched widths or a zero-magnitude vector score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
