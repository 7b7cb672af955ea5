// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index

import (
	"context"
	"strings"

	"github.com/google/uuid"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// Rebuild replaces the entire index with the authoritative entries. The new
// generation is assembled fully off to the side (batch-embedding happens
// with no lock held) and swapped in as one step, so a concurrent reader
// observes either the complete old set or the complete new set.
//
// At most one rebuild runs at a time; a second concurrent call fails fast
// with a conflict rather than queueing. Duplicate ids resolve last-one-wins.
// Any failure leaves the old generation live.
func (s *Store) Rebuild(ctx context.Context, entries []RebuildEntry) (int, error) {
	if len(entries) == 0 {
		return 0, mnemoserr.New(mnemoserr.CodeIndexRebuildInvalid,
			"index: nothing to rebuild")
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			return 0, mnemoserr.Errorf(mnemoserr.CodeIndexRebuildInvalid,
				"index: rebuild entry %d (id %d) has empty text", i, e.ID)
		}
	}

	if !s.rebuilding.CompareAndSwap(false, true) {
		return 0, mnemoserr.New(mnemoserr.CodeIndexRebuildConflict,
			"index: rebuild already in progress")
	}
	defer s.rebuilding.Store(false)

	// Last-one-wins on duplicate ids, preserving first-seen order for the
	// embedding batch.
	deduped := make([]RebuildEntry, 0, len(entries))
	position := make(map[int64]int, len(entries))
	for _, e := range entries {
		if at, seen := position[e.ID]; seen {
			deduped[at] = e
			continue
		}
		position[e.ID] = len(deduped)
		deduped = append(deduped, e)
	}

	texts := make([]string, len(deduped))
	for i, e := range deduped {
		texts[i] = e.Text
	}

	vecs, err := s.embedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(deduped) {
		return 0, mnemoserr.Errorf(mnemoserr.CodeProviderResponseInvalid,
			"index: got %d vectors for %d rebuild entries", len(vecs), len(deduped))
	}

	want := s.embedder.Dimensions()
	next := &generation{
		id:      uuid.NewString(),
		records: make(map[int64]MemoryRecord, len(deduped)),
	}
	recs := make([]MemoryRecord, len(deduped))
	for i, e := range deduped {
		if len(vecs[i]) != want {
			return 0, mnemoserr.Errorf(mnemoserr.CodeIndexDimensionMismatch,
				"index: rebuild vector width %d, store expects %d", len(vecs[i]), want)
		}
		rec := MemoryRecord{ID: e.ID, Vector: vecs[i], Text: e.Text}
		recs[i] = rec
		next.records[e.ID] = rec
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.persister != nil {
		if err := s.persister.ReplaceAll(ctx, recs); err != nil {
			return 0, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
				"index: persisting rebuilt records",
				mnemoserr.FieldGeneration(next.id))
		}
	}

	s.gen.Store(next)
	s.logger.Info("index rebuilt",
		"records", len(next.records), "generation", next.id)

	return len(next.records), nil
}
