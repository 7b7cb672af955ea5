// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mnemos-dev/mnemos/internal/provider"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// Default tuning for segment search, overridable via Options.
const (
	DefaultSegmentThreshold = 0.3
	DefaultSegmentTopK      = 5
)

// DefaultEmbedTimeout bounds every call into the embedding provider.
const DefaultEmbedTimeout = 30 * time.Second

// generation is one complete, internally consistent snapshot of the index.
// Generations are immutable once published; mutations build a new generation
// and swap it in.
type generation struct {
	id      string
	records map[int64]MemoryRecord
}

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	// Persister mirrors the index onto durable storage. Optional; a nil
	// persister gives a memory-only index.
	Persister Persister

	Logger *slog.Logger

	// EmbedTimeout bounds each embedding provider call.
	EmbedTimeout time.Duration

	// SegmentThreshold drops segment matches scoring below it. Nil selects
	// DefaultSegmentThreshold; zero is a valid, explicit threshold.
	SegmentThreshold *float64
	// SegmentTopK caps the number of segment matches returned.
	SegmentTopK int
}

// Store is the semantic-memory index. Reads are lock-free against an
// atomically swapped generation pointer; writes serialize on a single
// mutex so a rebuild's swap and an upsert can never interleave.
type Store struct {
	embedder  provider.Embedder
	persister Persister
	logger    *slog.Logger

	embedTimeout     time.Duration
	segmentThreshold float64
	segmentTopK      int

	gen        atomic.Pointer[generation]
	writeMu    sync.Mutex
	rebuilding atomic.Bool
}

// Open creates a Store backed by embedder and, when a persister is
// configured, loads the persisted records into the first generation.
// Persisted vectors whose width disagrees with the provider are dropped
// with a warning; a rebuild resolves the skew.
func Open(ctx context.Context, embedder provider.Embedder, opts Options) (*Store, error) {
	if embedder == nil {
		return nil, mnemoserr.New(mnemoserr.CodeConfigValidateInvalidValue,
			"index: embedder is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		embedder:         embedder,
		persister:        opts.Persister,
		logger:           logger,
		embedTimeout:     opts.EmbedTimeout,
		segmentThreshold: DefaultSegmentThreshold,
		segmentTopK:      opts.SegmentTopK,
	}
	if s.embedTimeout <= 0 {
		s.embedTimeout = DefaultEmbedTimeout
	}
	if opts.SegmentThreshold != nil {
		s.segmentThreshold = *opts.SegmentThreshold
	}
	if s.segmentTopK <= 0 {
		s.segmentTopK = DefaultSegmentTopK
	}

	gen := &generation{
		id:      uuid.NewString(),
		records: make(map[int64]MemoryRecord),
	}

	if s.persister != nil {
		recs, err := s.persister.LoadAll(ctx)
		if err != nil {
			return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
				"index: loading persisted records")
		}
		want := embedder.Dimensions()
		skipped := 0
		for _, rec := range recs {
			if len(rec.Vector) != want {
				skipped++
				continue
			}
			gen.records[rec.ID] = rec
		}
		if skipped > 0 {
			logger.Warn("dropped persisted records with stale vector width, rebuild required",
				"skipped", skipped, "want_dim", want)
		}
		logger.Info("index loaded", "records", len(gen.records), "generation", gen.id)
	}

	s.gen.Store(gen)
	return s, nil
}

// Count returns the number of records in the live generation.
func (s *Store) Count() int {
	return len(s.gen.Load().records)
}

// Generation returns the live generation's identifier.
func (s *Store) Generation() string {
	return s.gen.Load().id
}

// GetAll returns a snapshot of all current records ordered by id. The
// snapshot reflects exactly one generation, never a mid-rebuild mixture.
func (s *Store) GetAll() []MemoryRecord {
	gen := s.gen.Load()
	out := make([]MemoryRecord, 0, len(gen.records))
	for _, rec := range gen.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upsert embeds text and inserts or overwrites the record keyed by id.
// The live generation is copied, modified, and swapped so concurrent
// readers always observe a complete state.
func (s *Store) Upsert(ctx context.Context, id int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return mnemoserr.New(mnemoserr.CodeIndexRecordInvalid,
			"index: record text must not be empty",
			mnemoserr.FieldRecordID(id))
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return err
	}
	if want := s.embedder.Dimensions(); len(vec) != want {
		return mnemoserr.Errorf(mnemoserr.CodeIndexDimensionMismatch,
			"index: embedded vector width %d, store expects %d", len(vec), want)
	}

	rec := MemoryRecord{ID: id, Vector: vec, Text: text}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.persister != nil {
		if err := s.persister.Upsert(ctx, rec); err != nil {
			return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
				"index: persisting record",
				mnemoserr.FieldRecordID(id))
		}
	}

	old := s.gen.Load()
	next := &generation{
		id:      old.id,
		records: make(map[int64]MemoryRecord, len(old.records)+1),
	}
	for k, v := range old.records {
		next.records[k] = v
	}
	next.records[id] = rec
	s.gen.Store(next)

	s.logger.Debug("record upserted", "id", id, "records", len(next.records))
	return nil
}

// Close releases the persister, if any.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

// embed calls the provider with the store's timeout and classifies
// transport-level context errors that arrive without a code.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, s.classifyEmbed(err)
	}
	return vec, nil
}

// embedBatch is embed for many texts in one provider call.
func (s *Store) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, s.classifyEmbed(err)
	}
	return vecs, nil
}

func (s *Store) classifyEmbed(err error) error {
	if mnemoserr.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return mnemoserr.Wrap(err, mnemoserr.CodeProviderTimeout,
			"index: embedding timed out")
	}
	return mnemoserr.Wrap(err, mnemoserr.CodeProviderUnavailable,
		"index: embedding failed")
}
