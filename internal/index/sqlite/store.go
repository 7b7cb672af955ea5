// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

// Package sqlite persists the memory index in SQLite with the sqlite-vec
// extension. The in-memory index remains the query path; this package only
// makes it survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mnemos-dev/mnemos/internal/index"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ index.Persister = (*Store)(nil)

// Store implements index.Persister backed by SQLite with sqlite-vec. Vectors
// live in a vec0 virtual table keyed by rowid; texts live in a companion
// table sharing the same id.
type Store struct {
	db         *sql.DB
	dimensions int
}

// New opens (or creates) a SQLite database at dbPath and initialises the
// vec0 virtual table and companion memories table.
func New(dbPath string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"sqlite: dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: opening database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: pinging database")
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_vectors USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: creating memory_vectors virtual table")
	}

	const textDDL = `
CREATE TABLE IF NOT EXISTS memories (
	id   INTEGER PRIMARY KEY,
	text TEXT NOT NULL
)`
	if _, err := db.Exec(textDDL); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: creating memories table")
	}

	return nil
}

// LoadAll returns every persisted record ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]index.MemoryRecord, error) {
	const q = `SELECT m.id, m.text, v.embedding
FROM memories m
JOIN memory_vectors v ON v.rowid = m.id
ORDER BY m.id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: loading records")
	}
	defer func() { _ = rows.Close() }()

	var recs []index.MemoryRecord
	for rows.Next() {
		var rec index.MemoryRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &blob); err != nil {
			return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
				"sqlite: scanning record")
		}
		rec.Vector = deserializeFloat32(blob)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: iterating records")
	}

	return recs, nil
}

// Upsert writes or overwrites one record in a single transaction.
func (s *Store) Upsert(ctx context.Context, rec index.MemoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTx(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: committing upsert")
	}
	return nil
}

// ReplaceAll deletes every record and writes recs in one transaction, so a
// crash mid-rebuild can never leave a mixed persisted state.
func (s *Store) ReplaceAll(ctx context.Context, recs []index.MemoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_vectors`); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: clearing memory_vectors")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: clearing memories")
	}

	for _, rec := range recs {
		if err := upsertTx(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: committing replace")
	}
	return nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, rec index.MemoryRecord) error {
	blob, err := sqlite_vec.SerializeFloat32(rec.Vector)
	if err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: serializing vector",
			mnemoserr.FieldRecordID(rec.ID))
	}

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_vectors WHERE rowid = ?`, rec.ID); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: deleting existing vector",
			mnemoserr.FieldRecordID(rec.ID))
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO memory_vectors(rowid, embedding) VALUES (?, ?)`,
		rec.ID, blob); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: inserting vector",
			mnemoserr.FieldRecordID(rec.ID))
	}

	const textQ = `INSERT INTO memories(id, text) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET text = excluded.text`
	if _, err := tx.ExecContext(ctx, textQ, rec.ID, rec.Text); err != nil {
		return mnemoserr.Wrap(err, mnemoserr.CodeIndexStorageFailure,
			"sqlite: upserting text",
			mnemoserr.FieldRecordID(rec.ID))
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// deserializeFloat32 decodes the little-endian float32 blob format used by
// sqlite-vec.
func deserializeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
