// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRebuildEntries(t *testing.T) {
	path := writeCorpus(t, `
- id: 1
  text: first memory
- id: 2
  text: second memory
`)

	entries, err := loadRebuildEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, "first memory", entries[0].Text)
	assert.Equal(t, int64(2), entries[1].ID)
}

func TestLoadRebuildEntries_MissingFile(t *testing.T) {
	_, err := loadRebuildEntries("/nonexistent/corpus.yaml")
	require.Error(t, err)
	assert.True(t, mnemoserr.IsInvalidInput(err))
}

func TestLoadRebuildEntries_Empty(t *testing.T) {
	path := writeCorpus(t, "[]\n")

	_, err := loadRebuildEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries")
}

func TestLoadRebuildEntries_EmptyText(t *testing.T) {
	path := writeCorpus(t, `
- id: 1
  text: fine
- id: 2
  text: ""
`)

	_, err := loadRebuildEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id 2")
}

func TestRebuildCommand(t *testing.T) {
	var gotEntries []rebuildEntry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/rebuild", r.URL.Path)
		var req struct {
			Memories []rebuildEntry `json:"memories"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotEntries = req.Memories

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"count":      len(req.Memories),
			"generation": "gen-2",
		})
	}))
	defer srv.Close()

	path := writeCorpus(t, `
- id: 10
  text: alpha
- id: 20
  text: beta
`)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"rebuild", "--file", path, "--address", srv.URL[len("http://"):]})

	err := root.Execute()
	require.NoError(t, err)
	require.Len(t, gotEntries, 2)
	assert.Equal(t, int64(10), gotEntries[0].ID)
	assert.Contains(t, buf.String(), "2 records")
	assert.Contains(t, buf.String(), "gen-2")
}

func TestRebuildCommand_ConflictSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"title": "Conflict"})
	}))
	defer srv.Close()

	path := writeCorpus(t, "- id: 1\n  text: alpha\n")

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"rebuild", "--file", path, "--address", srv.URL[len("http://"):]})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestRebuildCommand_RequiresFile(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"rebuild"})

	err := root.Execute()
	assert.Error(t, err)
}
