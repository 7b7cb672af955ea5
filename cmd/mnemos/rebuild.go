// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func newRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from a corpus file",
		Long: `Replace the entire index with re-embedded entries from a YAML file.

The file holds a list of entries:

  - id: 1
    text: first memory
  - id: 2
    text: second memory`,
		RunE: runRebuild,
	}

	cmd.Flags().String("address", "127.0.0.1:18790", "service address")
	cmd.Flags().String("file", "", "YAML file with entries to index (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// rebuildEntry mirrors the service's rebuild request entry shape.
type rebuildEntry struct {
	ID   int64  `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	file, _ := cmd.Flags().GetString("file")

	entries, err := loadRebuildEntries(file)
	if err != nil {
		return err
	}

	client := newServiceClient(addr)
	var body struct {
		Count      int    `json:"count"`
		Generation string `json:"generation"`
	}
	if err := client.postJSON("/api/v1/rebuild", map[string]any{
		"memories": entries,
	}, &body); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rebuilt index: %d records, generation %s\n",
		body.Count, body.Generation)
	return nil
}

func loadRebuildEntries(path string) ([]rebuildEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLIInputInvalid, "reading %s", path)
	}

	var entries []rebuildEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLIInputInvalid, "parsing %s", path)
	}
	if len(entries) == 0 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeCLIInputInvalid, "%s contains no entries", path)
	}
	for i, e := range entries {
		if e.Text == "" {
			return nil, mnemoserr.Errorf(mnemoserr.CodeCLIInputInvalid,
				"entry %d (id %d) has empty text", i, e.ID)
		}
	}
	return entries, nil
}
