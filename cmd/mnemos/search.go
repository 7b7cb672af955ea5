// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank stored memories by similarity to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("address", "127.0.0.1:18790", "service address")
	cmd.Flags().Int("limit", 5, "maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	if limit < 1 {
		return mnemoserr.Errorf(mnemoserr.CodeCLIInputInvalid, "limit must be >= 1, got %d", limit)
	}

	client := newServiceClient(addr)
	var body struct {
		Matches []struct {
			ID    int64   `json:"id"`
			Text  string  `json:"text"`
			Score float64 `json:"score"`
		} `json:"matches"`
	}
	if err := client.postJSON("/api/v1/search", map[string]any{
		"query": query,
		"limit": limit,
	}, &body); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(body.Matches) == 0 {
		_, _ = fmt.Fprintln(out, "no matches")
		return nil
	}
	for _, m := range body.Matches {
		_, _ = fmt.Fprintf(out, "%.4f  %d  %s\n", m.Score, m.ID, m.Text)
	}
	return nil
}
