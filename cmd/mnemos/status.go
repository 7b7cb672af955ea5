// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index service status",
		Long:  "Check the running service's status endpoint and display record count, generation, and provider health.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18790", "service address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	client := newServiceClient(addr)
	var body struct {
		Status     string `json:"status"`
		Records    int    `json:"records"`
		Generation string `json:"generation"`
		Provider   struct {
			Provider string `json:"provider"`
			Model    string `json:"model"`
			Health   struct {
				Available bool `json:"available"`
			} `json:"health"`
		} `json:"provider"`
	}
	if err := client.getJSON("/api/v1/status", &body); err != nil {
		_, _ = fmt.Fprintf(out, "Service at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Service at %s: %s\n", addr, body.Status)
	_, _ = fmt.Fprintf(out, "  records:    %d\n", body.Records)
	_, _ = fmt.Fprintf(out, "  generation: %s\n", body.Generation)
	_, _ = fmt.Fprintf(out, "  provider:   %s (%s), available=%t\n",
		body.Provider.Provider, body.Provider.Model, body.Provider.Health.Available)
	return nil
}
