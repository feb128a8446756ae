// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
	"github.com/vigil-health/vigil/pkg/freshness"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status and operation freshness",
		Long:  "Check the running gateway's health endpoint and display per-operation freshness metrics.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18890", "gateway address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	gw := newGatewayClient(addr)
	var health struct {
		Status string `json:"status"`
	}
	if err := gw.getJSON("/health", &health); err != nil {
		if vigilerr.HasCode(err, vigilerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, health.Status)

	var ops struct {
		Operations []freshness.Metrics `json:"operations"`
	}
	if err := gw.getJSON("/api/v1/operations", &ops); err != nil {
		_, _ = fmt.Fprintf(out, "Could not load operations: %s\n", err)
		return nil
	}

	if len(ops.Operations) == 0 {
		_, _ = fmt.Fprintln(out, "No operations tracked yet.")
		return nil
	}

	for _, m := range ops.Operations {
		state := "stale"
		if m.Fresh {
			state = "fresh"
		}
		last := "never"
		if m.LastSuccessAt != nil {
			last = m.LastSuccessAt.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(out, "%-16s %-6s errors=%d rate=%.2f last_success=%s\n",
			m.Operation, state, m.ErrorCount, m.ErrorRate, last)
	}
	return nil
}
