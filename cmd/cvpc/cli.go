// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cvpc/internal/httpapi"
	"cvpc/internal/journal"
	"cvpc/internal/repl"
	"cvpc/pkg/types"
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Interactive CLI interface",
	Long: `Cli opens an interactive cvpc> session for inspecting the event journal
and submitting events to a running API server.

Simply usage:
  cvpc cli`,
	RunE: runCli,
}

func init() {
	addHTTPFlags(cliCmd)
	addJournalFlags(cliCmd)

	rootCmd.AddCommand(cliCmd)
}

func runCli(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(journalConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := httpConfig()
	api := httpapi.NewClient(apiBaseURL(cfg), cfg.Timeout)

	session := repl.NewSession(store, api, version)
	if err := repl.Run(ctx, session); err != nil {
		return err
	}

	logger.Info("cli session ended")
	return nil
}

// apiBaseURL derives a dialable base URL from the server bind settings:
// a wildcard bind is reached through loopback.
func apiBaseURL(cfg types.HTTPConfig) string {
	host := cfg.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Port)
}
