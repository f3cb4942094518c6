// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cvpc/internal/httpapi"
	"cvpc/internal/journal"
)

// shutdownTimeout bounds the graceful stop after an interrupt.
const shutdownTimeout = 5 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "HTTP API server",
	Long: `Server exposes the cvpc HTTP API: health and version probes, event
submission, and journal inspection.

Simply usage:
  cvpc server`,
	RunE: runServer,
}

func init() {
	addHTTPFlags(serverCmd)
	addJournalFlags(serverCmd)

	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(journalConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpapi.New(httpConfig(), store, version, logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Warn("an interrupt signal was detected")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
