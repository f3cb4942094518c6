// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"cvpc/internal/event"
	"cvpc/internal/journal"
	"cvpc/internal/secrets"
	"cvpc/internal/ws"
	"cvpc/pkg/types"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "WebSocket agent for Cloudflare Durable Objects",
	Long: `Agent connects to the coordinating Durable Object over WebSocket,
dispatches incoming events (ping, message, task, status) through the
handler registry, and journals every event it receives.

Simply usage:
  cvpc agent --ws-url ws://your-server.com`,
	RunE: runAgent,
}

func init() {
	addHTTPFlags(agentCmd)
	addJournalFlags(agentCmd)

	agentCmd.Flags().String("ws-url", "", "WebSocket URL for Cloudflare Durable Objects")
	agentCmd.Flags().Duration("ws-connect-timeout", types.DefaultWSConnectTimeout, "WebSocket connection timeout")
	agentCmd.Flags().Duration("ws-ping-interval", types.DefaultWSPingInterval, "WebSocket ping interval")
	agentCmd.Flags().Duration("ws-ping-timeout", types.DefaultWSPingTimeout, "WebSocket ping timeout")

	rootCmd.AddCommand(agentCmd)
}

func wsConfig() types.WSConfig {
	return types.WSConfig{
		URL:            viper.GetString("ws-url"),
		ConnectTimeout: viper.GetDuration("ws-connect-timeout"),
		PingInterval:   viper.GetDuration("ws-ping-interval"),
		PingTimeout:    viper.GetDuration("ws-ping-timeout"),
		Token:          loadedSecrets[secrets.KeyWSToken],
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg := wsConfig()
	if cfg.URL == "" {
		return errors.New("WebSocket URL is required (--ws-url or CVPC_WS_URL)")
	}

	store, err := journal.Open(journalConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := event.NewRegistry(logger)
	client := ws.NewClient(cfg, logger)
	client.OnEvent(func(ctx context.Context, ev event.Event) {
		registry.Dispatch(ctx, ev)
		if _, err := store.Append(ctx, ev, journal.SourceAgent); err != nil {
			logger.Error("journal append failed", zap.Error(err))
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	logger.Info("agent connected successfully")

	select {
	case <-ctx.Done():
		logger.Warn("an interrupt signal was detected")
	case <-client.Done():
		logger.Info("connection ended")
	}

	client.Close()
	logger.Info("agent disconnected")
	return nil
}
