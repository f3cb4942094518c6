// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cvpc CLI.
//
// cvpc is the control plane of the Computer Vision Player Core: the agent
// subcommand keeps a WebSocket session with the coordinating Durable
// Object, the server subcommand exposes the HTTP API, and the cli
// subcommand opens an interactive session. Every flag has a CVPC_-prefixed
// environment default, and a .env.local file is loaded unless disabled.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"cvpc/internal/logging"
	"cvpc/internal/secrets"
	"cvpc/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in the root PersistentPreRunE and shared by all
// subcommands.
var logger *zap.Logger

// loadedSecrets holds tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the cvpc CLI.
var rootCmd = &cobra.Command{
	Use:   "cvpc",
	Short: "Computer Vision Player Core",
	Long: `cvpc is the control plane for the Computer Vision Player Core. It connects
player agents to a coordinating Cloudflare Durable Object over WebSocket,
serves an HTTP API for submitting and inspecting player events, and offers
an interactive command session.

Apply general debugging options:
  cvpc -D ...`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := loadDotenv(); err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s

		logger, err = logging.New(logConfig())
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cvpc.yaml or ~/.config/cvpc/config.yaml)")
	rootCmd.PersistentFlags().Bool("no-dotenv", false, "do not load a dot-env file")
	rootCmd.PersistentFlags().String("dotenv-path", ".env.local", "dot-env file to load")

	rootCmd.PersistentFlags().BoolP("colored-logging", "c", false, "use colored logging")
	rootCmd.PersistentFlags().Bool("default-logging", false, "use default (JSON) logging")
	rootCmd.PersistentFlags().BoolP("simple-logging", "s", false, "use simple logging")
	rootCmd.MarkFlagsMutuallyExclusive("colored-logging", "default-logging", "simple-logging")

	rootCmd.PersistentFlags().String("rotate-logging-prefix", "", "route logs to a timestamped file with this prefix")
	rootCmd.PersistentFlags().String("rotate-logging-when", logging.RotateDate,
		"rotate file granularity: date, hour, or minute")

	rootCmd.PersistentFlags().String("severity", logging.SeverityInfo,
		fmt.Sprintf("logging severity (one of %v)", logging.Severities()))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debugging mode and force debug severity")
	rootCmd.PersistentFlags().CountP("verbose", "v", "be more verbose during the operation")
	rootCmd.PersistentFlags().BoolP("D", "D", false, "same as ['-c', '-d', '-vv']")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cvpc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cvpc"))
		}
	}

	viper.SetEnvPrefix("CVPC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadDotenv applies the dot-env file to the process environment before
// viper resolves anything from it. A missing or unreadable file is
// skipped, not an error; malformed contents still fail.
func loadDotenv() error {
	if viper.GetBool("no-dotenv") {
		return nil
	}
	path := viper.GetString("dotenv-path")
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "skipping dot-env file %s: %v\n", path, err)
		}
		return nil
	}
	defer f.Close()

	if err := gotenv.Apply(f); err != nil {
		return fmt.Errorf("loading dot-env file %s: %w", path, err)
	}
	return nil
}

// logConfig assembles the logging settings, honoring the -D convenience
// flag (colored + debug + -vv).
func logConfig() types.LogConfig {
	cfg := types.LogConfig{
		Severity:     viper.GetString("severity"),
		Style:        types.LogStyleDefault,
		RotatePrefix: viper.GetString("rotate-logging-prefix"),
		RotateWhen:   viper.GetString("rotate-logging-when"),
		Debug:        viper.GetBool("debug"),
		Verbose:      viper.GetInt("verbose"),
	}
	if viper.GetBool("colored-logging") {
		cfg.Style = types.LogStyleColored
	}
	if viper.GetBool("simple-logging") {
		cfg.Style = types.LogStyleSimple
	}
	if viper.GetBool("D") {
		cfg.Style = types.LogStyleColored
		cfg.Debug = true
		if cfg.Verbose < 2 {
			cfg.Verbose = 2
		}
	}
	return cfg
}

// httpConfig assembles the API server settings shared by the agent,
// server, and cli subcommands.
func httpConfig() types.HTTPConfig {
	return types.HTTPConfig{
		Bind:    viper.GetString("api-http-bind"),
		Port:    viper.GetInt("api-http-port"),
		Timeout: viper.GetDuration("api-http-timeout"),
	}
}

// journalConfig assembles the event journal settings.
func journalConfig() types.JournalConfig {
	return types.JournalConfig{Dir: viper.GetString("journal-dir")}
}

// addHTTPFlags registers the API server flags on a subcommand.
func addHTTPFlags(cmd *cobra.Command) {
	cmd.Flags().String("api-http-bind", types.DefaultAPIHTTPBind, "host address")
	cmd.Flags().Int("api-http-port", types.DefaultAPIHTTPPort, "port number")
	cmd.Flags().Duration("api-http-timeout", types.DefaultAPIHTTPTimeout, "common timeout")
}

// addJournalFlags registers the event journal flags on a subcommand.
func addJournalFlags(cmd *cobra.Command) {
	cmd.Flags().String("journal-dir", types.DefaultJournalDir, "base directory for the event journal")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
