// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration model shared by the cvpc
// subcommands. Every field has an environment-variable default (prefix
// CVPC_) and a matching command-line flag; flags win over environment,
// environment wins over the config file.
package types

import "time"

// Defaults mirrored by the flag and environment bindings.
const (
	DefaultAPIHTTPBind    = "0.0.0.0"
	DefaultAPIHTTPPort    = 8080
	DefaultAPIHTTPTimeout = 8 * time.Second

	DefaultWSConnectTimeout = 10 * time.Second
	DefaultWSPingInterval   = 30 * time.Second
	DefaultWSPingTimeout    = 10 * time.Second

	DefaultJournalDir = "journal"
)

// HTTPConfig holds the API server bind settings.
type HTTPConfig struct {
	// Bind is the listen address (default "0.0.0.0").
	Bind string `json:"bind" yaml:"bind"`

	// Port is the listen port (default 8080).
	Port int `json:"port" yaml:"port"`

	// Timeout is the common read/write timeout (default 8s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// WSConfig holds the agent's WebSocket connection settings.
type WSConfig struct {
	// URL is the WebSocket endpoint of the coordinating Durable Object
	// (e.g. "wss://player.example.com/agent"). Required for the agent.
	URL string `json:"url" yaml:"url"`

	// ConnectTimeout bounds the opening handshake (default 10s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// PingInterval is the keepalive ping period (default 30s).
	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval"`

	// PingTimeout is how long to wait for a pong before the connection
	// is considered dead (default 10s).
	PingTimeout time.Duration `json:"ping_timeout" yaml:"ping_timeout"`

	// Token is an optional bearer token sent during the handshake.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// JournalConfig holds the event journal settings.
type JournalConfig struct {
	// Dir is the base directory for the journal database and exports
	// (default "journal").
	Dir string `json:"dir" yaml:"dir"`
}

// LogStyle selects the log output encoding.
type LogStyle string

const (
	// LogStyleDefault is structured JSON output.
	LogStyleDefault LogStyle = "default"

	// LogStyleColored is a human console encoding with colored levels.
	LogStyleColored LogStyle = "colored"

	// LogStyleSimple is message-only console output.
	LogStyleSimple LogStyle = "simple"
)

// LogConfig holds the logging settings shared by all subcommands.
type LogConfig struct {
	// Severity is one of the names accepted by logging.ParseSeverity
	// (default "info"). Debug forces "debug".
	Severity string `json:"severity" yaml:"severity"`

	// Style selects the output encoding.
	Style LogStyle `json:"style" yaml:"style"`

	// RotatePrefix, when non-empty, routes log output to a timestamped
	// file "<prefix>.<stamp>.log" instead of stderr.
	RotatePrefix string `json:"rotate_prefix,omitempty" yaml:"rotate_prefix,omitempty"`

	// RotateWhen selects the timestamp granularity for RotatePrefix:
	// "date", "hour", or "minute" (default "date").
	RotateWhen string `json:"rotate_when,omitempty" yaml:"rotate_when,omitempty"`

	// Debug enables debugging mode and forces debug severity.
	Debug bool `json:"debug" yaml:"debug"`

	// Verbose raises operational chattiness (each -v adds one).
	Verbose int `json:"verbose" yaml:"verbose"`
}
