// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger used by every cvpc subcommand.
// Three output styles are supported: structured JSON (default), a colored
// console encoding, and a message-only simple encoding. Output goes to
// stderr unless a rotate prefix routes it to a timestamped file.
package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cvpc/pkg/types"
)

// Severity names accepted on the command line and in CVPC_SEVERITY.
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
	SeverityOff      = "off"
)

// severityLevels maps accepted names (including aliases) to zap levels.
var severityLevels = map[string]zapcore.Level{
	SeverityDebug:    zapcore.DebugLevel,
	"dbg":            zapcore.DebugLevel,
	SeverityInfo:     zapcore.InfoLevel,
	SeverityWarning:  zapcore.WarnLevel,
	"warn":           zapcore.WarnLevel,
	SeverityError:    zapcore.ErrorLevel,
	SeverityCritical: zapcore.DPanicLevel,
	"fatal":          zapcore.FatalLevel,
	SeverityOff:      zapcore.InvalidLevel,
}

// Severities returns the canonical severity names, sorted, for flag help
// and validation messages.
func Severities() []string {
	names := make([]string, 0, len(severityLevels))
	for name := range severityLevels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseSeverity resolves a severity name to a zap level. Matching is
// case-insensitive.
func ParseSeverity(name string) (zapcore.Level, error) {
	level, ok := severityLevels[strings.ToLower(name)]
	if !ok {
		return zapcore.InvalidLevel, fmt.Errorf("unknown severity %q (choose from %v)", name, Severities())
	}
	return level, nil
}

// Rotate granularities for LogConfig.RotateWhen.
const (
	RotateDate   = "date"
	RotateHour   = "hour"
	RotateMinute = "minute"
)

// rotateLayouts maps a rotate granularity to its timestamp layout.
var rotateLayouts = map[string]string{
	RotateDate:   "20060102",
	RotateHour:   "2006010215",
	RotateMinute: "200601021504",
}

// RotateFilename returns the log file path for prefix at now, e.g.
// "cvpc.20260115.log" for the date granularity. An unknown granularity
// falls back to date.
func RotateFilename(prefix, when string, now time.Time) string {
	layout, ok := rotateLayouts[when]
	if !ok {
		layout = rotateLayouts[RotateDate]
	}
	return fmt.Sprintf("%s.%s.log", prefix, now.Format(layout))
}

// New builds a logger from cfg. Debug forces debug severity regardless of
// cfg.Severity, and each verbose step lowers the effective severity one
// notch (down to debug). The "off" severity returns a no-op logger.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	level, err := ParseSeverity(severityName(cfg))
	if err != nil {
		return nil, err
	}
	if level == zapcore.InvalidLevel {
		return zap.NewNop(), nil
	}
	for i := 0; i < cfg.Verbose && level > zapcore.DebugLevel; i++ {
		level--
	}

	zc := styleConfig(cfg.Style)
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.RotatePrefix != "" {
		zc.OutputPaths = []string{RotateFilename(cfg.RotatePrefix, cfg.RotateWhen, time.Now())}
		zc.ErrorOutputPaths = zc.OutputPaths
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func severityName(cfg types.LogConfig) string {
	if cfg.Debug {
		return SeverityDebug
	}
	if cfg.Severity == "" {
		return SeverityInfo
	}
	return cfg.Severity
}

func styleConfig(style types.LogStyle) zap.Config {
	switch style {
	case types.LogStyleColored:
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
		return zc
	case types.LogStyleSimple:
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.TimeKey = zapcore.OmitKey
		zc.EncoderConfig.LevelKey = zapcore.OmitKey
		zc.EncoderConfig.CallerKey = zapcore.OmitKey
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
		return zc
	default:
		zc := zap.NewProductionConfig()
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
		return zc
	}
}
