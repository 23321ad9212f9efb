package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// Format is the output layout of a Handler.
type Format string

const (
	// FormatCompact writes one line per record with attributes as a JSON object:
	// 2026-03-01 10:40:35 DEBUG Span event → {"event":"stream.first_chunk"}
	FormatCompact Format = "compact"

	// FormatPretty writes the message line followed by one indented line per attribute.
	FormatPretty Format = "pretty"

	// FormatJSON writes one JSON object per record, for log shipping.
	FormatJSON Format = "json"
)

// LevelTrace sits below slog.LevelDebug and is used for per-fragment stream records.
const LevelTrace = slog.LevelDebug - 4

// Environment variables read by New when no explicit option is given. The LOG_* names are
// fallbacks shared with other tools.
const (
	EnvLogFormat         = "VERTEXGEN_LOG_FORMAT"
	EnvLogLevel          = "VERTEXGEN_LOG_LEVEL"
	fallbackEnvLogFormat = "LOG_FORMAT"
	fallbackEnvLogLevel  = "LOG_LEVEL"
)

// ParseFormat maps a case-insensitive name to a Format. Unknown names yield FormatCompact.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// ParseLevel maps trace, debug, info, warn/warning and error to a slog level.
// Unknown or empty names yield slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FormatFromEnv reads VERTEXGEN_LOG_FORMAT, then LOG_FORMAT.
func FormatFromEnv() Format {
	return ParseFormat(firstEnv(EnvLogFormat, fallbackEnvLogFormat))
}

// LevelFromEnv reads VERTEXGEN_LOG_LEVEL, then LOG_LEVEL.
func LevelFromEnv() slog.Level {
	return ParseLevel(firstEnv(EnvLogLevel, fallbackEnvLogLevel))
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}
