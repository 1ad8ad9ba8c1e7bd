// Package slog configures the structured logging of the qsql binaries.
// It wraps the standard [log/slog] with level and format configuration loaded
// from the environment and a handler tuned for Google Cloud Logging.
package slog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"
	"strings"
)

type (
	// Handler handles log records produced by a Logger.
	Handler = slog.Handler

	// HandlerOptions are options for a [Handler].
	HandlerOptions = slog.HandlerOptions

	// Level is the severity of a log record.
	Level = slog.Level

	// Attr is a key value pair of a log record.
	Attr = slog.Attr

	// Logger extends [slog.Logger] with [Logger.Fatal].
	Logger struct {
		*slog.Logger
	}

	// Format is the output format of log records.
	Format string

	// Config is the log configuration.
	Config struct {
		Level  Level
		Format Format
	}
)

// All log levels.
const (
	LevelInfo    Level = slog.LevelInfo
	LevelDebug   Level = slog.LevelDebug
	LevelWarn    Level = slog.LevelWarn
	LevelError   Level = slog.LevelError
	LevelDisable Level = math.MaxInt
)

// All log formats.
const (
	FormatText   Format = "text"
	FormatGcloud Format = "gcloud"
)

// Defaults used when the environment has no configuration.
const (
	DefaultLevel  = LevelInfo
	DefaultFormat = FormatGcloud
)

// HTTPRequestKey is the key of the group describing an HTTP request,
// see [HTTPRequest].
const HTTPRequestKey = "http_request"

// LoadConfig loads the log [Config] from the environment, variable names are
// prefixed by prefix: "QSQL" reads the level from QSQL_LOG_LEVEL and the format
// from QSQL_LOG_FMT.
//
// Levels are "debug", "info", "warn", "error" and "disable".
// Formats are "gcloud" and "text".
func LoadConfig(prefix string) (Config, error) {
	level, err := ParseLevel(os.Getenv(prefix + "_LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}
	format, err := ParseFormat(os.Getenv(prefix + "_LOG_FMT"))
	if err != nil {
		return Config{}, err
	}
	return Config{Level: level, Format: format}, nil
}

// NewHandler creates a handler writing to w as configured by cfg.
func NewHandler(w io.Writer, cfg Config) (Handler, error) {
	opts := &HandlerOptions{Level: cfg.Level}
	switch cfg.Format {
	case FormatText:
		return slog.NewTextHandler(w, opts), nil
	case FormatGcloud:
		return NewGoogleCloudHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
}

// NewGoogleCloudHandler creates a JSON handler writing to w in the format
// expected by Google Cloud Logging.
func NewGoogleCloudHandler(w io.Writer, opts *HandlerOptions) Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	gcloudOpts := *opts
	gcloudOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		// https://cloud.google.com/logging/docs/agent/logging/configuration#process-payload
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			a.Key = "severity"
		case slog.MessageKey:
			a.Key = "message"
		case HTTPRequestKey:
			a = convertHTTPRequest(a)
		}
		return a
	}
	return slog.NewJSONHandler(w, &gcloudOpts)
}

// Configure replaces the default logger with one writing to stderr as
// configured by cfg. Call it early on main.
func Configure(cfg Config) error {
	h, err := NewHandler(os.Stderr, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// HTTPRequest describes an HTTP request under [HTTPRequestKey]. Known keys
// are method, url, status_code, request_size, response_size, user_agent and
// elapsed, the gcloud format renames them to the Cloud Logging fields.
func HTTPRequest(attrs ...Attr) Attr {
	// Group values never reach ReplaceAttr, so the request travels as a map.
	req := make(map[string]any, len(attrs))
	for _, a := range attrs {
		req[a.Key] = a.Value.Any()
	}
	return slog.Any(HTTPRequestKey, req)
}

// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#HttpRequest
func convertHTTPRequest(a slog.Attr) slog.Attr {
	req, ok := a.Value.Any().(map[string]any)
	if !ok {
		return a
	}
	attrs := make([]slog.Attr, 0, len(req))
	for _, k := range slices.Sorted(maps.Keys(req)) {
		attrs = append(attrs, slog.Any(k, req[k]))
	}

	converted := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		switch attr.Key {
		case "method":
			attr.Key = "requestMethod"
		case "url":
			attr.Key = "requestUrl"
		case "request_size":
			attr.Key = "requestSize"
		case "status_code":
			attr.Key = "status"
		case "response_size":
			attr.Key = "responseSize"
		case "user_agent":
			attr.Key = "userAgent"
		case "elapsed":
			attr.Key = "latency"
		}
		converted[i] = attr
	}
	return slog.Attr{Key: "httpRequest", Value: slog.GroupValue(converted...)}
}

// New creates a [Logger] with the given handler.
func New(h Handler) *Logger {
	return &Logger{slog.New(h)}
}

// Default returns the default [Logger].
func Default() *Logger {
	return &Logger{slog.Default()}
}

// With returns a [Logger] that includes the given attributes on each record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Fatal is [Logger.Error] followed by os.Exit(1).
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// Info calls Info on the default logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Debug calls Debug on the default logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Warn calls Warn on the default logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error calls Error on the default logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal is [Error] followed by os.Exit(1).
func Fatal(msg string, args ...any) {
	Error(msg, args...)
	os.Exit(1)
}

// FromCtx returns the [Logger] of ctx, or the default one when ctx has none.
func FromCtx(ctx context.Context) *Logger {
	if log, ok := ctx.Value(loggerKey).(*Logger); ok {
		return log
	}
	return Default()
}

// NewContext returns a copy of ctx carrying log. Retrieve it with [FromCtx].
func NewContext(ctx context.Context, log *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

type key int

const loggerKey key = iota

// ParseLevel parses a level name, the empty string is [LevelInfo].
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disable":
		return LevelDisable, nil
	}
	return 0, fmt.Errorf("invalid log level: %q", level)
}

// ParseFormat parses a format name, the empty string is [FormatGcloud].
func ParseFormat(format string) (Format, error) {
	switch Format(format) {
	case FormatGcloud, FormatText:
		return Format(format), nil
	case "":
		return DefaultFormat, nil
	}
	return "", fmt.Errorf("unknown log format: %q", format)
}
