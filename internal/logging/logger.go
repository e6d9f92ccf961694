package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex

	// level is shared by every handler Configure installs, so SetLevel
	// adjusts verbosity without replacing the redacting handler.
	level = new(slog.LevelVar)
)

func init() {
	// Structured JSON on stderr keeps stdout free for command output.
	defaultLogger = slog.New(NewRedactingHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetLogger sets the global logger
func SetLogger(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// SetLevel sets the logging level of the installed handler.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Configure installs a redacting logger with the given level and format
// ("json" or "text") writing to w.
func Configure(lvl, format string, w io.Writer) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	SetLevel(parsed)
	SetLogger(slog.New(NewRedactingHandler(handler)))
	return nil
}

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Logger returns the default logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// With returns a logger with additional context
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Common field helpers
func Address(addr fmt.Stringer) slog.Attr {
	return slog.String("address", addr.String())
}

func TxHash(hash fmt.Stringer) slog.Attr {
	return slog.String("tx_hash", hash.String())
}

func ChainID(id fmt.Stringer) slog.Attr {
	if id == nil {
		return slog.String("chain_id", "")
	}
	return slog.String("chain_id", id.String())
}

func Action(name string) slog.Attr {
	return slog.String("action", name)
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}
