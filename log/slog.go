package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const instrumentationName = "github.com/datachainlab/grandpa-relayer"

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

// InitLogger initializes the global logger writing to stdout or stderr.
func InitLogger(logLevel, format, output string, enableTelemetry bool) error {
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.Newf("invalid log output: %s", output)
	}
	return InitLoggerWithWriter(logLevel, format, writer, enableTelemetry)
}

// InitLoggerWithWriter initializes the global logger writing to writer. When
// enableTelemetry is set, records are also sent to the global OpenTelemetry
// logger provider.
func InitLoggerWithWriter(logLevel, format string, writer io.Writer, enableTelemetry bool) error {
	var slogLevel slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "INFO":
		slogLevel = slog.LevelInfo
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR":
		slogLevel = slog.LevelError
	default:
		return errors.Newf("invalid log level: %s", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return errors.Newf("invalid log format: %s", format)
	}

	if enableTelemetry {
		handler = slogmulti.Fanout(handler, otelslog.NewHandler(instrumentationName))
	}

	relayLogger = &RelayLogger{slog.New(handler)}
	return nil
}

// GetLogger returns the global logger. It falls back to the slog default
// logger if InitLogger has not been called.
func GetLogger() *RelayLogger {
	if relayLogger == nil {
		return &RelayLogger{slog.Default()}
	}
	return relayLogger
}

func (rl *RelayLogger) log(ctx context.Context, level slog.Level, skipCallDepth int, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !rl.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	// skip [runtime.Callers, this function] and skipCallDepth wrappers
	runtime.Callers(2+skipCallDepth, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = rl.Handler().Handle(ctx, r)
}

func errorArgs(err error, args []any) []any {
	return append([]any{"error", err, "stack", fmt.Sprintf("%+v", errors.WithStackDepth(err, 2))}, args...)
}

// Error logs err with its stack trace.
func (rl *RelayLogger) Error(msg string, err error, args ...any) {
	rl.log(context.Background(), slog.LevelError, 1, msg, errorArgs(err, args)...)
}

func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, args ...any) {
	rl.log(ctx, slog.LevelError, 1, msg, errorArgs(err, args)...)
}

// Fatal logs err and terminates the process.
func (rl *RelayLogger) Fatal(msg string, err error, args ...any) {
	rl.log(context.Background(), slog.LevelError, 1, msg, errorArgs(err, args)...)
	os.Exit(1)
}

func (rl *RelayLogger) with(args ...any) *RelayLogger {
	return &RelayLogger{rl.With(args...)}
}

func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return rl.with("module", moduleName)
}

func (rl *RelayLogger) WithChain(chainName string) *RelayLogger {
	return rl.with("chain", chainName)
}

// WithBridge adds the relay direction.
func (rl *RelayLogger) WithBridge(sourceChain, targetChain string) *RelayLogger {
	return rl.with(
		"source chain", sourceChain,
		"target chain", targetChain,
	)
}

func (rl *RelayLogger) WithLane(sourceChain, targetChain, laneID string) *RelayLogger {
	return rl.with(
		"source chain", sourceChain,
		"target chain", targetChain,
		"lane id", laneID,
	)
}

func (rl *RelayLogger) WithSession(sessionID string) *RelayLogger {
	return rl.with("session", sessionID)
}
