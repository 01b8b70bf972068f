// Package logger provides centralized slog configuration for the application
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level string
	// Format sets the output format (text or json)
	Format string
	// AddSource adds source file information to log entries
	AddSource bool
	// Output is where log lines are written; defaults to stdout
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     getEnvOrDefault("LOG_LEVEL", "info"),
		Format:    getEnvOrDefault("LOG_FORMAT", "json"),
		AddSource: getEnvOrDefault("LOG_ADD_SOURCE", "false") == "true",
	}
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new slog.Logger with the given configuration
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

// NewDefaultLogger creates a new slog.Logger with default configuration
func NewDefaultLogger() *slog.Logger {
	return NewLogger(DefaultConfig())
}

// SetDefault sets the default slog logger
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// OrDefault returns logger, or slog.Default() when logger is nil
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithLambda adds AWS Lambda context fields to a logger
func WithLambda(logger *slog.Logger, functionName, functionVersion, requestID string) *slog.Logger {
	return logger.With(
		slog.Group("lambda",
			slog.String("function_name", functionName),
			slog.String("function_version", functionVersion),
			slog.String("request_id", requestID),
		),
	)
}

// WithService adds service context to a logger
func WithService(logger *slog.Logger, serviceName string) *slog.Logger {
	return logger.With(slog.String("service", serviceName))
}

// WithExecutable adds executable name to a logger for filtering by program
func WithExecutable(logger *slog.Logger, executableName string) *slog.Logger {
	return logger.With(slog.String("executable", executableName))
}

// WithDomain scopes a logger to a single domain under validation
func WithDomain(logger *slog.Logger, domain string) *slog.Logger {
	return logger.With(slog.String("domain", domain))
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
