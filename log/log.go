package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level is a logging severity, parsed from and rendered to the lowercase
// strings accepted on the CLI (debug/info/warn/error).
type Level string

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = "debug"
	// LevelInfo is the default level.
	LevelInfo Level = "info"
	// LevelWarn is for recoverable problems (see this package's event
	// [Sink], which accumulates these for a pipeline run rather than
	// writing them inline).
	LevelWarn Level = "warn"
	// LevelError is for fatal problems.
	LevelError Level = "error"
)

// Handler is the [slog.Handler] type this package constructs, aliased so
// callers (and [Config.NewHandler]) need not import log/slog themselves.
type Handler = slog.Handler

// Format represents the log output format.
type Format string

const (
	// FormatJSON outputs logs as JSON objects.
	FormatJSON Format = "json"
	// FormatLogfmt outputs logs in logfmt (key=value) format with source
	// locations attached.
	FormatLogfmt Format = "logfmt"
	// FormatText outputs a console-friendly rendering with no source
	// location, suited to interactive CLI use.
	FormatText Format = "text"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownLogLevel indicates an unrecognized log level string.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

// NewHandlerFromStrings creates a [slog.Handler] from the string forms of a
// level and format, as parsed from CLI flags.
func NewHandlerFromStrings(w io.Writer, levelStr, formatStr string) (slog.Handler, error) {
	lvl, err := ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return NewHandler(w, lvl, format), nil
}

// NewHandler creates a [slog.Handler] with the specified level and format.
func NewHandler(w io.Writer, level Level, format Format) slog.Handler {
	slogLevel := level.slogLevel()

	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     slogLevel,
		})
	case FormatLogfmt:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     slogLevel,
		})
	case FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slogLevel,
		})
	}

	return nil
}

// slogLevel maps a Level to its [slog.Level] equivalent, defaulting to
// LevelInfo's severity for an unrecognized (zero-value) Level.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a log level string into a [Level].
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}

	return "", ErrUnknownLogLevel
}

// ParseFormat parses a log format string into a [Format].
func ParseFormat(format string) (Format, error) {
	f := Format(strings.ToLower(format))

	switch f {
	case FormatJSON, FormatLogfmt, FormatText:
		return f, nil
	}

	return "", ErrUnknownLogFormat
}

// GetAllLevelStrings returns every recognized level string, in ascending
// order of verbosity restriction (most to least verbose).
func GetAllLevelStrings() []string {
	return []string{string(LevelDebug), string(LevelInfo), string(LevelWarn), string(LevelError)}
}

// GetAllFormatStrings returns every recognized format string.
func GetAllFormatStrings() []string {
	return []string{string(FormatJSON), string(FormatLogfmt), string(FormatText)}
}
