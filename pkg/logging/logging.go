package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

// InitForCLI initializes the logging system. Logs are written to the given
// writer with a colored, human-oriented format. Should be called once at
// application startup; log helpers fall back to stderr if it never was.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = slog.New(newConsoleHandler(output, filterLevel.SlogLevel()))
	slog.SetDefault(defaultLogger)
}

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

var subsystemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

// consoleHandler is a minimal slog.Handler that renders
// "HH:MM:SS LEVEL subsystem message (error)" lines with colored level tags.
type consoleHandler struct {
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	mu    *sync.Mutex
}

func newConsoleHandler(out io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{out: out, level: level, mu: &sync.Mutex{}}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var subsystem, errText string
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case "subsystem":
			subsystem = a.Value.String()
		case "error":
			errText = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	line := fmt.Sprintf("%s %-5s", record.Time.Format(time.TimeOnly),
		levelStyles[record.Level].Render(record.Level.String()))
	if subsystem != "" {
		line += " " + subsystemStyle.Render(subsystem)
	}
	line += " " + record.Message
	if errText != "" {
		line += ": " + errText
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	loggerMu.RLock()
	logger := defaultLogger
	loggerMu.RUnlock()
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s %s\n", time.Now().Format(time.RFC3339), level, subsystem, msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
		return
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}
