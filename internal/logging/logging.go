// Package logging provides the leveled structured logger shared by the
// server, the conversion pipeline and the background jobs.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Level represents the severity of a log entry
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Fields carries structured key/value pairs for a log entry.
type Fields map[string]any

// Logger provides structured JSON or plain-text logging
type Logger struct {
	mu         sync.Mutex
	output     io.Writer
	minLevel   Level
	enableJSON bool
}

// Entry represents a structured log entry
type Entry struct {
	Level     Level  `json:"level"`
	Time      string `json:"time"`
	Message   string `json:"msg"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
	Caller    string `json:"caller,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Default is the process-wide logger.
var Default = New(os.Stdout, ParseLevel(os.Getenv("CONVERT_LOG_LEVEL")), jsonFromEnv())

func jsonFromEnv() bool {
	return os.Getenv("CONVERT_LOG_FORMAT") == "json" || os.Getenv("CONVERT_ENV") == "production"
}

// New creates a logger writing to w.
func New(w io.Writer, minLevel Level, enableJSON bool) *Logger {
	return &Logger{output: w, minLevel: minLevel, enableJSON: enableJSON}
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// WithRequestID stores the request id on ctx so log calls pick it up.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(requestIDKey).(string); ok {
		return s
	}
	return ""
}

func (l *Logger) enabled(level Level) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

// getCaller returns the file and line number of the caller
func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			file = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (l *Logger) log(ctx context.Context, level Level, msg string, fields Fields, err error) {
	if !l.enabled(level) {
		return
	}

	entry := Entry{
		Level:     level,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Message:   msg,
		Fields:    fields,
		Caller:    getCaller(3),
		RequestID: RequestID(ctx),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enableJSON {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
		return
	}

	// Plain text format for development
	fmt.Fprintf(l.output, "[%s] %s %s", entry.Level, entry.Time, entry.Message)
	if entry.RequestID != "" {
		fmt.Fprintf(l.output, " rid=%s", entry.RequestID)
	}
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(l.output, " %s=%v", k, entry.Fields[k])
	}
	if entry.Error != "" {
		fmt.Fprintf(l.output, " error=%q", entry.Error)
	}
	fmt.Fprintln(l.output)
}

// Debug logs a debug message
func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelDebug, msg, fields, nil)
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelInfo, msg, fields, nil)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, LevelWarn, msg, fields, nil)
}

// Error logs an error message
func (l *Logger) Error(ctx context.Context, msg string, fields Fields, err error) {
	l.log(ctx, LevelError, msg, fields, err)
}

// Debug logs a debug message on the default logger
func Debug(ctx context.Context, msg string, fields Fields) {
	Default.log(ctx, LevelDebug, msg, fields, nil)
}

// Info logs an info message on the default logger
func Info(ctx context.Context, msg string, fields Fields) {
	Default.log(ctx, LevelInfo, msg, fields, nil)
}

// Warn logs a warning message on the default logger
func Warn(ctx context.Context, msg string, fields Fields) {
	Default.log(ctx, LevelWarn, msg, fields, nil)
}

// Error logs an error message on the default logger
func Error(ctx context.Context, msg string, fields Fields, err error) {
	Default.log(ctx, LevelError, msg, fields, err)
}
