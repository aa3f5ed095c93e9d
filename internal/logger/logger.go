// Package logger provides the structured log handler for the GitHub Sentinel service.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogFormat defines how log messages are formatted
type LogFormat int

// Log format constants
const (
	TEXT LogFormat = iota
	JSON
)

// LevelDisabled is above every level slog emits, so nothing passes it.
const LevelDisabled = slog.Level(16)

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      LogFormat
	Output      io.Writer
	DefaultTags map[string]interface{}
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": "github-sentinel"},
	}
}

// Handler is a slog.Handler writing one line per record, either as
//
//	2024-11-01T10:00:00Z [INFO] [llm.openai] message (file.go:42) key=value
//
// or as a flat JSON object. Groups render as a dotted context path rather
// than as key prefixes.
type Handler struct {
	level  slog.Leveler
	format LogFormat
	out    io.Writer
	attrs  []slog.Attr
	groups []string
	mu     *sync.Mutex
}

// New creates a new logger with the given configuration
func New(config *Config) *slog.Logger {
	return slog.New(NewHandler(config))
}

// NewHandler creates the handler behind New.
func NewHandler(config *Config) *Handler {
	if config == nil {
		config = DefaultConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	attrs := make([]slog.Attr, 0, len(config.DefaultTags))
	for k, v := range config.DefaultTags {
		attrs = append(attrs, slog.Any(k, v))
	}

	return &Handler{
		level:  config.Level,
		format: config.Format,
		out:    out,
		attrs:  attrs,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that appends name to the context path.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Handle formats and writes the record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	timestamp := r.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = attrValue(a.Value)
		return true
	})

	var output string
	if h.format == TEXT {
		output = h.formatText(timestamp, r, fields)
	} else {
		line, err := h.formatJSON(timestamp, r, fields)
		if err != nil {
			return err
		}
		output = line
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, output)
	return err
}

func (h *Handler) formatText(ts time.Time, r slog.Record, fields map[string]interface{}) string {
	contextStr := ""
	if len(h.groups) > 0 {
		contextStr = "[" + strings.Join(h.groups, ".") + "] "
	}

	fieldsStr := ""
	if len(fields) > 0 {
		pairs := make([]string, 0, len(fields))
		for _, k := range sortedKeys(fields) {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
		}
		fieldsStr = " " + strings.Join(pairs, " ")
	}

	return fmt.Sprintf("%s [%s] %s%s (%s)%s\n",
		ts.UTC().Format(time.RFC3339), levelName(r.Level), contextStr, r.Message, caller(r.PC), fieldsStr)
}

func (h *Handler) formatJSON(ts time.Time, r slog.Record, fields map[string]interface{}) (string, error) {
	entry := make(map[string]interface{}, len(fields)+5)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = ts.UTC().Format(time.RFC3339)
	entry["level"] = levelName(r.Level)
	entry["message"] = r.Message
	entry["caller"] = caller(r.PC)
	if len(h.groups) > 0 {
		entry["context"] = strings.Join(h.groups, ".")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal log entry: %w", err)
	}
	return string(data) + "\n", nil
}

func attrValue(v slog.Value) interface{} {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		group := make(map[string]interface{})
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	if d, ok := v.Any().(time.Duration); ok {
		return d.String()
	}
	return v.Any()
}

func levelName(level slog.Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return level.String()
}

func caller(pc uintptr) string {
	if pc == 0 {
		return "unknown"
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseLevel converts a string level to a slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "DISABLED", "OFF":
		return LevelDisabled
	default:
		return slog.LevelInfo
	}
}

// ParseFormat converts "json" to JSON; anything else is TEXT.
func ParseFormat(format string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return JSON
	}
	return TEXT
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return New(&Config{Level: LevelDisabled, Output: io.Discard})
}
