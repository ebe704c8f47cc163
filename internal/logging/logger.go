// Package logging provides the leveled slog logger used across the simulator
// and an optional JSONL trace of individual agent decisions.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelTrace sits below Debug and enables the per-decision trace.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps "info", "debug" or "trace" (any case) to a slog.Level.
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level. Empty means info.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DecisionTrace appends one JSON object per agent decision to
// dir/decisions.jsonl. A nil *DecisionTrace is valid and discards everything.
type DecisionTrace struct {
	mu  sync.Mutex
	enc *json.Encoder
	f   *os.File
}

// NewDecisionTrace opens the trace file when level is trace. At any other
// level it returns nil. When the file cannot be opened it logs a warning and
// returns nil.
func NewDecisionTrace(dir, level string) *DecisionTrace {
	if ParseLevel(level) != LevelTrace {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Warn("decision trace disabled", "dir", dir, "error", err)
		return nil
	}
	path := filepath.Join(dir, "decisions.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Warn("decision trace disabled", "path", path, "error", err)
		return nil
	}
	return &DecisionTrace{enc: json.NewEncoder(f), f: f}
}

// Write records v as a single line. Encoding errors are dropped.
func (t *DecisionTrace) Write(v any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return
	}
	_ = t.enc.Encode(v)
}

// Close flushes and closes the file. Safe on a nil receiver.
func (t *DecisionTrace) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
