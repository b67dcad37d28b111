package testing

import (
	"context"
	"log/slog"
	"sync"
)

// LogEntry is one record captured by a LogRecorder.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder captures the records of the loggers it hands out. It is safe
// for concurrent use.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Logger returns a logger recording every record at every level.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(&recordingHandler{recorder: r})
}

func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]LogEntry(nil), r.entries...)
}

func (r *LogRecorder) ByLevel(level slog.Level) []LogEntry {
	var filtered []LogEntry
	for _, entry := range r.Entries() {
		if entry.Level == level {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Find returns the first entry with message msg.
func (r *LogRecorder) Find(msg string) (LogEntry, bool) {
	for _, entry := range r.Entries() {
		if entry.Message == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

func (r *LogRecorder) HasMessage(msg string) bool {
	_, ok := r.Find(msg)
	return ok
}

func (r *LogRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

type recordingHandler struct {
	recorder *LogRecorder
	attrs    []slog.Attr
	group    string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	entry := LogEntry{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]any, len(h.attrs)+record.NumAttrs()),
	}
	for _, attr := range h.attrs {
		entry.Attrs[attr.Key] = attr.Value.Resolve().Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.Attrs[h.qualify(attr.Key)] = attr.Value.Resolve().Any()
		return true
	})

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	h.recorder.entries = append(h.recorder.entries, entry)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.qualify(attr.Key)
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.qualify(name)
	return &clone
}

func (h *recordingHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}
