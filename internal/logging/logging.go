// Package logging provides the slog setup shared by both sides of the bridge.
//
// Records are kept in a bounded in-memory ring so interactive views can show
// recent activity, and optionally forwarded to a text handler (stderr or a
// log file).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Entry is a single buffered log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// String renders the entry on one line.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(e.Level.String())
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		_, _ = fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

// DefaultMaxEntries bounds the ring when no size is given.
const DefaultMaxEntries = 1000

type ring struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// Buffer is a slog.Handler that retains the most recent records.
type Buffer struct {
	ring  *ring
	level slog.Leveler
	next  slog.Handler
	attrs []slog.Attr
	group string
}

// NewBuffer creates a Buffer retaining up to maxEntries records at or above
// level. If next is non-nil every record is also passed to it.
func NewBuffer(maxEntries int, level slog.Leveler, next slog.Handler) *Buffer {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &Buffer{
		ring:  &ring{entries: make([]Entry, 0, min(maxEntries, 64)), max: maxEntries},
		level: level,
		next:  next,
	}
}

// Enabled implements slog.Handler.
func (h *Buffer) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Buffer) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	record.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		attrs[key] = a.Value.String()
		return true
	})

	h.ring.mu.Lock()
	h.ring.entries = append(h.ring.entries, Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if over := len(h.ring.entries) - h.ring.max; over > 0 {
		h.ring.entries = append(h.ring.entries[:0], h.ring.entries[over:]...)
	}
	h.ring.mu.Unlock()

	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Buffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *Buffer) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

// Entries returns a copy of all retained records, oldest first.
func (h *Buffer) Entries() []Entry {
	return h.Recent(0)
}

// Recent returns up to count of the newest records, oldest first. A count
// of zero or less returns everything.
func (h *Buffer) Recent(count int) []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	n := len(h.ring.entries)
	if count <= 0 || count > n {
		count = n
	}
	out := make([]Entry, count)
	copy(out, h.ring.entries[n-count:])
	return out
}

// Search returns records whose message or attributes contain query,
// case-insensitively.
func (h *Buffer) Search(query string) []Entry {
	query = strings.ToLower(query)
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	var matches []Entry
	for _, e := range h.ring.entries {
		if strings.Contains(strings.ToLower(e.Message), query) {
			matches = append(matches, e)
			continue
		}
		for k, v := range e.Attrs {
			if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// Clear drops all retained records.
func (h *Buffer) Clear() {
	h.ring.mu.Lock()
	h.ring.entries = h.ring.entries[:0]
	h.ring.mu.Unlock()
}

// New returns a logger writing text records at level to w (if non-nil) and
// the Buffer that retains them.
func New(w io.Writer, level slog.Level, maxEntries int) (*slog.Logger, *Buffer) {
	var next slog.Handler
	if w != nil {
		next = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	buf := NewBuffer(maxEntries, level, next)
	return slog.New(buf), buf
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger if it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}
