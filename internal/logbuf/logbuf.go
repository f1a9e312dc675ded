// Package logbuf retains recent log lines in memory so they can be viewed
// away from the terminal (the MCP logs resource).
package logbuf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Buffer is a fixed-capacity ring of formatted log lines.
type Buffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

// New creates a buffer retaining the last max lines.
func New(max int) *Buffer {
	return &Buffer{max: max}
}

// Append adds a line, evicting the oldest once past capacity.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

// Lines returns a copy of the retained lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Handler is a slog.Handler that tees every record into a Buffer before
// forwarding to an inner handler.
type Handler struct {
	inner slog.Handler
	buf   *Buffer
	attrs []slog.Attr
}

// NewHandler wraps inner with buffer retention.
func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

// Enabled always accepts; the buffer retains every level, the inner
// handler applies its own filtering in Handle.
func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

// Handle formats the record into the buffer and forwards it.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s", r.Time.Format("15:04:05"), r.Level, r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})
	h.buf.Append(sb.String())

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// WithAttrs carries attrs into both the buffer lines and the inner handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{inner: h.inner.WithAttrs(attrs), buf: h.buf, attrs: merged}
}

// WithGroup forwards grouping to the inner handler; buffer lines stay flat.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf, attrs: h.attrs}
}
