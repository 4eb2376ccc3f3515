package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler moves log writes off the request path through a buffered
// channel drained by a fixed set of workers. When the buffer is full, records
// below warn level are dropped and counted; warnings and errors are written
// synchronously so capacity and settlement failures are never lost.
type AsyncHandler struct {
	inner   slog.Handler
	ch      chan queued
	wg      *sync.WaitGroup
	dropped *atomic.Int64
	inline  *atomic.Int64
}

type queued struct {
	h   slog.Handler
	rec slog.Record
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		ch:      make(chan queued, chanSize),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
		inline:  &atomic.Int64{},
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.wg.Done()
	for q := range h.ch {
		_ = q.h.Handle(context.Background(), q.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Context attributes are resolved by the inner
// handler chain before the record leaves the caller's goroutine.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	inner := h.inner
	if id := RequestID(ctx); id != "" {
		rec = rec.Clone()
		rec.AddAttrs(slog.String("request_id", id))
		inner = unwrapContext(inner)
	}
	if tid, ok := TenantID(ctx); ok {
		rec = rec.Clone()
		rec.AddAttrs(slog.Int64("tenant_id", tid))
		inner = unwrapContext(inner)
	}
	select {
	case h.ch <- queued{h: inner, rec: rec}:
		return nil
	default:
	}
	if rec.Level >= slog.LevelWarn {
		h.inline.Add(1)
		return inner.Handle(ctx, rec)
	}
	h.dropped.Add(1)
	return nil
}

// unwrapContext skips the context handler once its attributes were copied.
func unwrapContext(h slog.Handler) slog.Handler {
	if ch, ok := h.(*contextHandler); ok {
		return ch.inner
	}
	return h
}

// WithAttrs returns a new AsyncHandler sharing the same channel but wrapping a new inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	return &c
}

// WithGroup returns a new AsyncHandler sharing the same channel but wrapping a new inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.inner = h.inner.WithGroup(name)
	return &c
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// InlineCount returns how many records were written synchronously because the buffer was full.
func (h *AsyncHandler) InlineCount() int64 {
	return h.inline.Load()
}

// Close closes the channel and waits for all workers to drain.
func (h *AsyncHandler) Close() {
	close(h.ch)
	h.wg.Wait()
}
