package ante

import (
	"context"
	"log/slog"
	"time"
)

// EventType classifies a CacheEvent.
type EventType string

const (
	EventHit        EventType = "HIT"
	EventMiss       EventType = "MISS"
	EventSet        EventType = "SET"
	EventDelete     EventType = "DELETE"
	EventInvalidate EventType = "INVALIDATE"
	EventError      EventType = "ERROR"
)

// CacheEvent is an observability record of one cache operation.
// Events are handed to an EventSink and never persisted.
type CacheEvent struct {
	Type      EventType
	Key       string
	Timestamp time.Time
	CompanyID string
	Metadata  map[string]any
}

// EventSink receives cache events. Record must not block for long; it runs
// inline with the cache operation.
type EventSink interface {
	Record(ctx context.Context, ev CacheEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev CacheEvent)

func (f EventSinkFunc) Record(ctx context.Context, ev CacheEvent) { f(ctx, ev) }

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Record(ctx context.Context, ev CacheEvent) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, ev)
		}
	}
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Record(context.Context, CacheEvent) {}

// LogSink writes events to a slog.Logger. Hits, misses, sets and deletes are
// logged at debug, invalidations at info and errors at warn.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a LogSink on logger, or on slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger.With(slog.String("component", "cache"))}
}

func (s *LogSink) Record(ctx context.Context, ev CacheEvent) {
	level := slog.LevelDebug
	switch ev.Type {
	case EventInvalidate:
		level = slog.LevelInfo
	case EventError:
		level = slog.LevelWarn
	}
	if !s.Logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, 3+len(ev.Metadata))
	attrs = append(attrs, slog.String("key", ev.Key))
	if ev.CompanyID != "" {
		attrs = append(attrs, slog.String("companyId", ev.CompanyID))
	}
	for k, v := range ev.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.Logger.LogAttrs(ctx, level, "cache "+string(ev.Type), attrs...)
}
