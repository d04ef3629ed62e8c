// Package tracing times the phases of batch operations (index builds,
// artifact loads) as a tree of spans carried in a context and logs the
// tree through slog when the operation finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Span is one timed phase. Children are the phases started under it.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	children []*Span
	attrs    []any
}

// Start opens a root span with a fresh trace id.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: uuid.NewString(), StartTime: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent it starts
// a new trace.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return Start(ctx, name)
	}
	child := &Span{Name: name, TraceID: parent.TraceID, StartTime: time.Now()}
	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		s.duration = time.Since(s.StartTime)
	}
}

// SetAttr attaches a key-value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Phases returns the durations of the direct children keyed by name.
func (s *Span) Phases() map[string]time.Duration {
	s.mu.Lock()
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()
	phases := make(map[string]time.Duration, len(children))
	for _, c := range children {
		phases[c.Name] = c.Duration()
	}
	return phases
}

// Log writes the span tree depth first, one record per span.
func (s *Span) Log(logger *slog.Logger, level slog.Level) {
	s.log(logger, level, 0)
}

func (s *Span) log(logger *slog.Logger, level slog.Level, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.duration.Milliseconds(),
		"depth", depth,
	}
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.Log(context.Background(), level, "span", attrs...)
	for _, c := range children {
		c.log(logger, level, depth+1)
	}
}
