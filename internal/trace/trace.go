// Package trace carries one run's distributed trace: a root or child context,
// its spans and an ordered event log that is mirrored onto OpenTelemetry spans.
package trace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alanyang/agent-exec"

// Event is one entry of the trace's event log.
type Event struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Attrs seeds a root trace.
type Attrs struct {
	UserID        string
	ThreadID      string
	CorrelationID string
}

// Context is the trace state of one run. It is safe for concurrent use.
type Context struct {
	tracer oteltrace.Tracer

	TraceID       string
	ParentSpanID  string
	UserID        string
	ThreadID      string
	CorrelationID string

	mu       sync.Mutex
	parentSC oteltrace.SpanContext
	spanID   string
	current  *Span
	events   []Event
}

// New creates a root trace. A nil tracer falls back to the global provider.
func New(tracer oteltrace.Tracer, a Attrs) *Context {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Context{
		tracer:        tracer,
		TraceID:       newTraceID(),
		UserID:        a.UserID,
		ThreadID:      a.ThreadID,
		CorrelationID: a.CorrelationID,
	}
}

// PropagateToChild derives a trace that continues this one. The child's spans
// are parented on this trace's current span and its event log starts empty.
func (c *Context) PropagateToChild() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	child := &Context{
		tracer:        c.tracer,
		TraceID:       c.TraceID,
		ParentSpanID:  c.spanID,
		UserID:        c.UserID,
		ThreadID:      c.ThreadID,
		CorrelationID: c.CorrelationID,
	}
	if c.current != nil {
		child.parentSC = c.current.otel.SpanContext()
	}
	return child
}

// StartSpan starts a span that becomes the trace's current span.
func (c *Context) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, *Span) {
	if c.parentSC.IsValid() {
		ctx = oteltrace.ContextWithSpanContext(ctx, c.parentSC)
	}
	ctx, otelSpan := c.tracer.Start(ctx, name, oteltrace.WithAttributes(toAttributes(attrs)...))

	s := &Span{name: name, otel: otelSpan}
	sc := otelSpan.SpanContext()

	c.mu.Lock()
	if sc.IsValid() {
		c.TraceID = sc.TraceID().String()
		s.id = sc.SpanID().String()
	} else {
		s.id = newSpanID()
	}
	c.spanID = s.id
	c.current = s
	c.mu.Unlock()

	return ctx, s
}

// AddEvent appends to the event log and mirrors the event onto the current span.
func (c *Context) AddEvent(name string, payload map[string]any) {
	c.mu.Lock()
	c.events = append(c.events, Event{Name: name, Payload: payload, At: time.Now().UTC()})
	current := c.current
	c.mu.Unlock()

	if current != nil && current.otel.IsRecording() {
		current.otel.AddEvent(name, oteltrace.WithAttributes(toAttributes(payload)...))
	}
}

// FinishSpan ends s. Calling it more than once is a no-op.
func (c *Context) FinishSpan(s *Span) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.otel.End()
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
	})
}

// Events returns a copy of the event log in insertion order.
func (c *Context) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ToWebSocketContext is the payload clients use to correlate events with traces.
func (c *Context) ToWebSocketContext() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := map[string]any{
		"trace_id": c.TraceID,
		"span_id":  c.spanID,
	}
	if c.ParentSpanID != "" {
		out["parent_span_id"] = c.ParentSpanID
	}
	if c.CorrelationID != "" {
		out["correlation_id"] = c.CorrelationID
	}
	return out
}

// Span is one timed, named unit of a trace.
type Span struct {
	name string
	id   string
	otel oteltrace.Span

	once     sync.Once
	mu       sync.Mutex
	finished bool
}

func (s *Span) Name() string { return s.name }
func (s *Span) ID() string   { return s.id }

func (s *Span) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// RecordError marks the span as failed.
func (s *Span) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.otel.RecordError(err)
	s.otel.SetStatus(codes.Error, err.Error())
}

// ── ambient scope ────────────────────────────────────────────────────────────

type ctxKey struct{}

// WithContext enters tc's scope: everything run with the returned context sees tc.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the ambient trace, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(*Context)
	return tc, ok && tc != nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func toAttributes(m map[string]any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newSpanID() string {
	return newTraceID()[:16]
}
