package observability

import (
	"github.com/google/uuid"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
)

// TraceID identifies one end-to-end pipeline run in the tracing backend.
type TraceID string

// NewTraceID returns a fresh trace identifier.
func NewTraceID() TraceID {
	return TraceID(uuid.NewString())
}

// Tracer receives pipeline lifecycle events. Implementations must be safe
// for concurrent use and must never fail the caller.
type Tracer interface {
	StartTrace(name string, traceID TraceID)
	EmitEvent(traceID TraceID, event *events.Event)
	EndTrace(traceID TraceID)
}

// NoopTracer discards everything.
type NoopTracer struct{}

func (NoopTracer) StartTrace(name string, traceID TraceID) {}

func (NoopTracer) EmitEvent(traceID TraceID, event *events.Event) {}

func (NoopTracer) EndTrace(traceID TraceID) {}
