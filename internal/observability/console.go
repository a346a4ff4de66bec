package observability

import (
	"github.com/sirupsen/logrus"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
)

// ConsoleTracer writes trace events through the injected logger.
type ConsoleTracer struct {
	logger utils.ExtendedLogger
}

// NewConsoleTracer creates a tracer that logs every event.
func NewConsoleTracer(logger utils.ExtendedLogger) *ConsoleTracer {
	return &ConsoleTracer{logger: logger}
}

func (t *ConsoleTracer) StartTrace(name string, traceID TraceID) {
	t.logger.WithFields(logrus.Fields{
		"trace_id": string(traceID),
		"trace":    name,
	}).Info("trace started")
}

func (t *ConsoleTracer) EmitEvent(traceID TraceID, event *events.Event) {
	if event == nil {
		return
	}
	t.logger.WithFields(logrus.Fields{
		"trace_id":   string(traceID),
		"event":      string(event.Type),
		"component":  event.Component,
		"step":       event.Step,
		"session_id": event.SessionID,
		"data":       event.Data,
	}).Debug("trace event")
}

func (t *ConsoleTracer) EndTrace(traceID TraceID) {
	t.logger.WithField("trace_id", string(traceID)).Info("trace ended")
}
