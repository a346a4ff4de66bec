package events

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Event is a single pipeline lifecycle event with typed payload data.
type Event struct {
	Type          EventType              `json:"type"`
	Timestamp     time.Time              `json:"timestamp"`
	TraceID       string                 `json:"trace_id,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"` // links start/end pairs
	SessionID     string                 `json:"session_id,omitempty"`
	Component     string                 `json:"component,omitempty"`
	Step          string                 `json:"step,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, component string) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Component: component,
		Data:      make(map[string]interface{}),
	}
}

// WithSession attaches a session ID.
func (e *Event) WithSession(sessionID string) *Event {
	e.SessionID = sessionID
	return e
}

// WithStep attaches the pipeline step name.
func (e *Event) WithStep(step string) *Event {
	e.Step = step
	return e
}

// WithCorrelation links this event to its start/end counterpart.
func (e *Event) WithCorrelation(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithData sets a payload field.
func (e *Event) WithData(key string, value interface{}) *Event {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// GenerateCorrelationID returns a random ID used to link start/end event
// pairs. Falls back to a timestamp-derived ID if the random source fails.
func GenerateCorrelationID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("corr-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
