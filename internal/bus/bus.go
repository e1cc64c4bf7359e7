// Package bus provides event bus implementations for evaluation lifecycle
// events.
package bus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, matching the topic it is published to.
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// CorrelationID links the events of one evaluation request.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Evaluation lifecycle topics.
const (
	TopicEvalRequested = "eval.requested"
	TopicEvalCompleted = "eval.completed"
	TopicEvalFailed    = "eval.failed"
)

// EvalRequestedPayload announces an accepted evaluation request.
type EvalRequestedPayload struct {
	RequestID  string   `json:"request_id"`
	Explainers []string `json:"explainers"`
	TokenCount int      `json:"token_count"`
}

// EvalCompletedPayload reports a finished evaluation.
type EvalCompletedPayload struct {
	RequestID string  `json:"request_id"`
	Columns   int     `json:"columns"`
	LatencyMS float64 `json:"latency_ms"`
}

// EvalFailedPayload reports an evaluation that returned an error.
type EvalFailedPayload struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType, source, correlationID string, payload any) Event {
	return Event{
		ID:            newEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UnixMilli(),
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

func newEventID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
