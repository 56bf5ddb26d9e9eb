package streaming

import "context"

// Event types emitted over the hub during a session's lifetime.
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
	EventValueChanged = "value_changed"
	EventExportMade   = "export_created"
	EventSessionSaved = "session_saved"
)

// StreamEvent is a real-time event emitted by a live widget session.
type StreamEvent struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path,omitempty"`
	EventType string `json:"event_type"`
	Payload   any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	SessionID  string   `json:"session_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time session events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
