package store

import (
	"encoding/json"
	"time"
)

// Session is the persisted identity of one live widget tree.
type Session struct {
	ID        string     `json:"id"`
	Widget    string     `json:"widget"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// Snapshot is one saved projection of a session: the generated source
// text plus the value mapping it reconstructs, checksummed for
// integrity.
type Snapshot struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Source    string          `json:"source"`
	Values    json.RawMessage `json:"values"`
	Checksum  string          `json:"checksum"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event is an immutable entry in the session event log.
type Event struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Path      string          `json:"path,omitempty"`
	Type      string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
}

// Export records one packaged artifact produced from a session.
type Export struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Format    string    `json:"format"`
	Checksum  string    `json:"checksum"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Filter and update types ---

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Widget string     `json:"widget,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// SessionUpdate specifies mutable fields of a session.
type SessionUpdate struct {
	Name      *string    `json:"name,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// EventFilter specifies criteria for listing events.
type EventFilter struct {
	SessionID string     `json:"session_id,omitempty"`
	Path      string     `json:"path,omitempty"`
	EventType string     `json:"event_type,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}
