package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
)

// EventLog provides sequenced event operations on top of a LibSQLStore.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide event-sourcing operations.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// Append appends an event with a monotonically increasing per-session sequence.
// Uses an immediate write lock to ensure sequence correctness under concurrency.
func (el *EventLog) Append(ctx context.Context, event *Event) error {
	db := el.store.DB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx alone starts a deferred transaction; a write-intent
	// statement forces lock acquisition before the sequence read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM events WHERE session_id = ?`, event.SessionID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (session_id, path, event_type, payload, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionID, nullStr(event.Path), event.Type, nullRaw(event.Payload), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetEvents returns events for a session with sequence > since, ordered by sequence ASC.
func (el *EventLog) GetEvents(ctx context.Context, sessionID string, since int64) ([]*Event, error) {
	return el.store.GetEvents(ctx, sessionID, since)
}

// GetEventsByType returns events of a specific type matching the filter.
func (el *EventLog) GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error) {
	return el.store.GetEventsByType(ctx, eventType, filter)
}

// ValueChange is the payload shape of a value_changed event.
type ValueChange struct {
	Value any `json:"value"`
}

// Replay replays all events for a session and returns the latest recorded
// value per tree path, reconstructed from value_changed events.
// Returns an error if sequence gaps are detected.
func (el *EventLog) Replay(ctx context.Context, sessionID string) (map[string]any, error) {
	events, err := el.store.GetEvents(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}

	values := make(map[string]any)

	for i, e := range events {
		expected := int64(i + 1)
		if e.Sequence != expected {
			return nil, resource.NewErrorf(resource.ErrCodeStore,
				"sequence gap in session %s: expected %d, got %d", sessionID, expected, e.Sequence)
		}
	}

	for _, e := range events {
		if e.Type != streaming.EventValueChanged || e.Path == "" {
			continue
		}
		var change ValueChange
		if err := json.Unmarshal(e.Payload, &change); err != nil {
			return nil, fmt.Errorf("decode value_changed payload at sequence %d: %w", e.Sequence, err)
		}
		values[e.Path] = change.Value
	}

	return values, nil
}
