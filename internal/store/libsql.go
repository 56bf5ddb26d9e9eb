package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/weftlabs/weft/pkg/resource"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. event log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Sessions ---

func (s *LibSQLStore) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return resource.NewError(resource.ErrCodeStore, "session id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, widget, name, created_at, updated_at, last_run_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Widget, sess.Name,
		timeOrNow(sess.CreatedAt), timeOrNow(sess.UpdatedAt), nullTime(sess.LastRunAt),
	)
	return err
}

func (s *LibSQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	sess := &Session{}
	var lastRun sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, widget, name, created_at, updated_at, last_run_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Widget, &sess.Name, &sess.CreatedAt, &sess.UpdatedAt, &lastRun)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("session", id)
	}
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		sess.LastRunAt = &lastRun.Time
	}
	return sess, nil
}

func (s *LibSQLStore) UpdateSession(ctx context.Context, id string, update SessionUpdate) error {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.LastRunAt != nil {
		sets = append(sets, "last_run_at = ?")
		args = append(args, *update.LastRunAt)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "session", id)
}

func (s *LibSQLStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*Session, error) {
	var where []string
	var args []any

	if filter.Widget != "" {
		where = append(where, "widget = ?")
		args = append(args, filter.Widget)
	}
	if filter.Since != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, widget, name, created_at, updated_at, last_run_at FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var lastRun sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Widget, &sess.Name, &sess.CreatedAt, &sess.UpdatedAt, &lastRun); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			sess.LastRunAt = &lastRun.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *LibSQLStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "session", id)
}

// --- Snapshots ---

func (s *LibSQLStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.SessionID == "" {
		return resource.NewError(resource.ErrCodeStore, "snapshot has no session id")
	}
	values := snap.Values
	if len(values) == 0 {
		values = json.RawMessage("{}")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, source, values_json, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.SessionID, snap.Source, string(values), snap.Checksum, timeOrNow(snap.CreatedAt),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

func (s *LibSQLStore) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	snap := &Snapshot{}
	var values string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source, values_json, checksum, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.SessionID, &snap.Source, &values, &snap.Checksum, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("snapshot", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, err
	}
	snap.Values = json.RawMessage(values)
	return snap, nil
}

func (s *LibSQLStore) LatestSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap := &Snapshot{}
	var values string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source, values_json, checksum, created_at
		 FROM snapshots WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&snap.ID, &snap.SessionID, &snap.Source, &values, &snap.Checksum, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("snapshot for session", sessionID)
	}
	if err != nil {
		return nil, err
	}
	snap.Values = json.RawMessage(values)
	return snap, nil
}

func (s *LibSQLStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error) {
	var where []string
	var args []any

	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}

	query := `SELECT id, session_id, source, values_json, checksum, created_at FROM snapshots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var values string
		if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.Source, &values, &snap.Checksum, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.Values = json.RawMessage(values)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// --- Events ---

// AppendEvent inserts an event row with a caller-assigned sequence.
// Use EventLog.Append for the sequenced, transactional path.
func (s *LibSQLStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, path, event_type, payload, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionID, nullStr(event.Path), event.Type, nullRaw(event.Payload),
		event.Timestamp, event.Sequence,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

func (s *LibSQLStore) GetEvents(ctx context.Context, sessionID string, since int64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, path, event_type, payload, timestamp, sequence
		 FROM events WHERE session_id = ? AND sequence > ? ORDER BY sequence ASC`,
		sessionID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *LibSQLStore) GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error) {
	where := []string{"event_type = ?"}
	args := []any{eventType}

	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Path != "" {
		where = append(where, "path = ?")
		args = append(args, filter.Path)
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, session_id, path, event_type, payload, timestamp, sequence FROM events WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY timestamp ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e := &Event{}
		var path, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &path, &e.Type, &payload, &e.Timestamp, &e.Sequence); err != nil {
			return nil, err
		}
		e.Path = path.String
		e.Payload = rawOrNil(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Exports ---

func (s *LibSQLStore) RecordExport(ctx context.Context, exp *Export) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (session_id, format, checksum, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		exp.SessionID, exp.Format, exp.Checksum, exp.SizeBytes, timeOrNow(exp.CreatedAt),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		exp.ID = id
	}
	return nil
}

func (s *LibSQLStore) ListExports(ctx context.Context, sessionID string) ([]*Export, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, format, checksum, size_bytes, created_at
		 FROM exports WHERE session_id = ? ORDER BY created_at DESC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e := &Export{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Format, &e.Checksum, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// --- Helpers ---

func storeNotFound(what, id string) *resource.Error {
	return resource.NewErrorf(resource.ErrCodeStore, "%s %q not found", what, id)
}

func checkRowsAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(what, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
