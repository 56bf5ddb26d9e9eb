package panel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/treeview"
	"github.com/weftlabs/weft/pkg/resource"
)

// handleGetValues returns the current leaf values keyed by full path.
func (s *PanelServer) handleGetValues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.session.SessionID(),
		"values":     s.session.Values(),
	})
}

// handleGetRegions returns the display regions from the last run pass.
func (s *PanelServer) handleGetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.session.SessionID(),
		"regions":    s.session.Regions(),
	})
}

// handleSetValue queues a submitted value for the addressed resource
// and triggers a full run pass.
func (s *PanelServer) handleSetValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "value key is required")
		return
	}

	var body struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.session.QueueInput(key, body.Value)
	if err := s.session.Run(r.Context()); err != nil {
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"key":    key,
		"values": s.session.Values(),
	})
}

// handleRun triggers a run pass without new input.
func (s *PanelServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Run(r.Context()); err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"regions": len(s.session.Regions()),
	})
}

// handleSave writes a snapshot of the live session.
func (s *PanelServer) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.session.SaveSession(r.Context(), s.session.SessionID()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("save session: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleExport packages the live session into an artifact and returns
// it as a download.
func (s *PanelServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Packager == nil {
		writeError(w, http.StatusNotImplemented, "no packager configured")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}

	data, err := s.session.Export(r.Context(), s.deps.Packager, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("export: %v", err))
		return
	}

	contentType := "text/html; charset=utf-8"
	ext := "html"
	if format == "script" {
		contentType = "text/plain; charset=utf-8"
		ext = "go"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s.%s", s.session.Root().ID(), ext))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleListSessions lists persisted sessions.
func (s *PanelServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	sessions, err := s.deps.Store.ListSessions(r.Context(), store.SessionFilter{
		Widget: r.URL.Query().Get("widget"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleSessionEvents returns a session's event log entries.
func (s *PanelServer) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	sessionID := r.PathValue("id")
	events, err := s.deps.Store.GetEvents(r.Context(), sessionID, int64(queryInt(r, "since", 0)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get events: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleSessionSnapshots returns a session's saved snapshots.
func (s *PanelServer) handleSessionSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	sessionID := r.PathValue("id")
	snaps, err := s.deps.Store.ListSnapshots(r.Context(), store.SnapshotFilter{
		SessionID: sessionID,
		Limit:     queryInt(r, "limit", 20),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list snapshots: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleDeleteSession deletes a persisted session and its history.
func (s *PanelServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == s.session.SessionID() {
		writeError(w, http.StatusConflict, "cannot delete the live session")
		return
	}
	if err := s.deps.Store.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("delete session: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": sessionID})
}

// handleSetAutosave registers or replaces the live session's autosave
// schedule.
func (s *PanelServer) handleSetAutosave(w http.ResponseWriter, r *http.Request) {
	if s.deps.Autosaver == nil {
		writeError(w, http.StatusNotImplemented, "no autosaver configured")
		return
	}

	var body struct {
		CronExpression string `json:"cron_expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if body.CronExpression == "" {
		s.deps.Autosaver.Unregister(s.session.SessionID())
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "autosave": "off"})
		return
	}

	if err := s.deps.Autosaver.Register(s.session.SessionID(), body.CronExpression); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("register autosave: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"autosave": body.CronExpression,
	})
}

// handleTree renders the widget structure as text, ascii by default
// or mermaid for embedding.
func (s *PanelServer) handleTree(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "ascii"
	}

	model, err := treeview.Build(s.session.Root())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("tree: %v", err))
		return
	}

	var text string
	switch format {
	case "ascii":
		text = treeview.RenderASCII(model)
	case "mermaid":
		text = treeview.RenderMermaid(model)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tree format %q", format))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}

// writeRunError maps a failed run pass onto an HTTP status by error
// code: concurrent runs are a conflict, everything else a 422.
func writeRunError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	if resource.CodeOf(err) == resource.ErrCodeExecution {
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}
