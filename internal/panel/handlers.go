package panel

import (
	"net/http"

	"github.com/weftlabs/weft/internal/store"
)

// handleWidget serves the live widget page.
func (s *PanelServer) handleWidget(w http.ResponseWriter, r *http.Request) {
	root := s.session.Root()
	s.renderPage(w, "widget.html", map[string]any{
		"Title":     root.Name,
		"Active":    "widget",
		"Widget":    root.ID(),
		"Name":      root.Name,
		"SessionID": root.SessionID,
		"Regions":   s.session.Regions(),
		"Values":    s.session.Values(),
	})
}

// handleSessions serves the persisted sessions page.
func (s *PanelServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []*store.Session
	if s.deps.Store != nil {
		var err error
		sessions, err = s.deps.Store.ListSessions(r.Context(), store.SessionFilter{
			Limit:  queryInt(r, "limit", 50),
			Offset: queryInt(r, "offset", 0),
		})
		if err != nil {
			s.deps.Logger.Error("list sessions failed", "error", err)
		}
	}
	s.renderPage(w, "sessions.html", map[string]any{
		"Title":    "Sessions",
		"Active":   "sessions",
		"LiveID":   s.session.SessionID(),
		"Sessions": sessions,
	})
}

// handleEvents serves the event log page for the live session.
func (s *PanelServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []*store.Event
	if s.deps.Store != nil {
		var err error
		events, err = s.deps.Store.GetEvents(r.Context(), s.session.SessionID(), 0)
		if err != nil {
			s.deps.Logger.Error("get events failed", "error", err)
		}
	}
	s.renderPage(w, "events.html", map[string]any{
		"Title":     "Events",
		"Active":    "events",
		"SessionID": s.session.SessionID(),
		"Events":    events,
	})
}
