package mcp

import (
	"sync"

	"github.com/weftlabs/weft/internal/panel"
)

// WidgetRegistry holds the live widget sessions the MCP tools operate
// on. When exactly one session is registered, tool calls may omit
// session_id.
type WidgetRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*panel.LiveSession
}

// NewWidgetRegistry creates a new empty WidgetRegistry.
func NewWidgetRegistry() *WidgetRegistry {
	return &WidgetRegistry{sessions: make(map[string]*panel.LiveSession)}
}

// Register adds a live session, keyed by its session id. Registering
// the same id again replaces the entry.
func (r *WidgetRegistry) Register(s *panel.LiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID()] = s
}

// Lookup returns the session with the given id, if registered.
func (r *WidgetRegistry) Lookup(id string) (*panel.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Default returns the single registered session. It reports false when
// zero or more than one session is registered.
func (r *WidgetRegistry) Default() (*panel.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.sessions) != 1 {
		return nil, false
	}
	for _, s := range r.sessions {
		return s, true
	}
	return nil, false
}

// IDs returns the registered session ids.
func (r *WidgetRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ClientRegistry maps widget session ids to MCP client session ids.
// Populated automatically when clients call any tool against a widget,
// so change notifications can be pushed back to the right client.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]string // widget session id → MCP client session id
}

// NewClientRegistry creates a new empty ClientRegistry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]string)}
}

// Register associates a widget session with an MCP client session.
// A widget already mapped to a client is overwritten (reconnect).
func (r *ClientRegistry) Register(widgetID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[widgetID] = clientID
}

// ClientFor returns the MCP client session for the given widget, if
// one is connected.
func (r *ClientRegistry) ClientFor(widgetID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.clients[widgetID]
	return cid, ok
}

// Remove deletes all widget mappings for the given MCP client session.
// Called when a client disconnects.
func (r *ClientRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for wid, cid := range r.clients {
		if cid == clientID {
			delete(r.clients, wid)
		}
	}
}
