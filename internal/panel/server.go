package panel

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/weftlabs/weft/internal/scheduler"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
)

//go:embed templates static
var content embed.FS

// PanelDeps holds the collaborators for the panel server.
type PanelDeps struct {
	Store     store.Store
	Hub       streaming.EventHub
	Packager  resource.Packager
	Autosaver *scheduler.Autosaver
	Logger    *slog.Logger
}

// PanelServer serves the live widget UI and its management pages.
type PanelServer struct {
	deps    PanelDeps
	session *LiveSession
	pages   map[string]*template.Template
}

// NewPanelServer creates a PanelServer for one live session.
func NewPanelServer(session *LiveSession, deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	funcMap := template.FuncMap{
		"json":        toJSON,
		"timeAgo":     timeAgo,
		"statusBadge": statusBadge,
		"truncate":    truncate,
	}

	// Parse the shared layout, then build per-page template sets. Each
	// page clones the shared set so that its {{define "content"}}
	// doesn't collide with others.
	base := template.Must(
		template.New("").Funcs(funcMap).ParseFS(content, "templates/base.html"),
	)

	pageFiles := []string{
		"widget.html",
		"sessions.html",
		"events.html",
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone := template.Must(base.Clone())
		pages[pf] = template.Must(clone.ParseFS(content, "templates/"+pf))
	}

	return &PanelServer{
		deps:    deps,
		session: session,
		pages:   pages,
	}
}

// Session returns the live session the panel is serving.
func (s *PanelServer) Session() *LiveSession { return s.session }

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static files.
	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleWidget)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /events", s.handleEvents)

	// SSE streams.
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /sse/sessions/{id}", s.handleSSESession)

	// Live session API.
	mux.HandleFunc("GET /api/values", s.handleGetValues)
	mux.HandleFunc("GET /api/regions", s.handleGetRegions)
	mux.HandleFunc("POST /api/values/{key...}", s.handleSetValue)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/tree", s.handleTree)

	// Store-backed API.
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("GET /api/sessions/{id}/snapshots", s.handleSessionSnapshots)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/autosave", s.handleSetAutosave)

	return mux
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
