// Package mcp exposes live widget sessions to MCP clients: agents read
// and set values, trigger run passes, export artifacts and inspect the
// tree over the standard tool-calling protocol.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
)

// WidgetServerDeps holds the dependencies for creating a WidgetServer.
type WidgetServerDeps struct {
	Widgets  *WidgetRegistry
	Store    store.Store
	Hub      streaming.EventHub
	Packager resource.Packager
	Logger   *slog.Logger
}

// WidgetServer wraps an MCP server with weft-specific tool handlers.
type WidgetServer struct {
	widgets   *WidgetRegistry
	store     store.Store
	hub       streaming.EventHub
	packager  resource.Packager
	logger    *slog.Logger
	clients   *ClientRegistry
	notifier  ChangeNotifier
	mcpServer *server.MCPServer
}

// NewWidgetServer creates a WidgetServer with all 5 tools registered.
func NewWidgetServer(deps WidgetServerDeps) *WidgetServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	widgets := deps.Widgets
	if widgets == nil {
		widgets = NewWidgetRegistry()
	}

	s := &WidgetServer{
		widgets:  widgets,
		store:    deps.Store,
		hub:      deps.Hub,
		packager: deps.Packager,
		logger:   logger,
		clients:  NewClientRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"weft",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Weft serves live widget sessions built from resource trees. Use weft.values to read current values, weft.set to submit a value and rerun the widget, weft.run to trigger a pass, weft.export to produce an HTML or script artifact, and weft.tree to inspect the structure."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.clients)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *WidgetServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *WidgetServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Widgets returns the session registry, for wiring sessions in.
func (s *WidgetServer) Widgets() *WidgetRegistry {
	return s.widgets
}

// BridgeEvents forwards hub events to the clients watching the
// emitting widget session. It blocks until ctx is cancelled; run it in
// its own goroutine next to Serve.
func (s *WidgetServer) BridgeEvents(ctx context.Context) error {
	if s.hub == nil {
		return nil
	}
	events, cancel, err := s.hub.Subscribe(ctx, streaming.EventFilter{})
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload := map[string]any{
				"event":      ev.EventType,
				"session_id": ev.SessionID,
				"path":       ev.Path,
				"payload":    ev.Payload,
			}
			if err := s.notifier.Notify(ctx, ev.SessionID, payload); err != nil {
				s.logger.Warn("notify failed", "session_id", ev.SessionID, "error", err)
			}
		}
	}
}

// tools returns the 5 registered MCP tools as ServerTool entries.
func (s *WidgetServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: valuesTool(), Handler: s.handleValues},
		{Tool: setTool(), Handler: s.handleSet},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: treeTool(), Handler: s.handleTree},
	}
}

// --- Tool definitions ---

func valuesTool() mcp.Tool {
	return mcp.NewTool("weft.values",
		mcp.WithDescription("Read the current values of a widget session"),
		mcp.WithString("session_id", mcp.Description("Widget session ID (optional when one session is registered)")),
	)
}

func setTool() mcp.Tool {
	return mcp.NewTool("weft.set",
		mcp.WithDescription("Submit a value for a widget input and rerun the widget"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Full slash path of the target leaf, as listed by weft.values (e.g. survey/age)")),
		mcp.WithObject("value", mcp.Description("Value to submit; also accepts scalars")),
		mcp.WithString("session_id", mcp.Description("Widget session ID (optional when one session is registered)")),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("weft.run",
		mcp.WithDescription("Trigger one run pass over a widget session"),
		mcp.WithString("session_id", mcp.Description("Widget session ID (optional when one session is registered)")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("weft.export",
		mcp.WithDescription("Export a widget session as a self-contained HTML page or a standalone script"),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("html", "script"),
			mcp.Description("Artifact format"),
		),
		mcp.WithString("session_id", mcp.Description("Widget session ID (optional when one session is registered)")),
	)
}

func treeTool() mcp.Tool {
	return mcp.NewTool("weft.tree",
		mcp.WithDescription("Render the widget's resource tree. Returns ASCII art or Mermaid flowchart syntax"),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid"),
			mcp.Description("Output format: ascii (text) or mermaid (flowchart syntax)"),
		),
		mcp.WithString("session_id", mcp.Description("Widget session ID (optional when one session is registered)")),
	)
}
