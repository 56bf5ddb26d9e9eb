package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/weftlabs/weft/internal/panel"
	"github.com/weftlabs/weft/internal/treeview"
	"github.com/weftlabs/weft/pkg/resource"
)

// handleValues reads the current values of a widget session.
func (s *WidgetServer) handleValues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, errResult := s.resolveSession(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	root := session.Root()
	flat, err := root.FlatValues()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("value read failed: %v", err)), nil
	}

	return marshalResult(map[string]any{
		"session_id": session.SessionID(),
		"widget":     root.ID(),
		"values":     flat,
		"tree":       root.AllValues(),
		"paths":      leafPaths(root),
	})
}

// handleSet submits one input value and reruns the widget, the same
// cycle a panel form submission triggers.
func (s *WidgetServer) handleSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}
	value, ok := req.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError("value is required"), nil
	}

	session, errResult := s.resolveSession(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	session.QueueInput(path, value)
	if runErr := session.Run(ctx); runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", runErr)), nil
	}

	flat, valErr := session.Root().FlatValues()
	if valErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("value read failed: %v", valErr)), nil
	}
	return marshalResult(map[string]any{
		"ok":         true,
		"session_id": session.SessionID(),
		"path":       path,
		"values":     flat,
	})
}

// handleRun triggers one run pass over the widget session.
func (s *WidgetServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, errResult := s.resolveSession(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	if err := session.Run(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	flat, err := session.Root().FlatValues()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("value read failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"ok":         true,
		"session_id": session.SessionID(),
		"values":     flat,
		"regions":    len(session.Regions()),
	})
}

// handleExport produces an HTML or script artifact of the session.
func (s *WidgetServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "html" && format != "script" {
		return mcp.NewToolResultError("format must be html or script"), nil
	}
	if s.packager == nil {
		return mcp.NewToolResultError("no packager configured"), nil
	}

	session, errResult := s.resolveSession(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	artifact, exportErr := session.Export(ctx, s.packager, format)
	if exportErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", exportErr)), nil
	}
	return mcp.NewToolResultText(string(artifact)), nil
}

// handleTree renders the resource tree in the requested format.
func (s *WidgetServer) handleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" {
		return mcp.NewToolResultError("format must be ascii or mermaid"), nil
	}

	session, errResult := s.resolveSession(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	model, buildErr := treeview.Build(session.Root())
	if buildErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("tree build failed: %v", buildErr)), nil
	}
	switch format {
	case "ascii":
		return mcp.NewToolResultText(treeview.RenderASCII(model)), nil
	default:
		return mcp.NewToolResultText(treeview.RenderMermaid(model)), nil
	}
}

// --- Internal helpers ---

// resolveSession finds the target session for a tool call. With no
// session_id argument, the single registered session is used. The
// calling client is mapped to the widget for change notifications.
func (s *WidgetServer) resolveSession(ctx context.Context, req mcp.CallToolRequest) (*panel.LiveSession, *mcp.CallToolResult) {
	id := req.GetString("session_id", "")
	var session *panel.LiveSession
	if id != "" {
		found, ok := s.widgets.Lookup(id)
		if !ok {
			return nil, mcp.NewToolResultError(fmt.Sprintf("unknown session: %s", id))
		}
		session = found
	} else {
		found, ok := s.widgets.Default()
		if !ok {
			return nil, mcp.NewToolResultError(fmt.Sprintf(
				"session_id is required when %d sessions are registered", len(s.widgets.IDs())))
		}
		session = found
	}
	s.captureClient(ctx, session.SessionID())
	return session, nil
}

// captureClient maps the widget session to the calling MCP client for
// notifications.
func (s *WidgetServer) captureClient(ctx context.Context, widgetID string) {
	if client := server.ClientSessionFromContext(ctx); client != nil {
		s.clients.Register(widgetID, client.SessionID())
	}
}

// leafPaths lists the full slash path of every leaf, the keys weft.set
// accepts.
func leafPaths(root *resource.Root) []string {
	var paths []string
	_ = resource.Walk(root, func(path []string, r resource.Resource) error {
		if _, ok := r.(*resource.Node); !ok {
			return nil
		}
		paths = append(paths, root.ID()+"/"+resource.Key(path))
		return nil
	})
	return paths
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
