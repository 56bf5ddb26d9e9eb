package e2e

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/artifact"
	"github.com/weftlabs/weft/internal/panel"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/source"
	"github.com/weftlabs/weft/internal/streaming"
	weftmcp "github.com/weftlabs/weft/pkg/mcp"
)

// mcpEnv wires a live session into a WidgetServer the way `weft mcp`
// does, without the stdio transport.
type mcpEnv struct {
	session *panel.LiveSession
	server  *weftmcp.WidgetServer
}

func newMCPEnv(t *testing.T) *mcpEnv {
	t.Helper()

	reg := render.NewRegistry()
	require.NoError(t, render.RegisterBuiltins(reg))
	hub := streaming.NewMemoryHub()
	session := panel.NewLiveSession(surveyRoot(t), reg, nil, nil, hub, nil)
	require.NoError(t, session.Run(context.Background()))

	p, err := artifact.NewPackager()
	require.NoError(t, err)
	widgets := weftmcp.NewWidgetRegistry()
	widgets.Register(session)
	srv := weftmcp.NewWidgetServer(weftmcp.WidgetServerDeps{
		Widgets:  widgets,
		Hub:      hub,
		Packager: p,
	})
	return &mcpEnv{session: session, server: srv}
}

// callTool invokes a tool through the MCP server's HandleMessage
// (full JSON-RPC round-trip, including an initialize handshake).
func (e *mcpEnv) callTool(t *testing.T, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	mcpSrv := e.server.MCPServer()

	initMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      0,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "e2e-test",
				"version": "1.0.0",
			},
		},
	}
	rawInit, err := json.Marshal(initMsg)
	require.NoError(t, err)
	require.NotNil(t, mcpSrv.HandleMessage(ctx, rawInit))

	reqMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	}
	rawReq, err := json.Marshal(reqMsg)
	require.NoError(t, err)

	resp := mcpSrv.HandleMessage(ctx, rawReq)
	require.NotNil(t, resp)

	respBytes, err := json.Marshal(resp)
	require.NoError(t, err)

	var rpcResp struct {
		Result *mcp.CallToolResult `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpcResp))
	if rpcResp.Error != nil {
		t.Fatalf("JSON-RPC error: code=%d, msg=%s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	require.NotNil(t, rpcResp.Result)
	return rpcResp.Result
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func toolJSON(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), target))
}

// --- Tests ---

func TestMCPE2E_ValuesThenSet(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.values", map[string]any{})
	require.False(t, result.IsError)

	var out struct {
		SessionID string         `json:"session_id"`
		Widget    string         `json:"widget"`
		Values    map[string]any `json:"values"`
		Paths     []string       `json:"paths"`
	}
	toolJSON(t, result, &out)
	assert.Equal(t, env.session.SessionID(), out.SessionID)
	assert.Equal(t, "survey", out.Widget)
	assert.Equal(t, float64(30), out.Values["age"])
	assert.Contains(t, out.Paths, "survey/address/city")

	result = env.callTool(t, "weft.set", map[string]any{
		"path":  "survey/age",
		"value": 61,
	})
	require.False(t, result.IsError)

	var setOut struct {
		OK     bool           `json:"ok"`
		Values map[string]any `json:"values"`
	}
	toolJSON(t, result, &setOut)
	assert.True(t, setOut.OK)
	assert.Equal(t, float64(61), setOut.Values["age"])
}

func TestMCPE2E_RunReportsRegions(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.run", map[string]any{})
	require.False(t, result.IsError)

	var out struct {
		OK      bool    `json:"ok"`
		Regions float64 `json:"regions"`
	}
	toolJSON(t, result, &out)
	assert.True(t, out.OK)
	assert.Equal(t, float64(2), out.Regions)
}

func TestMCPE2E_ExportScriptRoundTrips(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.export", map[string]any{"format": "script"})
	require.False(t, result.IsError)

	text := toolText(t, result)
	loaded, err := source.Load([]byte(text), "Survey")
	require.NoError(t, err)
	assert.Equal(t, env.session.Root().AllValues(), loaded.AllValues())
}

func TestMCPE2E_ExportHTMLEmbedsSource(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.export", map[string]any{"format": "html"})
	require.False(t, result.IsError)

	text := toolText(t, result)
	assert.True(t, strings.HasPrefix(text, "<!DOCTYPE html>"))
	assert.Contains(t, text, "Survey")
}

func TestMCPE2E_Tree(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.tree", map[string]any{"format": "ascii"})
	require.False(t, result.IsError)
	text := toolText(t, result)
	assert.Contains(t, text, "survey")
	assert.Contains(t, text, "city")

	result = env.callTool(t, "weft.tree", map[string]any{"format": "mermaid"})
	require.False(t, result.IsError)
	assert.Contains(t, toolText(t, result), "graph TD")
}

func TestMCPE2E_UnknownSessionIsToolError(t *testing.T) {
	env := newMCPEnv(t)

	result := env.callTool(t, "weft.values", map[string]any{"session_id": "ghost"})
	assert.True(t, result.IsError)
}
