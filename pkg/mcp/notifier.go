package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// ChangeNotifier pushes widget change notifications to connected
// clients.
type ChangeNotifier interface {
	Notify(ctx context.Context, widgetID string, payload map[string]any) error
}

// MCPNotifier implements ChangeNotifier using MCP push notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	clients   *ClientRegistry
}

// NewMCPNotifier creates a notifier that pushes via the MCP transport.
func NewMCPNotifier(mcpServer *server.MCPServer, clients *ClientRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, clients: clients}
}

// Notify sends a notification to the client watching the widget.
// Best-effort: returns nil if no client is connected.
func (n *MCPNotifier) Notify(_ context.Context, widgetID string, payload map[string]any) error {
	clientID, ok := n.clients.ClientFor(widgetID)
	if !ok {
		return nil // no client watching, best-effort
	}
	err := n.mcpServer.SendNotificationToSpecificClient(clientID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Client went away between lookup and send; not an error.
		n.clients.Remove(clientID)
		return nil
	}
	return err
}
