package mcp

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/edgraph/internal/store"
)

// RevisionMethod is the notification method sent for saved revisions.
const RevisionMethod = "notifications/edgraph/revision"

// RevisionNotifier tells interested clients about a saved revision.
type RevisionNotifier interface {
	NotifyRevision(ctx context.Context, rev *store.Revision) error
}

// MCPNotifier implements RevisionNotifier with MCP server notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes to watching sessions.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// NotifyRevision sends rev's metadata to every session watching its graph.
// Best-effort: sessions that have gone away are dropped silently.
func (n *MCPNotifier) NotifyRevision(_ context.Context, rev *store.Revision) error {
	payload := map[string]any{
		"graph_id":   rev.GraphID,
		"graph_name": rev.GraphName,
		"number":     rev.Number,
		"hash":       rev.Hash,
	}
	var result *multierror.Error
	for _, sid := range n.sessions.Watchers(rev.GraphID) {
		err := n.mcpServer.SendNotificationToSpecificClient(sid, RevisionMethod, payload)
		if errors.Is(err, server.ErrSessionNotFound) {
			n.sessions.Remove(sid)
			continue
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
