package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diagram"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/internal/nodes"
	"github.com/rendis/edgraph/internal/store"
)

// Version is reported to MCP clients during initialization.
var Version = "dev"

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	// Store is optional. Without it the revision tools report an error.
	Store    store.Store
	Registry *nodes.Registry
	Engines  *expressions.Engines
	Options  compiler.Options
	// DiffFlags is used when a diff call names no flags. Zero means all.
	DiffFlags diff.Flags
	Logger    *slog.Logger
}

// Server wraps an MCP server with graph tool handlers.
type Server struct {
	store     store.Store
	registry  *nodes.Registry
	engines   *expressions.Engines
	options   compiler.Options
	diffFlags diff.Flags
	logger    *slog.Logger
	sessions  *SessionRegistry
	notifier  RevisionNotifier
	mcpServer *server.MCPServer
}

// NewServer creates a Server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	engines := deps.Engines
	if engines == nil {
		engines = expressions.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = nodes.DefaultRegistry()
	}
	flags := deps.DiffFlags
	if flags == 0 {
		flags = diff.FlagAll
	}

	s := &Server{
		store:     deps.Store,
		registry:  registry,
		engines:   engines,
		options:   deps.Options,
		diffFlags: flags,
		logger:    logger,
		sessions:  NewSessionRegistry(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		s.sessions.Remove(session.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"edgraph",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("edgraph compiles and compares node graphs. Documents are JSON or YAML text. "+
			"Use edgraph.compile to validate and schedule a graph, edgraph.diff to compare two versions, "+
			"edgraph.save and edgraph.history to keep revisions, edgraph.query to run jq over a document, "+
			"edgraph.pins to export a node's pins and edgraph.render to draw it."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: compileTool(), Handler: s.handleCompile},
		{Tool: diffTool(), Handler: s.handleDiff},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: historyTool(), Handler: s.handleHistory},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: pinsTool(), Handler: s.handlePins},
		{Tool: renderTool(), Handler: s.handleRender},
	}
}

// --- Tool definitions ---

func compileTool() mcp.Tool {
	return mcp.NewTool("edgraph.compile",
		mcp.WithDescription("Validate, prune and schedule a graph document"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Graph document as JSON or YAML text")),
		mcp.WithBoolean("save_intermediate_products", mcp.Description("Keep comment nodes through pruning")),
	)
}

func diffTool() mcp.Tool {
	return mcp.NewTool("edgraph.diff",
		mcp.WithDescription("Compare two versions of a graph"),
		mcp.WithString("lhs", mcp.Description("Old graph document (JSON or YAML text)")),
		mcp.WithString("rhs", mcp.Description("New graph document (JSON or YAML text)")),
		mcp.WithString("graph_id", mcp.Description("Compare stored revisions of this graph instead of documents")),
		mcp.WithNumber("from", mcp.Description("Old revision number (default: the one before to)")),
		mcp.WithNumber("to", mcp.Description("New revision number (default: latest)")),
		mcp.WithString("flags", mcp.Description("Comma separated categories: existence, movement, comment, pins, node or all")),
		mcp.WithString("mode", mcp.Enum("additive", "subtractive"), mcp.Description("Wording for missing nodes")),
		mcp.WithString("filter", mcp.Description("CEL condition over `record` selecting which records to return")),
		mcp.WithBoolean("boolean_only", mcp.Description("Only report whether any difference exists")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("edgraph.save",
		mcp.WithDescription("Store a graph document as a new revision"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Graph document as JSON or YAML text")),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("edgraph.history",
		mcp.WithDescription("List stored revisions of a graph, newest first"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph ID (or name for documents without an id)")),
		mcp.WithNumber("limit", mcp.Description("Maximum revisions to return (default: 20)")),
		mcp.WithBoolean("include_documents", mcp.Description("Include each revision's document")),
		mcp.WithBoolean("watch", mcp.Description("Notify this session when a new revision of the graph is saved")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("edgraph.query",
		mcp.WithDescription("Run a jq query over a graph document"),
		mcp.WithString("jq", mcp.Required(), mcp.Description("jq program; the document is its input")),
		mcp.WithString("document", mcp.Description("Graph document as JSON or YAML text")),
		mcp.WithString("graph_id", mcp.Description("Query a stored revision instead of a document")),
		mcp.WithNumber("revision", mcp.Description("Revision number (default: latest)")),
	)
}

func pinsTool() mcp.Tool {
	return mcp.NewTool("edgraph.pins",
		mcp.WithDescription("Export the pins of one node in pin text format"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Graph document as JSON or YAML text")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node name or ID")),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("edgraph.render",
		mcp.WithDescription("Draw a graph document as a diagram"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Graph document as JSON or YAML text")),
		mcp.WithString("format", mcp.Enum(diagram.Formats...), mcp.Description("Output format: mermaid or ascii text, svg or dot source, png as base64 (default: mermaid)")),
		mcp.WithString("overlay", mcp.Enum("none", "compile", "diff"),
			mcp.Description("Color nodes by compile result, or by differences from base (default: compile)")),
		mcp.WithString("base", mcp.Description("Older document compared against when overlay is diff")),
	)
}
