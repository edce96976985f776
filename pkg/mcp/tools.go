package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/logging"
	"github.com/rendis/edgraph/internal/store"
	"github.com/rendis/edgraph/pkg/document"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// nodeView identifies a node in tool results.
type nodeView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Class string    `json:"class"`
	Title string    `json:"title"`
}

func viewNode(n *edgraph.Node) nodeView {
	return nodeView{ID: n.ID, Name: n.Name, Class: n.Class(), Title: n.Title()}
}

func nodeNames(ns []*edgraph.Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}

// handleCompile validates, prunes and schedules a document.
func (s *Server) handleCompile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := documentArg(req, "document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := document.Build(doc, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build graph: %v", err)), nil
	}

	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(doc)), "compile")
	logger := logging.LogWith(ctx, s.logger)
	opts := s.options
	opts.SaveIntermediateProducts = req.GetBool("save_intermediate_products", opts.SaveIntermediateProducts)

	log := compiler.NewMessageLog(logger)
	res := compiler.NewContext(log, logger, opts).Compile(g, nil)

	schedule := make([]nodeView, len(res.Schedule))
	for i, n := range res.Schedule {
		schedule[i] = viewNode(n)
	}
	levels := make([][]string, len(res.Levels))
	for i, lvl := range res.Levels {
		levels[i] = nodeNames(lvl)
	}
	return marshalResult(map[string]any{
		"success":  res.Success,
		"schedule": schedule,
		"levels":   levels,
		"pruned":   nodeNames(res.Pruned),
		"errors":   log.NumErrors(),
		"warnings": log.NumWarnings(),
		"messages": log.Messages(),
	})
}

// handleDiff compares two documents or two stored revisions.
func (s *Server) handleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flags := s.diffFlags
	if f := req.GetString("flags", ""); f != "" {
		parsed, err := diff.ParseFlags(f)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		flags = parsed
	}
	mode := diff.Additive
	switch m := req.GetString("mode", "additive"); m {
	case "additive":
	case "subtractive":
		mode = diff.Subtractive
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", m)), nil
	}

	var filter *diff.RecordFilter
	if expr := req.GetString("filter", ""); expr != "" {
		f, err := diff.NewRecordFilter(s.engines.CEL, expr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
		}
		filter = f
	}

	lhsDoc, rhsDoc, err := s.diffSides(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lhs, err := document.Build(lhsDoc, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build lhs: %v", err)), nil
	}
	rhs, err := document.Build(rhsDoc, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build rhs: %v", err)), nil
	}

	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(rhsDoc)), "diff")
	control := diff.NewControl(flags, mode, logging.LogWith(ctx, s.logger))

	if req.GetBool("boolean_only", false) && filter == nil {
		found := control.DiffGraphs(lhs, rhs, diff.NewBooleanResults())
		return marshalResult(map[string]any{"has_diffs": found})
	}

	results := diff.NewResults()
	control.DiffGraphs(lhs, rhs, results)

	matched := results.Records()
	if filter != nil {
		var err error
		if matched, err = filter.Apply(ctx, matched); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	records := make([]diff.RecordView, len(matched))
	summary := make(map[diff.Kind]int)
	for i, rec := range matched {
		records[i] = rec.View()
		summary[rec.Kind]++
	}
	if req.GetBool("boolean_only", false) {
		return marshalResult(map[string]any{"has_diffs": len(records) > 0})
	}
	return marshalResult(map[string]any{
		"flags":   flags.String(),
		"records": records,
		"summary": summary,
	})
}

// diffSides resolves lhs/rhs from documents or from stored revisions.
func (s *Server) diffSides(ctx context.Context, req mcp.CallToolRequest) (*document.Document, *document.Document, error) {
	graphID := req.GetString("graph_id", "")
	if graphID == "" {
		lhs, err := documentArg(req, "lhs")
		if err != nil {
			return nil, nil, err
		}
		rhs, err := documentArg(req, "rhs")
		if err != nil {
			return nil, nil, err
		}
		return lhs, rhs, nil
	}

	if s.store == nil {
		return nil, nil, errNoStore
	}
	var to *store.Revision
	var err error
	if n := req.GetInt("to", 0); n > 0 {
		to, err = s.store.GetRevision(ctx, graphID, n)
	} else {
		to, err = s.store.LatestRevision(ctx, graphID)
	}
	if err != nil {
		return nil, nil, err
	}
	fromNum := req.GetInt("from", to.Number-1)
	if fromNum < 1 {
		return nil, nil, fmt.Errorf("graph %s has no revision before %d", graphID, to.Number)
	}
	from, err := s.store.GetRevision(ctx, graphID, fromNum)
	if err != nil {
		return nil, nil, err
	}

	lhs, err := document.Parse(from.Document, document.FormatJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("revision %d: %w", from.Number, err)
	}
	rhs, err := document.Parse(to.Document, document.FormatJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("revision %d: %w", to.Number, err)
	}
	return lhs, rhs, nil
}

// handleSave stores a document as a revision and notifies watchers.
func (s *Server) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}
	doc, err := documentArg(req, "document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := document.Build(doc, s.registry); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build graph: %v", err)), nil
	}

	canonical, err := document.Canonical(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hash, err := document.Hash(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	key := graphKey(doc)
	unchanged := false
	if latest, err := s.store.LatestRevision(ctx, key); err == nil {
		unchanged = latest.Hash == hash
	}

	rev := &store.Revision{
		GraphID:   key,
		GraphName: doc.Name,
		Hash:      hash,
		Document:  canonical,
	}
	if err := s.store.SaveRevision(ctx, rev); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save revision: %v", err)), nil
	}

	ctx = logging.WithRevision(logging.WithGraphID(ctx, key), rev.Number)
	logger := logging.LogWith(ctx, s.logger)
	if unchanged {
		logger.Info("revision unchanged")
	} else {
		logger.Info("revision saved", slog.String("hash", hash))
		if err := s.notifier.NotifyRevision(ctx, rev); err != nil {
			logger.Warn("revision notification failed", slog.String("error", err.Error()))
		}
	}

	return marshalResult(map[string]any{
		"revision":  revisionView(rev, false),
		"unchanged": unchanged,
	})
}

// handleHistory lists revisions and optionally subscribes the caller.
func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}

	revs, err := s.store.ListRevisions(ctx, store.RevisionFilter{
		GraphID: graphID,
		Limit:   req.GetInt("limit", 20),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list revisions: %v", err)), nil
	}

	withDocs := req.GetBool("include_documents", false)
	views := make([]map[string]any, len(revs))
	for i, r := range revs {
		views[i] = revisionView(r, withDocs)
	}

	watching := false
	if req.GetBool("watch", false) {
		if session := server.ClientSessionFromContext(ctx); session != nil {
			s.sessions.Watch(graphID, session.SessionID())
			watching = true
		}
	}
	return marshalResult(map[string]any{
		"graph_id":  graphID,
		"revisions": views,
		"watching":  watching,
	})
}

// handleQuery runs jq over a document or a stored revision.
func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("jq")
	if err != nil {
		return mcp.NewToolResultError("jq is required"), nil
	}

	var raw json.RawMessage
	if graphID := req.GetString("graph_id", ""); graphID != "" {
		if s.store == nil {
			return mcp.NewToolResultError(errNoStore.Error()), nil
		}
		var rev *store.Revision
		if n := req.GetInt("revision", 0); n > 0 {
			rev, err = s.store.GetRevision(ctx, graphID, n)
		} else {
			rev, err = s.store.LatestRevision(ctx, graphID)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw = rev.Document
	} else {
		doc, err := documentArg(req, "document")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if raw, err = document.Canonical(doc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decode document: %v", err)), nil
	}
	results, err := s.engines.JQ.Run(ctx, query, input)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []any{}
	}
	return marshalResult(map[string]any{"results": results})
}

// handlePins exports one node's pins as text.
func (s *Server) handlePins(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError("node is required"), nil
	}
	doc, err := documentArg(req, "document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := document.Build(doc, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build graph: %v", err)), nil
	}

	n := g.FindNodeByName(ref)
	if n == nil {
		if id, err := uuid.Parse(ref); err == nil {
			n = g.FindNode(id)
		}
	}
	if n == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no node %q in graph %s", ref, g.Name)), nil
	}
	return mcp.NewToolResultText(edgraph.ExportNodePins(n)), nil
}

// --- Internal helpers ---

var errNoStore = edgraph.NewError(edgraph.ErrCodeStore, "no revision store configured")

// documentArg reads a document argument given as JSON/YAML text or as an object.
func documentArg(req mcp.CallToolRequest, key string) (*document.Document, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%s is required", key)
	}
	var data []byte
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
		data = []byte(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		data = b
	}
	doc, err := document.Parse(data, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return doc, nil
}

// graphKey is the revision key of a document: its ID, else its name.
func graphKey(doc *document.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	return doc.Name
}

func revisionView(r *store.Revision, withDocument bool) map[string]any {
	v := map[string]any{
		"id":         r.ID,
		"graph_id":   r.GraphID,
		"graph_name": r.GraphName,
		"number":     r.Number,
		"hash":       r.Hash,
		"created_at": r.CreatedAt,
	}
	if withDocument {
		v["document"] = r.Document
	}
	return v
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
