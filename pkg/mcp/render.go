package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diagram"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/logging"
	"github.com/rendis/edgraph/pkg/document"
)

// handleRender draws a document, overlaid with its compile result or with its
// differences from a base document.
func (s *Server) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := documentArg(req, "document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := document.Build(doc, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build graph: %v", err)), nil
	}

	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(doc)), "render")
	logger := logging.LogWith(ctx, s.logger)
	model := diagram.Build(g)

	switch overlay := req.GetString("overlay", "compile"); overlay {
	case "none":
	case "compile":
		log := compiler.NewMessageLog(logger)
		res := compiler.NewContext(log, logger, s.options).Compile(g.Clone(), nil)
		diagram.ApplyCompile(model, res, log)
	case "diff":
		baseDoc, err := documentArg(req, "base")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		base, err := document.Build(baseDoc, s.registry)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("build base: %v", err)), nil
		}
		results := diff.NewResults()
		diff.NewControl(s.diffFlags, diff.Additive, logger).DiffGraphs(base, g, results)
		diagram.ApplyDiff(model, results.Records())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown overlay %q", overlay)), nil
	}

	format := req.GetString("format", "mermaid")
	out, err := diagram.Render(ctx, model, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if format == "png" {
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
