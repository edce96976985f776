// Package compiler validates node graphs and turns them into a linear
// execution schedule.
package compiler

import (
	"log/slog"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Options tune a compilation pass.
type Options struct {
	// SaveIntermediateProducts keeps nodes that only matter to people reading
	// the graph (comments) through pruning.
	SaveIntermediateProducts bool
	// MaxTraversalDepth bounds reachability walks. Zero means unbounded.
	MaxTraversalDepth int
}

// NodeValidator is implemented by behaviours with semantic checks of their own.
type NodeValidator interface {
	ValidateNodeDuringCompilation(n *edgraph.Node, log *MessageLog)
}

// Deprecated is implemented by behaviours of retired node kinds.
type Deprecated interface {
	IsDeprecated() bool
	ShouldWarnOnDeprecation() bool
	DeprecationMessage() string
}

// ForceKeeper protects a node from pruning even when it is unreachable.
type ForceKeeper interface {
	ShouldForceKeep() bool
}

// IntermediateProduct marks nodes kept only when intermediate products are saved.
type IntermediateProduct interface {
	IsIntermediateProduct() bool
}

// Root marks nodes that start reachability during pruning.
type Root interface {
	IsRoot() bool
}

// Context carries the message sink and options of one compilation pass.
// It is not safe for concurrent use.
type Context struct {
	Log     *MessageLog
	Logger  *slog.Logger
	Options Options
}

// NewContext returns a context writing to log. Nil arguments get defaults.
func NewContext(log *MessageLog, logger *slog.Logger, opts Options) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if log == nil {
		log = NewMessageLog(logger)
	}
	return &Context{Log: log, Logger: logger, Options: opts}
}

// ShouldForceKeepNode reports whether pruning must leave n in place.
func (c *Context) ShouldForceKeepNode(n *edgraph.Node) bool {
	if fk, ok := n.Behavior.(ForceKeeper); ok && fk.ShouldForceKeep() {
		return true
	}
	if ip, ok := n.Behavior.(IntermediateProduct); ok && ip.IsIntermediateProduct() {
		return c.Options.SaveIntermediateProducts
	}
	return false
}

// FindRoots returns the nodes whose behaviour reports IsRoot, in node order.
func FindRoots(g *edgraph.Graph) []*edgraph.Node {
	var roots []*edgraph.Node
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		if r, ok := n.Behavior.(Root); ok && r.IsRoot() {
			roots = append(roots, n)
		}
	}
	return roots
}
