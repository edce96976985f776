// Package diagram renders node graphs as Mermaid flowcharts, ASCII level
// layouts and Graphviz images, optionally overlaid with compile or diff status.
package diagram

// NodeKind classifies a diagram node by the role of its behaviour.
type NodeKind string

const (
	NodeKindEvent   NodeKind = "event"
	NodeKindFlow    NodeKind = "flow"
	NodeKindCall    NodeKind = "call"
	NodeKindPure    NodeKind = "pure"
	NodeKindState   NodeKind = "state"
	NodeKindReroute NodeKind = "reroute"
	NodeKindComment NodeKind = "comment"
)

// Status is an overlay applied by ApplyCompile or ApplyDiff.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusPruned    Status = "pruned"
	StatusError     Status = "error"
	StatusWarning   Status = "warning"
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
	StatusChanged   Status = "changed"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
	Groups []*Group
}

// Node is one graph node. ID is the node GUID in string form.
type Node struct {
	ID     string
	Label  string
	Kind   NodeKind
	Status Status
	Notes  []string
}

// Group collects the nodes of a nested graph.
type Group struct {
	Label   string
	NodeIDs []string
}

// Edge runs from the node owning an output pin to the node owning the
// linked input pin.
type Edge struct {
	From  string
	To    string
	Label string
	Exec  bool
}

func (m *DiagramModel) node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
