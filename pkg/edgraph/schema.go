package edgraph

// ConnectResponse is a schema's answer to a connection request.
type ConnectResponse int

const (
	ConnectDisallow ConnectResponse = iota
	ConnectMake
	// ConnectBreakOthersA breaks the existing links of the first pin first.
	ConnectBreakOthersA
	// ConnectBreakOthersB breaks the existing links of the second pin first.
	ConnectBreakOthersB
	ConnectBreakOthersAB
)

// ConnectionCheck pairs a response with a human readable reason.
type ConnectionCheck struct {
	Response ConnectResponse
	Message  string
}

// Schema decides which pin configurations are legal in a graph.
type Schema interface {
	Name() string
	CanCreateConnection(a, b *Pin) ConnectionCheck
	AllowsMultipleInputLinks(p *Pin) bool
}

// DefaultSchema allows exec inputs to merge several flows and any other input
// at most one link. Wildcard pins connect to any non-exec category.
type DefaultSchema struct{}

func (DefaultSchema) Name() string { return "default" }

// AllowsMultipleInputLinks is true for execution inputs only.
func (DefaultSchema) AllowsMultipleInputLinks(p *Pin) bool {
	return p.Type.IsExec()
}

func (s DefaultSchema) CanCreateConnection(a, b *Pin) ConnectionCheck {
	switch {
	case a == nil || b == nil:
		return ConnectionCheck{ConnectDisallow, "Missing pin"}
	case a.owner == nil || b.owner == nil:
		return ConnectionCheck{ConnectDisallow, "Pin is not owned by a node"}
	case a.owner == b.owner:
		return ConnectionCheck{ConnectDisallow, "Both are on the same node"}
	case a.Direction == b.Direction:
		return ConnectionCheck{ConnectDisallow, "Directions are not compatible"}
	case a.NotConnectable || b.NotConnectable:
		return ConnectionCheck{ConnectDisallow, "Pin is not connectable"}
	}
	if !s.typesCompatible(a.Type, b.Type) {
		return ConnectionCheck{ConnectDisallow, "Types " + a.Type.String() + " and " + b.Type.String() + " are not compatible"}
	}

	breakA, breakB := false, false
	input, output := a, b
	if a.Direction == Output {
		input, output = b, a
	}
	if input.HasAnyConnections() && !s.AllowsMultipleInputLinks(input) {
		if input == a {
			breakA = true
		} else {
			breakB = true
		}
	}
	// An exec output drives a single flow.
	if output.Type.IsExec() && output.HasAnyConnections() {
		if output == a {
			breakA = true
		} else {
			breakB = true
		}
	}
	switch {
	case breakA && breakB:
		return ConnectionCheck{ConnectBreakOthersAB, "Replace existing connections"}
	case breakA:
		return ConnectionCheck{ConnectBreakOthersA, "Replace existing connections"}
	case breakB:
		return ConnectionCheck{ConnectBreakOthersB, "Replace existing connections"}
	}
	return ConnectionCheck{ConnectMake, ""}
}

func (DefaultSchema) typesCompatible(a, b PinType) bool {
	if a.IsExec() || b.IsExec() {
		return a.IsExec() && b.IsExec()
	}
	if a.Category == CategoryWildcard || b.Category == CategoryWildcard {
		return true
	}
	if a.Category != b.Category || a.ContainerType != b.ContainerType {
		return false
	}
	return a.SubCategoryObject == "" || b.SubCategoryObject == "" || a.SubCategoryObject == b.SubCategoryObject
}
